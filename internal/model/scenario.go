package model

import (
	"strconv"
	"strings"
)

// ScenarioColumns are the result-table columns identifying a scenario, in
// axis order. Together with project_id they form the upsert conflict key.
var ScenarioColumns = []string{
	"population_",
	"footprint",
	"transit",
	"nbs",
	"energy_efficiency",
	"solar_energy",
	"rwh",
	"hospitals",
	"schools",
	"sport_centers",
	"clinics",
	"daycare",
	"green_areas",
	"infrastructure",
	"jobs",
	"permeable_areas",
}

// Scenario selects one variant or level per axis. Levels are percentages;
// every other field is a variant filename.
type Scenario struct {
	Population       string  `json:"population"`
	Footprint        string  `json:"footprint"`
	Transit          string  `json:"transit"`
	NBS              string  `json:"nbs"`
	EnergyEfficiency float64 `json:"energy_efficiency"`
	SolarEnergy      float64 `json:"solar_energy"`
	RWH              float64 `json:"rwh"`
	Hospitals        string  `json:"hospitals"`
	Schools          string  `json:"schools"`
	SportCenters     string  `json:"sport_centers"`
	Clinics          string  `json:"clinics"`
	Daycare          string  `json:"daycare"`
	GreenAreas       string  `json:"green_areas"`
	Infrastructure   string  `json:"infrastructure"`
	Jobs             string  `json:"jobs"`
	PermeableAreas   string  `json:"permeable_areas"`
}

// Values returns the scenario's axis values in ScenarioColumns order.
func (s Scenario) Values() []any {
	return []any{
		s.Population,
		s.Footprint,
		s.Transit,
		s.NBS,
		s.EnergyEfficiency,
		s.SolarEnergy,
		s.RWH,
		s.Hospitals,
		s.Schools,
		s.SportCenters,
		s.Clinics,
		s.Daycare,
		s.GreenAreas,
		s.Infrastructure,
		s.Jobs,
		s.PermeableAreas,
	}
}

// Pointers returns scan targets in ScenarioColumns order.
func (s *Scenario) Pointers() []any {
	return []any{
		&s.Population,
		&s.Footprint,
		&s.Transit,
		&s.NBS,
		&s.EnergyEfficiency,
		&s.SolarEnergy,
		&s.RWH,
		&s.Hospitals,
		&s.Schools,
		&s.SportCenters,
		&s.Clinics,
		&s.Daycare,
		&s.GreenAreas,
		&s.Infrastructure,
		&s.Jobs,
		&s.PermeableAreas,
	}
}

// String renders the tuple as a compact pipe-separated key for logs.
func (s Scenario) String() string {
	vals := s.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case float64:
			parts[i] = strconv.FormatFloat(t, 'g', -1, 64)
		case string:
			parts[i] = t
		}
	}
	return strings.Join(parts, "|")
}

// IndicatorRow is one persisted scenario result.
type IndicatorRow struct {
	ProjectID  string     `json:"project_id"`
	Scenario   Scenario   `json:"scenario"`
	Indicators Indicators `json:"indicators"`
}

// Values returns project_id, the axis values and the indicator values in
// ResultColumns order.
func (r *IndicatorRow) Values() []any {
	out := make([]any, 0, len(ResultColumns()))
	out = append(out, r.ProjectID)
	out = append(out, r.Scenario.Values()...)
	for _, v := range r.Indicators.Values() {
		out = append(out, v)
	}
	return out
}

// ResultColumns returns every column of the results table in row order.
func ResultColumns() []string {
	cols := make([]string, 0, 1+len(ScenarioColumns)+len(IndicatorColumns))
	cols = append(cols, "project_id")
	cols = append(cols, ScenarioColumns...)
	cols = append(cols, IndicatorColumns...)
	return cols
}

// ConflictColumns returns the unique key of the results table.
func ConflictColumns() []string {
	cols := make([]string, 0, 1+len(ScenarioColumns))
	cols = append(cols, "project_id")
	return append(cols, ScenarioColumns...)
}
