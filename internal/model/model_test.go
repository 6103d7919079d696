package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorColumns_MatchStruct(t *testing.T) {
	t.Parallel()

	var in Indicators
	assert.Len(t, IndicatorColumns, 60)
	assert.Len(t, in.Values(), len(IndicatorColumns))
	assert.Len(t, in.Pointers(), len(IndicatorColumns))
	assert.Len(t, in.Percents(), len(PercentColumns))

	// Writing through Pointers lands at the same index in Values.
	for i, p := range in.Pointers() {
		*p = float64(i + 1)
	}
	for i, v := range in.Values() {
		assert.Equal(t, float64(i+1), v, IndicatorColumns[i])
	}
}

func TestIndicatorColumns_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, c := range append(append([]string{}, ScenarioColumns...), IndicatorColumns...) {
		assert.False(t, seen[c], "duplicate column %s", c)
		seen[c] = true
	}
}

func TestPercentColumns_Order(t *testing.T) {
	t.Parallel()

	in := Indicators{PcExposedTransit: 1, PcResidentialHousing: 2}
	ptrs := in.Percents()
	assert.Equal(t, "pc_exposed_tr", PercentColumns[0])
	assert.Equal(t, 1.0, *ptrs[0])
	assert.Equal(t, "pc_residencial_hu", PercentColumns[len(PercentColumns)-1])
	assert.Equal(t, 2.0, *ptrs[len(ptrs)-1])
}

func TestScenario_ValuesAndPointers(t *testing.T) {
	t.Parallel()

	s := Scenario{
		Population: "pop.geojson", Footprint: "fp.geojson", Transit: "tr.geojson", NBS: "nbs.geojson",
		EnergyEfficiency: 20, SolarEnergy: 8.4, RWH: 50,
		Hospitals: "hp.geojson", Schools: "sc.geojson", SportCenters: "sp.geojson", Clinics: "cl.geojson",
		Daycare: "dc.geojson", GreenAreas: "ga.geojson", Infrastructure: "in.geojson", Jobs: "jb.geojson",
		PermeableAreas: "pm.geojson",
	}
	vals := s.Values()
	require.Len(t, vals, len(ScenarioColumns))
	assert.Equal(t, "pop.geojson", vals[0])
	assert.Equal(t, 8.4, vals[5])
	assert.Equal(t, "pm.geojson", vals[15])

	var back Scenario
	ptrs := back.Pointers()
	require.Len(t, ptrs, len(ScenarioColumns))
	for i, p := range ptrs {
		switch dst := p.(type) {
		case *string:
			*dst = vals[i].(string)
		case *float64:
			*dst = vals[i].(float64)
		}
	}
	assert.Equal(t, s, back)

	assert.Equal(t, "pop.geojson|fp.geojson|tr.geojson|nbs.geojson|20|8.4|50|hp.geojson|sc.geojson|sp.geojson|cl.geojson|dc.geojson|ga.geojson|in.geojson|jb.geojson|pm.geojson", s.String())
}

func TestIndicatorRow_Values(t *testing.T) {
	t.Parallel()

	row := IndicatorRow{ProjectID: "p1", Indicators: Indicators{FPArea: 50, WaterSupplyEnergy: 7}}
	vals := row.Values()
	require.Len(t, vals, len(ResultColumns()))
	assert.Equal(t, "p1", vals[0])
	assert.Equal(t, 50.0, vals[1+len(ScenarioColumns)])
	assert.Equal(t, 7.0, vals[len(vals)-1])
	assert.Equal(t, "project_id", ResultColumns()[0])
	assert.Equal(t, ConflictColumns(), ResultColumns()[:17])
}

func TestCategories(t *testing.T) {
	t.Parallel()

	require.Len(t, Categories, 13)
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
		assert.NotEmpty(t, c.Folder(), c)
	}
	assert.Equal(t, "green areas", CategoryGreenAreas.Folder())
	assert.Equal(t, "infraestructure", CategoryInfrastructure.Folder())
	assert.Equal(t, "employment", CategoryJobs.Folder())
	assert.False(t, Category("roads").Valid())

	for _, c := range AmenityCategories {
		_, ok := AmenityBaseLayer(c)
		assert.True(t, ok, c)
	}
	_, ok := AmenityBaseLayer(CategoryGreenAreas)
	assert.False(t, ok)
}

func TestProjectStatus_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusProcessing.Valid())
	assert.True(t, StatusReady.Valid())
	assert.True(t, StatusError.Valid())
	assert.False(t, ProjectStatus("done").Valid())
}

func TestDefaultConstants(t *testing.T) {
	t.Parallel()

	c, err := DefaultConstants()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Version)
	assert.Contains(t, c.Projection, "+proj=moll")
	assert.Equal(t, 25.0, c.HorizonYears())
	assert.Equal(t, 100.0, c.PercentCap)
	assert.Equal(t, 400.0, c.Buffers.BaseTransit)
	assert.Equal(t, 500.0, c.Buffers.BaseAmenity)
	assert.Equal(t, 800.0, c.Buffers.Accessibility)
	assert.Equal(t, 10.0, c.Buffers.LinearAsset)
	assert.Equal(t, 800.0, c.Buffers.NewTransit)
	assert.Equal(t, []float64{0, 20, 40}, c.Levels.EnergyEfficiency)
	assert.Equal(t, []float64{0, 8.4, 5}, c.Levels.Solar)
	assert.Equal(t, []float64{0, 50}, c.Levels.RWH)
	assert.Equal(t, 21.0, c.Emissions.TransportDivisor)
	assert.Equal(t, 0.75, c.Emissions.TransitWeight)
	assert.Equal(t, 1.0, c.Emissions.OtherWeight)
	assert.Equal(t, 1e6, c.Units.SquareKM)
	assert.Equal(t, 1e4, c.Units.Hectare)
}

func TestParseConstants_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing version", "projection: x", "version is required"},
		{"bad yaml", "version: [", "parse constants"},
		{
			"empty horizon",
			"version: v\nprojection: x\npercent_cap: 100\nhorizon: {base_year: 2050, target_year: 2025}",
			"horizon",
		},
		{
			"level out of range",
			"version: v\nprojection: x\npercent_cap: 100\nhorizon: {base_year: 2025, target_year: 2050}\n" +
				"emissions: {transport_divisor: 21}\nunits: {square_km: 1, km: 1, hectare: 1, millions: 1}\n" +
				"water: {days_per_year: 365}\nlevels: {rwh: [0, 150]}",
			"rwh level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConstants([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
