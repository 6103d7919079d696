package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/partial"
)

// Skip reasons.
const (
	ReasonLookupMiss = "lookup_miss"
	ReasonNonFinite  = "non_finite"
)

// SkipError marks a scenario that produces no row.
type SkipError struct {
	Reason   string
	Scenario model.Scenario
	Err      error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("scenario: skipped %s (%s): %v", e.Scenario, e.Reason, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// Aggregator combines cached partial results into indicator rows. It is
// safe for concurrent use since it only reads its inputs.
type Aggregator struct {
	projectID string
	cache     *partial.Cache
	a         assumptions.Table
	c         *model.Constants
}

// NewAggregator binds a cache, an assumptions table and the model constants.
// A cache built under other constants is refused.
func NewAggregator(projectID string, cache *partial.Cache, a assumptions.Table, c *model.Constants) (*Aggregator, error) {
	if cache == nil {
		return nil, eris.New("scenario: nil partial results")
	}
	if cache.ConstantsVersion != c.Version {
		return nil, eris.Errorf("scenario: partial results built with constants %q, running %q",
			cache.ConstantsVersion, c.Version)
	}
	if cache.Base.Density == 0 {
		return nil, eris.New("scenario: partial results have zero base density")
	}
	return &Aggregator{projectID: projectID, cache: cache, a: a, c: c}, nil
}

// lookups gathers every cached value one scenario needs.
type lookups struct {
	pop       partial.Population
	hazard    partial.Hazard
	exposedTr float64
	exposedHp float64
	exposedSc float64
	exposedIn float64
	access    map[model.Category]float64
	green     partial.GreenArea
	water     partial.Water
	fp        partial.Footprint
	jobs      float64
	solar     partial.Solar
	amenity   map[model.Category]partial.Amenity
	transit   partial.Transit
	permeable float64
}

// lookup remembers the first miss across a series of gets.
type lookup struct {
	err error
}

func get[K comparable, V any](l *lookup, t *partial.Table[K, V], k K, dst *V) {
	if l.err != nil {
		return
	}
	v, err := t.Get(k)
	if err != nil {
		l.err = err
		return
	}
	*dst = v
}

func (ag *Aggregator) gather(s model.Scenario) (*lookups, error) {
	c := ag.cache
	out := &lookups{
		access:  make(map[model.Category]float64, len(model.AmenityCategories)),
		amenity: make(map[model.Category]partial.Amenity, len(model.AmenityCategories)),
	}
	amenities := map[model.Category]string{
		model.CategoryHospitals: s.Hospitals,
		model.CategorySchools:   s.Schools,
		model.CategorySports:    s.SportCenters,
		model.CategoryClinics:   s.Clinics,
		model.CategoryDaycare:   s.Daycare,
	}
	asset := func(cat model.Category, v string) partial.Asset {
		return partial.Asset{Population: s.Population, NBS: s.NBS, Category: cat, Variant: v}
	}

	var l lookup
	get(&l, c.Population, s.Population, &out.pop)
	get(&l, c.Hazard, partial.Pair{A: s.Population, B: s.NBS}, &out.hazard)
	get(&l, c.Exposure, asset(model.CategoryTransit, s.Transit), &out.exposedTr)
	get(&l, c.Exposure, asset(model.CategoryHospitals, s.Hospitals), &out.exposedHp)
	get(&l, c.Exposure, asset(model.CategorySchools, s.Schools), &out.exposedSc)
	get(&l, c.Exposure, asset(model.CategoryInfrastructure, s.Infrastructure), &out.exposedIn)
	for _, cat := range model.AmenityCategories {
		var pct float64
		var am partial.Amenity
		get(&l, c.Access, partial.Access{Population: s.Population, Category: cat, Variant: amenities[cat]}, &pct)
		get(&l, c.Amenities, partial.AmenityKey{Category: cat, Variant: amenities[cat]}, &am)
		out.access[cat] = pct
		out.amenity[cat] = am
	}
	get(&l, c.GreenAreas, partial.Pair{A: s.Population, B: s.GreenAreas}, &out.green)
	get(&l, c.Water, partial.Level{Variant: s.Population, Level: s.RWH}, &out.water)
	get(&l, c.Footprint, s.Footprint, &out.fp)
	get(&l, c.Jobs, partial.Pair{A: s.Footprint, B: s.Jobs}, &out.jobs)
	get(&l, c.Solar, partial.Level{Variant: s.Footprint, Level: s.SolarEnergy}, &out.solar)
	get(&l, c.Transit, s.Transit, &out.transit)
	get(&l, c.Permeable, s.PermeableAreas, &out.permeable)
	return out, l.err
}

// Aggregate computes the indicator row of one scenario. Missing partial
// results or non-finite outputs yield a *SkipError.
func (ag *Aggregator) Aggregate(s model.Scenario) (*model.IndicatorRow, error) {
	v, err := ag.gather(s)
	if err != nil {
		var miss *partial.LookupMissError
		if errors.As(err, &miss) {
			return nil, &SkipError{Reason: ReasonLookupMiss, Scenario: s, Err: err}
		}
		return nil, err
	}

	a := ag.a
	base := ag.cache.Base
	mill := ag.c.Units.Millions
	pop := v.pop.Pop2050
	fpArea := v.fp.Area

	density := pop / fpArea
	densityChange := (density - base.Density) / base.Density

	// Electricity: efficiency applies to the buildings share only.
	energyUsed := (100 - s.EnergyEfficiency) / 100
	changeElectricity := -densityChange * a.Value(assumptions.ElasticityEnergy)
	electricity := a.Value(assumptions.EnergyConsumptionBase) * (1 + changeElectricity/100)
	buildings := electricity * a.Value(assumptions.EnergyBuildingsPercent) / 100
	electricityEE := buildings*energyUsed + (electricity - buildings)

	// Transport emissions, weighted by how much population lives near new transit.
	em := ag.c.Emissions
	emissionsBase := a.Value(assumptions.EnergyConsumptionBase) * energyUsed * a.Value(assumptions.EmissionsFactor)
	emissions := emissionsBase * (1 + (-densityChange*a.Value(assumptions.ElasticityEmissions))/100)
	emissionsTr := emissions * a.Value(assumptions.EmissionsTransportPercent) / em.TransportDivisor
	perCapita := emissionsTr / pop
	popNearTransit := pop * (v.transit.NewBufferArea / fpArea)
	popElsewhere := pop - popNearTransit
	emissionsTotal := popNearTransit*perCapita*em.TransitWeight + popElsewhere*perCapita*em.OtherWeight

	expectedVMT := a.Value(assumptions.KVR) * (1 + (-densityChange*a.Value(assumptions.VMT))/100)

	modalChange := densityChange * a.Value(assumptions.ModalElasticity)
	public := a.Value(assumptions.ModalPublic) * (1 - modalChange)
	bicycle := a.Value(assumptions.ModalBicycle) * (1 - modalChange)
	// Whatever public transport and bicycle lose goes to private vehicles.
	publicDelta := public - a.Value(assumptions.ModalPublic)
	bicycleDelta := bicycle - a.Value(assumptions.ModalBicycle)
	private := a.Value(assumptions.ModalPrivate) - publicDelta - bicycleDelta

	hp := v.amenity[model.CategoryHospitals]
	sc := v.amenity[model.CategorySchools]
	sp := v.amenity[model.CategorySports]
	cl := v.amenity[model.CategoryClinics]
	dc := v.amenity[model.CategoryDaycare]

	maintenance := (v.fp.Maintenance + v.transit.Maintenance +
		hp.Maintenance + sc.Maintenance + sp.Maintenance + cl.Maintenance + dc.Maintenance +
		v.green.Maintenance + v.fp.LightingCost + v.hazard.Reconstruction) / mill
	capital := (v.fp.Capital + v.transit.Capital + v.solar.Capital +
		hp.Capital + sc.Capital + sp.Capital + cl.Capital + dc.Capital +
		v.green.Capital) / mill

	in := model.Indicators{
		FPArea:                      fpArea,
		FPBaseArea:                  base.FootprintArea,
		Pop2050:                     pop,
		PopBase:                     base.Population,
		ExposedArea:                 v.hazard.ExposedArea,
		PcExposedTransit:            v.exposedTr,
		PcExposedHospitals:          v.exposedHp,
		PcExposedSchools:            v.exposedSc,
		PcExposedInfra:              v.exposedIn,
		ExposedPop:                  v.hazard.ExposedPop,
		PcExposedPop:                v.hazard.PcExposedPop,
		PcPopHospitals:              v.access[model.CategoryHospitals],
		PcPopSchools:                v.access[model.CategorySchools],
		PcPopSports:                 v.access[model.CategorySports],
		PcPopClinics:                v.access[model.CategoryClinics],
		PcPopDaycare:                v.access[model.CategoryDaycare],
		PcPopGreenAreas:             v.green.PcAccess,
		PopDensity:                  density,
		UrbanExpansionArea:          v.fp.UrbanExpansion,
		JobsDensity:                 v.jobs,
		VegetationLoss:              v.fp.VegetationLoss,
		PermeableArea:               v.permeable,
		ChangeElectricity:           changeElectricity,
		Electricity:                 electricity,
		ElectricityBuildings:        buildings,
		ElectricityEE:               electricityEE,
		ElectricityEEPerCapita:      electricityEE / pop,
		EmissionsTransport:          emissionsTotal,
		EmissionsTransportPerCapita: emissionsTotal / pop,
		SolarGeneration:             v.solar.Generation / mill,
		PublicLighting:              v.fp.LightingConsumption / mill,
		MaintenanceFootprint:        v.fp.Maintenance / mill,
		MaintenanceTransit:          v.transit.Maintenance / mill,
		MaintenanceCost:             maintenance,
		SchoolCapital:               sc.Capital / mill,
		NewSchools:                  float64(sc.New),
		HospitalCapital:             hp.Capital / mill,
		NewHospitals:                float64(hp.New),
		SportCapital:                sp.Capital / mill,
		NewSports:                   float64(sp.New),
		ClinicCapital:               cl.Capital / mill,
		NewClinics:                  float64(cl.New),
		DaycareCapital:              dc.Capital / mill,
		NewDaycare:                  float64(dc.New),
		GreenAreaCapital:            v.green.Capital / mill,
		CapitalCost:                 capital,
		SolarCapitalGross:           v.solar.CapitalGross,
		SolarCapital:                v.solar.Capital,
		GreenArea:                   v.green.Area,
		GreenAreaPerCapita:          v.green.PerCapita,
		IncreasedKVR:                expectedVMT,
		ExpectedVMT:                 expectedVMT,
		ModalBicycle:                bicycle,
		ModalPrivate:                private,
		ModalPublic:                 public,
		PcMediaHousing:              v.pop.MediaShare,
		PcPopularHousing:            v.pop.PopularShare,
		PcResidentialHousing:        v.pop.ResidentialShare,
		WaterConsumption:            v.water.Consumption,
		WaterSupplyEnergy:           v.water.Energy,
	}

	for _, p := range in.Percents() {
		*p = clamp(*p, 0, ag.c.PercentCap)
	}
	for i, val := range in.Values() {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, &SkipError{
				Reason:   ReasonNonFinite,
				Scenario: s,
				Err:      eris.Errorf("scenario: %s is %v", model.IndicatorColumns[i], val),
			}
		}
	}

	return &model.IndicatorRow{ProjectID: ag.projectID, Scenario: s, Indicators: in}, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}
