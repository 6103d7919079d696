package scenario

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/model"
	"github.com/sells-group/urban-performance/internal/partial"
)

func testAssumptions() assumptions.Table {
	t := make(assumptions.Table, len(assumptions.Required))
	for _, code := range assumptions.Required {
		t[code] = 1
	}
	t[assumptions.ElasticityEnergy] = 10
	t[assumptions.EnergyConsumptionBase] = 1000
	t[assumptions.EnergyBuildingsPercent] = 50
	t[assumptions.EmissionsTransportPercent] = 21
	t[assumptions.ModalPublic] = 30
	t[assumptions.ModalBicycle] = 10
	t[assumptions.ModalPrivate] = 60
	return t
}

func testScenario() model.Scenario {
	return model.Scenario{
		Population:       "pop_v1.geojson",
		Footprint:        "fp_v1.geojson",
		Transit:          "tr_v1.geojson",
		NBS:              "nbs_v1.geojson",
		EnergyEfficiency: 20,
		SolarEnergy:      8.4,
		RWH:              50,
		Hospitals:        "hp_v1.geojson",
		Schools:          "sc_v1.geojson",
		SportCenters:     "sp_v1.geojson",
		Clinics:          "cl_v1.geojson",
		Daycare:          "dc_v1.geojson",
		GreenAreas:       "ga_v1.geojson",
		Infrastructure:   "in_v1.geojson",
		Jobs:             "jb_v1.geojson",
		PermeableAreas:   "pm_v1.geojson",
	}
}

// testCache holds exactly the entries testScenario needs.
func testCache(c *model.Constants) *partial.Cache {
	s := testScenario()
	cache := partial.NewCache(c.Version, "gen-1")
	cache.Base.Population = 7500
	cache.Base.FootprintArea = 50
	cache.Base.Density = 150

	cache.Population.Put(s.Population, partial.Population{Pop2050: 10000, MediaShare: 50, PopularShare: 30, ResidentialShare: 20})
	cache.Hazard.Put(partial.Pair{A: s.Population, B: s.NBS}, partial.Hazard{
		ExposedArea: 12, ExposedPop: 1200, PcExposedPop: 12, Reconstruction: 2e6,
	})
	asset := func(cat model.Category, v string, pct float64) {
		cache.Exposure.Put(partial.Asset{Population: s.Population, NBS: s.NBS, Category: cat, Variant: v}, pct)
	}
	asset(model.CategoryTransit, s.Transit, 5)
	asset(model.CategoryHospitals, s.Hospitals, 25)
	asset(model.CategorySchools, s.Schools, 0)
	asset(model.CategoryInfrastructure, s.Infrastructure, 120)

	amenities := map[model.Category]string{
		model.CategoryHospitals: s.Hospitals,
		model.CategorySchools:   s.Schools,
		model.CategorySports:    s.SportCenters,
		model.CategoryClinics:   s.Clinics,
		model.CategoryDaycare:   s.Daycare,
	}
	for cat, v := range amenities {
		cache.Access.Put(partial.Access{Population: s.Population, Category: cat, Variant: v}, 80)
		cache.Amenities.Put(partial.AmenityKey{Category: cat, Variant: v}, partial.Amenity{
			Total: 4, New: 2, Capital: 1e6, Maintenance: 2e6,
		})
	}
	cache.GreenAreas.Put(partial.Pair{A: s.Population, B: s.GreenAreas}, partial.GreenArea{
		Area: 2, PerCapita: 200, PcAccess: 90, Capital: 3e6, Maintenance: 1e6,
	})
	cache.Water.Put(partial.Level{Variant: s.Population, Level: s.RWH}, partial.Water{Consumption: 1000, Energy: 500})
	cache.Footprint.Put(s.Footprint, partial.Footprint{
		Area: 50, UrbanExpansion: 5, VegetationLoss: 1, LightingConsumption: 4e6,
		LightingCost: 1e6, Maintenance: 3e6, Capital: 5e6,
	})
	cache.Jobs.Put(partial.Pair{A: s.Footprint, B: s.Jobs}, 42)
	cache.Solar.Put(partial.Level{Variant: s.Footprint, Level: s.SolarEnergy}, partial.Solar{
		Generation: 8e6, CapitalGross: 10, Capital: 2e6,
	})
	cache.Transit.Put(s.Transit, partial.Transit{BufferArea: 3, NewBufferArea: 10, Maintenance: 1e6, Capital: 4e6})
	cache.Permeable.Put(s.PermeableAreas, 7)
	return cache
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	c := model.MustDefaultConstants()
	ag, err := NewAggregator("proj-1", testCache(c), testAssumptions(), c)
	require.NoError(t, err)
	return ag
}

func TestAggregate_DensityAndElectricity(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	row, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	in := row.Indicators

	assert.Equal(t, "proj-1", row.ProjectID)
	assert.InDelta(t, 200.0, in.PopDensity, 1e-9)
	assert.InDelta(t, -3.3333, in.ChangeElectricity, 1e-3)
	assert.InDelta(t, 1000*(1-3.33333333/100), in.Electricity, 1e-3)
	assert.InDelta(t, in.Electricity/2, in.ElectricityBuildings, 1e-9)
	// 20% efficiency on the buildings half only.
	assert.InDelta(t, in.ElectricityBuildings*0.8+in.Electricity/2, in.ElectricityEE, 1e-9)
	assert.InDelta(t, in.ElectricityEE/10000, in.ElectricityEEPerCapita, 1e-12)
}

func TestAggregate_Emissions(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	row, err := ag.Aggregate(testScenario())
	require.NoError(t, err)

	change := (200.0 - 150.0) / 150.0
	emissions := 1000 * 0.8 * 1 * (1 - change/100)
	emissionsTr := emissions * 21 / 21
	pc := emissionsTr / 10000
	near := 10000 * (10.0 / 50.0)
	want := near*pc*0.75 + (10000-near)*pc
	assert.InDelta(t, want, row.Indicators.EmissionsTransport, 1e-9)
	assert.InDelta(t, want/10000, row.Indicators.EmissionsTransportPerCapita, 1e-12)
}

func TestAggregate_ModalShift(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	row, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	in := row.Indicators

	change := (200.0 - 150.0) / 150.0
	assert.InDelta(t, 30*(1-change), in.ModalPublic, 1e-9)
	assert.InDelta(t, 10*(1-change), in.ModalBicycle, 1e-9)
	assert.InDelta(t, 100.0, in.ModalPublic+in.ModalBicycle+in.ModalPrivate, 1e-9)
	assert.InDelta(t, 1*(1-change/100), in.ExpectedVMT, 1e-9)
	assert.Equal(t, in.ExpectedVMT, in.IncreasedKVR)
}

func TestAggregate_Costs(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	row, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	in := row.Indicators

	// fp 3 + tr 1 + amenities 5×2 + green 1 + lighting 1 + reconstruction 2
	assert.InDelta(t, 18.0, in.MaintenanceCost, 1e-9)
	// fp 5 + tr 4 + solar 2 + amenities 5×1 + green 3
	assert.InDelta(t, 19.0, in.CapitalCost, 1e-9)
	assert.InDelta(t, 3.0, in.MaintenanceFootprint, 1e-9)
	assert.InDelta(t, 1.0, in.SchoolCapital, 1e-9)
	assert.Equal(t, 2.0, in.NewHospitals)
	assert.InDelta(t, 8.0, in.SolarGeneration, 1e-9)
	assert.InDelta(t, 4.0, in.PublicLighting, 1e-9)
}

func TestAggregate_PercentCap(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	row, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	assert.Equal(t, 100.0, row.Indicators.PcExposedInfra)
	for i, p := range row.Indicators.Percents() {
		assert.GreaterOrEqual(t, *p, 0.0, model.PercentColumns[i])
		assert.LessOrEqual(t, *p, 100.0, model.PercentColumns[i])
	}
}

func TestAggregate_WaterPassThrough(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	row, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, row.Indicators.WaterConsumption)
	assert.Equal(t, 500.0, row.Indicators.WaterSupplyEnergy)
}

func TestAggregate_Deterministic(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	a, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	b, err := ag.Aggregate(testScenario())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAggregate_LookupMissSkips(t *testing.T) {
	t.Parallel()
	ag := newTestAggregator(t)

	s := testScenario()
	s.Schools = "sc_missing.geojson"
	_, err := ag.Aggregate(s)
	require.Error(t, err)

	var skip *SkipError
	require.True(t, errors.As(err, &skip))
	assert.Equal(t, ReasonLookupMiss, skip.Reason)
	assert.Equal(t, s, skip.Scenario)

	var miss *partial.LookupMissError
	require.True(t, errors.As(err, &miss))
	assert.Equal(t, "exposure", miss.Table)
}

func TestAggregate_NonFiniteSkips(t *testing.T) {
	t.Parallel()
	c := model.MustDefaultConstants()
	cache := testCache(c)
	s := testScenario()
	cache.Footprint.Put(s.Footprint, partial.Footprint{Area: 0})

	ag, err := NewAggregator("proj-1", cache, testAssumptions(), c)
	require.NoError(t, err)

	_, err = ag.Aggregate(s)
	var skip *SkipError
	require.True(t, errors.As(err, &skip))
	assert.Equal(t, ReasonNonFinite, skip.Reason)
}

func TestNewAggregator_ConstantsVersionMismatch(t *testing.T) {
	t.Parallel()
	c := model.MustDefaultConstants()
	cache := testCache(c)
	cache.ConstantsVersion = "1999.1"

	_, err := NewAggregator("proj-1", cache, testAssumptions(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1999.1")
}

func TestSpace_OrderMatchesCartesianProduct(t *testing.T) {
	t.Parallel()
	c := model.MustDefaultConstants()
	snap := catalog.Snapshot{}
	for _, cat := range model.Categories {
		snap[cat] = []string{"a.geojson"}
	}
	snap[model.CategoryPermeable] = []string{"p1.geojson", "p2.geojson"}
	snap[model.CategoryPopulation] = []string{"pop1.geojson", "pop2.geojson"}

	space := NewSpace(snap, c)
	// 2 populations × 3 EE × 3 solar × 2 RWH × 2 permeable
	require.Equal(t, 72, space.Size())

	first, err := space.At(0)
	require.NoError(t, err)
	assert.Equal(t, "pop1.geojson", first.Population)
	assert.Equal(t, "p1.geojson", first.PermeableAreas)
	assert.Equal(t, 0.0, first.EnergyEfficiency)

	second, err := space.At(1)
	require.NoError(t, err)
	assert.Equal(t, "p2.geojson", second.PermeableAreas)
	assert.Equal(t, 0.0, second.RWH)

	third, err := space.At(2)
	require.NoError(t, err)
	assert.Equal(t, "p1.geojson", third.PermeableAreas)
	assert.Equal(t, 50.0, third.RWH)

	last, err := space.At(71)
	require.NoError(t, err)
	assert.Equal(t, "pop2.geojson", last.Population)
	assert.Equal(t, 40.0, last.EnergyEfficiency)
	assert.Equal(t, 5.0, last.SolarEnergy)

	_, err = space.At(72)
	assert.Error(t, err)

	seen := make(map[model.Scenario]bool, space.Size())
	for i := 0; i < space.Size(); i++ {
		s, err := space.At(i)
		require.NoError(t, err)
		seen[s] = true
	}
	assert.Len(t, seen, 72)
}

func TestSpace_EmptyAxis(t *testing.T) {
	t.Parallel()
	snap := catalog.Snapshot{}
	for _, cat := range model.Categories {
		snap[cat] = []string{"a.geojson"}
	}
	snap[model.CategorySchools] = []string{}

	space := NewSpace(snap, model.MustDefaultConstants())
	assert.Equal(t, 0, space.Size())
	assert.Empty(t, space.Chunks(100))
}

func TestSpace_Chunks(t *testing.T) {
	t.Parallel()
	snap := catalog.Snapshot{}
	for _, cat := range model.Categories {
		snap[cat] = []string{"a.geojson"}
	}
	snap[model.CategoryJobs] = []string{"j1", "j2", "j3", "j4", "j5", "j6", "j7", "j8", "j9", "j10", "j11", "j12"}

	space := NewSpace(snap, model.MustDefaultConstants())
	require.Equal(t, 216, space.Size())

	chunks := space.Chunks(100)
	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Index: 2, Start: 200, End: 216}, chunks[2])
	total := 0
	for _, ch := range chunks {
		total += ch.Len()
	}
	assert.Equal(t, 216, total)
}
