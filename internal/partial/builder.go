package partial

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/geo"
	"github.com/sells-group/urban-performance/internal/model"
)

// Layer attribute names read from population files.
const (
	AttrPopulation  = "Pop_total"
	AttrDensity     = "DENS2050"
	AttrMedia       = "Media_hu"
	AttrPopular     = "Popular_hu"
	AttrResidential = "Residencial_hu"
)

// Progress marks of the cache-build stage.
const (
	ProgressStart      = 0
	ProgressBaseLoaded = 20
	ProgressBuilt      = 37
)

// ProgressFunc records stage progress (0-100).
type ProgressFunc func(ctx context.Context, percent int) error

// Request describes one cache build.
type Request struct {
	ProjectID   string
	Generation  string
	Assumptions assumptions.Table
	Snapshot    catalog.Snapshot
	Progress    ProgressFunc
}

// Builder computes a project's partial results through a geometry engine.
type Builder struct {
	engine    geo.Engine
	catalog   *catalog.Catalog
	constants *model.Constants
	srid      int
	read      func(path string, srid int) (*geo.Layer, error)
	log       *zap.Logger
}

// NewBuilder creates a builder. Layers without a declared CRS are read as
// sourceSRID.
func NewBuilder(engine geo.Engine, cat *catalog.Catalog, constants *model.Constants, sourceSRID int) *Builder {
	return &Builder{
		engine:    engine,
		catalog:   cat,
		constants: constants,
		srid:      sourceSRID,
		read:      geo.ReadLayer,
		log:       zap.L().With(zap.String("component", "partial.builder")),
	}
}

// build carries the state of one Build call.
type build struct {
	*Builder
	req    Request
	a      assumptions.Table
	layers *layerSet
	cache  *Cache

	popBase *geo.Layer
	fpBase  *geo.Layer
	trBase  *geo.Layer // buffered by the base transit distance
	vgBase  *geo.Layer
	roads   *geo.Layer
	hazard  *geo.Layer

	done, total int
}

// Build computes every partial result for the variants in req.Snapshot.
// Geometry failures abort the build.
func (b *Builder) Build(ctx context.Context, req Request) (*Cache, error) {
	if req.Progress == nil {
		req.Progress = func(context.Context, int) error { return nil }
	}
	ls := newLayerSet(b.engine, b.constants.Projection, b.srid)
	ls.read = b.read
	st := &build{
		Builder: b,
		req:     req,
		a:       req.Assumptions,
		layers:  ls,
		cache:   NewCache(b.constants.Version, req.Generation),
	}
	st.cache.Variants = req.Snapshot
	log := b.log.With(zap.String("project_id", req.ProjectID))

	if err := req.Progress(ctx, ProgressStart); err != nil {
		return nil, err
	}
	if err := st.loadBase(ctx); err != nil {
		return nil, err
	}
	if err := req.Progress(ctx, ProgressBaseLoaded); err != nil {
		return nil, err
	}
	if err := st.base(ctx); err != nil {
		return nil, err
	}

	snap := req.Snapshot
	st.total = len(snap[model.CategoryPopulation]) + len(snap[model.CategoryFootprint]) +
		len(snap[model.CategoryTransit]) + len(snap[model.CategoryPermeable])
	for _, c := range model.AmenityCategories {
		st.total += len(snap[c])
	}

	steps := []func(context.Context) error{
		st.populations,
		st.amenities,
		st.footprints,
		st.transits,
		st.permeables,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}

	if err := req.Progress(ctx, ProgressBuilt); err != nil {
		return nil, err
	}
	log.Info("partial results built",
		zap.Int("entries", st.cache.Entries()),
		zap.Int("omitted", len(st.cache.Omitted)),
	)
	return st.cache, nil
}

func (st *build) variantPath(c model.Category, name string) string {
	return st.catalog.VariantPath(st.req.ProjectID, c, name)
}

func (st *build) loadVariant(ctx context.Context, c model.Category, name string) (*geo.Layer, error) {
	return st.layers.load(ctx, st.variantPath(c, name))
}

func (st *build) loadBaseLayer(ctx context.Context, l model.BaseLayer) (*geo.Layer, error) {
	return st.layers.load(ctx, st.catalog.BasePath(st.req.ProjectID, l))
}

// step advances variant progress inside the 20..37 band.
func (st *build) step(ctx context.Context) error {
	st.done++
	if st.total == 0 {
		return nil
	}
	span := ProgressBuilt - ProgressBaseLoaded
	return st.req.Progress(ctx, ProgressBaseLoaded+span*st.done/st.total)
}

func (st *build) omit(c model.Category, variant, reason string) {
	st.log.Warn("variant omitted from partial results",
		zap.String("project_id", st.req.ProjectID),
		zap.String("category", string(c)),
		zap.String("variant", variant),
		zap.String("reason", reason),
	)
	st.cache.Omitted = append(st.cache.Omitted, Omission{Category: c, Variant: variant, Reason: reason})
}

func (st *build) area(ctx context.Context, l *geo.Layer) (float64, error) {
	return st.engine.Area(ctx, l)
}

func (st *build) length(ctx context.Context, l *geo.Layer) (float64, error) {
	return st.engine.Length(ctx, l)
}

func (st *build) loadBase(ctx context.Context) error {
	var err error
	if st.popBase, err = st.loadBaseLayer(ctx, model.BasePopulation); err != nil {
		return err
	}
	if st.fpBase, err = st.loadBaseLayer(ctx, model.BaseFootprint); err != nil {
		return err
	}
	if st.vgBase, err = st.loadBaseLayer(ctx, model.BaseVegetation); err != nil {
		return err
	}
	if st.roads, err = st.loadBaseLayer(ctx, model.BaseRoads); err != nil {
		return err
	}
	if st.hazard, err = st.loadBaseLayer(ctx, model.HazardFlooding); err != nil {
		return err
	}
	tr, err := st.loadBaseLayer(ctx, model.BaseTransit)
	if err != nil {
		return err
	}
	st.trBase, err = st.engine.Buffer(ctx, tr, st.constants.Buffers.BaseTransit)
	return err
}

// base computes the variant-independent aggregates.
func (st *build) base(ctx context.Context) error {
	u := st.constants.Units
	b := &st.cache.Base

	pop, err := st.popBase.Sum(AttrPopulation)
	if err != nil {
		return err
	}
	b.Population = math.Round(pop)

	fpArea, err := st.area(ctx, st.fpBase)
	if err != nil {
		return err
	}
	b.FootprintArea = fpArea / u.SquareKM
	if b.FootprintArea <= 0 {
		return &assumptions.ValidationError{Malformed: []assumptions.RowError{{
			Code: string(model.BaseFootprint), Reason: "base footprint has no area",
		}}}
	}
	b.Density = b.Population / b.FootprintArea

	if b.TransitBufferArea, err = st.area(ctx, st.trBase); err != nil {
		return err
	}
	b.TransitBufferArea /= u.SquareKM

	ga, err := st.loadBaseLayer(ctx, model.BaseGreenAreas)
	if err != nil {
		return err
	}
	if b.GreenArea, err = st.area(ctx, ga); err != nil {
		return err
	}
	b.GreenArea /= u.SquareKM

	if b.VegetationArea, err = st.area(ctx, st.vgBase); err != nil {
		return err
	}
	b.VegetationArea /= u.SquareKM

	for _, c := range model.AmenityCategories {
		bl, _ := model.AmenityBaseLayer(c)
		l, err := st.loadBaseLayer(ctx, bl)
		if err != nil {
			return err
		}
		buf, err := st.engine.Buffer(ctx, l, st.constants.Buffers.BaseAmenity)
		if err != nil {
			return err
		}
		a, err := st.area(ctx, buf)
		if err != nil {
			return err
		}
		b.AmenityBufferArea[c] = a / u.SquareKM
		b.AmenityCount[c] = l.Len()
	}

	roadsFP, err := st.engine.Overlay(ctx, st.roads, st.fpBase, geo.Intersection)
	if err != nil {
		return err
	}
	if b.RoadsLength, err = st.length(ctx, roadsFP); err != nil {
		return err
	}
	b.RoadsLength /= u.KM
	b.RoadsDensity = b.RoadsLength / b.FootprintArea
	return nil
}

// capped returns part*100/whole limited to the configured ceiling; an empty
// whole yields 0.
func (st *build) capped(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Min(part*100/whole, st.constants.PercentCap)
}

// populationWithin sums DENS2050 × hectares over an overlay result.
func (st *build) populationWithin(ctx context.Context, l *geo.Layer) (float64, error) {
	var total float64
	for i, f := range l.Features {
		dens, ok := f.Float(AttrDensity)
		if !ok {
			continue
		}
		a, err := st.area(ctx, &geo.Layer{Name: l.Name, Features: l.Features[i : i+1]})
		if err != nil {
			return 0, err
		}
		total += dens * a / st.constants.Units.Hectare
	}
	return total, nil
}

// withDensity sets DENS2050 = Pop_total / hectares on every feature.
func (st *build) withDensity(ctx context.Context, l *geo.Layer) (*geo.Layer, error) {
	out := &geo.Layer{Name: l.Name, SRID: l.SRID, Features: make([]geo.Feature, len(l.Features))}
	for i, f := range l.Features {
		pop, _ := f.Float(AttrPopulation)
		a, err := st.area(ctx, &geo.Layer{Name: l.Name, Features: l.Features[i : i+1]})
		if err != nil {
			return nil, err
		}
		dens := 0.0
		if ha := a / st.constants.Units.Hectare; ha > 0 {
			dens = pop / ha
		}
		out.Features[i] = f.With(AttrDensity, dens)
	}
	return out, nil
}

func (st *build) populations(ctx context.Context) error {
	for _, name := range st.req.Snapshot[model.CategoryPopulation] {
		if err := st.population(ctx, name); err != nil {
			return eris.Wrapf(err, "partial: population %s", name)
		}
		if err := st.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (st *build) population(ctx context.Context, name string) error {
	raw, err := st.loadVariant(ctx, model.CategoryPopulation, name)
	if err != nil {
		return err
	}
	sum, err := raw.Sum(AttrPopulation)
	if err != nil {
		return err
	}
	pop2050 := math.Round(sum)
	if pop2050 <= 0 {
		st.omit(model.CategoryPopulation, name, "total population is zero")
		return nil
	}

	pop, err := st.withDensity(ctx, raw)
	if err != nil {
		return err
	}

	housing, err := st.housing(raw, name, pop2050)
	if err != nil {
		return err
	}
	st.cache.Population.Put(name, housing)

	if err := st.hazards(ctx, name, pop, pop2050); err != nil {
		return err
	}
	if err := st.accessibility(ctx, name, pop, pop2050); err != nil {
		return err
	}
	return st.greenAreas(ctx, name, pop, pop2050)
}

// housing computes housing-type shares and the water demand per RWH level.
func (st *build) housing(pop *geo.Layer, name string, pop2050 float64) (Population, error) {
	attrs := []string{AttrMedia, AttrPopular, AttrResidential}
	cons := []float64{
		st.a.Value(assumptions.MediaHousingWater),
		st.a.Value(assumptions.PopularHousingWater),
		st.a.Value(assumptions.ResidentialHousingWater),
	}

	totals := make([]float64, len(attrs))
	var all, water float64
	for i, attr := range attrs {
		v, err := pop.Sum(attr)
		if err != nil {
			return Population{}, err
		}
		totals[i] = v
		all += v
		water += v * cons[i]
	}

	share := func(v float64) float64 {
		if all == 0 {
			return 0
		}
		return v / all * 100
	}

	w := st.constants.Water
	consumption := water * w.PeriodsPerYear * w.LitersPerM3 / (pop2050 * w.DaysPerYear)
	waterEnergy := st.a.Value(assumptions.WaterEnergy)
	for _, level := range st.constants.Levels.RWH {
		other := water - water*level/100
		st.cache.Water.Put(Level{Variant: name, Level: level}, Water{
			Consumption: consumption,
			Energy:      other * waterEnergy,
		})
	}

	return Population{
		Pop2050:          pop2050,
		MediaShare:       share(totals[0]),
		PopularShare:     share(totals[1]),
		ResidentialShare: share(totals[2]),
	}, nil
}

// hazards computes residual exposure for every nbs variant and the assets
// exposed under it.
func (st *build) hazards(ctx context.Context, popName string, pop *geo.Layer, pop2050 float64) error {
	inter, err := st.engine.Overlay(ctx, pop, st.hazard, geo.Intersection)
	if err != nil {
		return err
	}
	u := st.constants.Units
	snap := st.req.Snapshot

	for _, nbsName := range snap[model.CategoryNBS] {
		nbs, err := st.loadVariant(ctx, model.CategoryNBS, nbsName)
		if err != nil {
			return err
		}
		interNBS, err := st.layers.memo("nbs-base|"+nbsName, func() (*geo.Layer, error) {
			return st.engine.Overlay(ctx, st.popBase, nbs, geo.Intersection)
		})
		if err != nil {
			return err
		}
		exposed, err := st.engine.Overlay(ctx, inter, interNBS, geo.Difference)
		if err != nil {
			return err
		}

		exposedArea, err := st.area(ctx, exposed)
		if err != nil {
			return err
		}
		exposedPop, err := st.populationWithin(ctx, exposed)
		if err != nil {
			return err
		}
		nbsArea, err := st.area(ctx, nbs)
		if err != nil {
			return err
		}
		nbsArea /= u.SquareKM

		rounded := math.Round(exposedPop)
		st.cache.Hazard.Put(Pair{A: popName, B: nbsName}, Hazard{
			ExposedArea:    exposedArea / u.Hectare,
			ExposedPop:     rounded,
			PcExposedPop:   st.capped(exposedPop, pop2050),
			NBSCapital:     nbsArea * st.a.Value(assumptions.NBSCapitalCost),
			NBSMaintenance: nbsArea * st.a.Value(assumptions.NBSMaintenanceCost),
			Reconstruction: rounded * st.a.Value(assumptions.ReconstructionCost) / st.a.Value(assumptions.ReturnPeriod),
		})

		for _, c := range []model.Category{model.CategoryTransit, model.CategoryInfrastructure} {
			for _, v := range snap[c] {
				pct, err := st.linearExposure(ctx, c, v, exposed)
				if err != nil {
					return err
				}
				st.cache.Exposure.Put(Asset{Population: popName, NBS: nbsName, Category: c, Variant: v}, pct)
			}
		}
		for _, c := range []model.Category{model.CategoryHospitals, model.CategorySchools} {
			for _, v := range snap[c] {
				pct, err := st.pointExposure(ctx, c, v, exposed)
				if err != nil {
					return err
				}
				st.cache.Exposure.Put(Asset{Population: popName, NBS: nbsName, Category: c, Variant: v}, pct)
			}
		}
	}
	return nil
}

// linearExposure is the share of a line layer's narrow buffer lying in the
// exposed zone.
func (st *build) linearExposure(ctx context.Context, c model.Category, name string, exposed *geo.Layer) (float64, error) {
	buf, err := st.layers.memo(fmt.Sprintf("linear|%s|%s", c, name), func() (*geo.Layer, error) {
		l, err := st.loadVariant(ctx, c, name)
		if err != nil {
			return nil, err
		}
		return st.engine.Buffer(ctx, l, st.constants.Buffers.LinearAsset)
	})
	if err != nil {
		return 0, err
	}
	total, err := st.area(ctx, buf)
	if err != nil {
		return 0, err
	}
	hit, err := st.engine.Overlay(ctx, buf, exposed, geo.Intersection)
	if err != nil {
		return 0, err
	}
	part, err := st.area(ctx, hit)
	if err != nil {
		return 0, err
	}
	return st.capped(part, total), nil
}

// pointExposure is the share of point features inside the exposed zone.
func (st *build) pointExposure(ctx context.Context, c model.Category, name string, exposed *geo.Layer) (float64, error) {
	pts, err := st.loadVariant(ctx, c, name)
	if err != nil {
		return 0, err
	}
	hit, err := st.engine.SpatialJoin(ctx, pts, exposed)
	if err != nil {
		return 0, err
	}
	return st.capped(float64(hit.Len()), float64(pts.Len())), nil
}

// walkZone is the dissolved accessibility buffer of an amenity variant.
func (st *build) walkZone(ctx context.Context, c model.Category, name string) (*geo.Layer, error) {
	return st.layers.memo(fmt.Sprintf("walk|%s|%s", c, name), func() (*geo.Layer, error) {
		l, err := st.loadVariant(ctx, c, name)
		if err != nil {
			return nil, err
		}
		buf, err := st.engine.Buffer(ctx, l, st.constants.Buffers.Accessibility)
		if err != nil {
			return nil, err
		}
		return st.engine.Dissolve(ctx, buf)
	})
}

func (st *build) reach(ctx context.Context, pop *geo.Layer, pop2050 float64, c model.Category, name string) (float64, error) {
	zone, err := st.walkZone(ctx, c, name)
	if err != nil {
		return 0, err
	}
	inter, err := st.engine.Overlay(ctx, pop, zone, geo.Intersection)
	if err != nil {
		return 0, err
	}
	near, err := st.populationWithin(ctx, inter)
	if err != nil {
		return 0, err
	}
	return st.capped(near, pop2050), nil
}

func (st *build) accessibility(ctx context.Context, popName string, pop *geo.Layer, pop2050 float64) error {
	for _, c := range model.AmenityCategories {
		for _, v := range st.req.Snapshot[c] {
			pct, err := st.reach(ctx, pop, pop2050, c, v)
			if err != nil {
				return err
			}
			st.cache.Access.Put(Access{Population: popName, Category: c, Variant: v}, pct)
		}
	}
	return nil
}

func (st *build) greenAreas(ctx context.Context, popName string, pop *geo.Layer, pop2050 float64) error {
	u := st.constants.Units
	for _, v := range st.req.Snapshot[model.CategoryGreenAreas] {
		ga, err := st.loadVariant(ctx, model.CategoryGreenAreas, v)
		if err != nil {
			return err
		}
		a, err := st.area(ctx, ga)
		if err != nil {
			return err
		}
		a /= u.SquareKM
		pct, err := st.reach(ctx, pop, pop2050, model.CategoryGreenAreas, v)
		if err != nil {
			return err
		}
		st.cache.GreenAreas.Put(Pair{A: popName, B: v}, GreenArea{
			Area:        a,
			PerCapita:   a / pop2050 * u.SquareKM,
			PcAccess:    pct,
			Capital:     a * st.a.Value(assumptions.GreenAreaCapitalCost) * u.SquareKM,
			Maintenance: a * st.a.Value(assumptions.GreenAreaMaintenanceCost) * u.SquareKM,
		})
	}
	return nil
}

// amenityCosts maps each amenity category to its capital and maintenance
// cost codes. Clinics share the hospital unit costs.
var amenityCosts = map[model.Category][2]string{
	model.CategoryHospitals: {assumptions.HospitalCapitalCost, assumptions.HospitalMaintenanceCost},
	model.CategorySchools:   {assumptions.SchoolCapitalCost, assumptions.SchoolMaintenanceCost},
	model.CategorySports:    {assumptions.ParkCapitalCost, assumptions.ParkMaintenanceCost},
	model.CategoryClinics:   {assumptions.HospitalCapitalCost, assumptions.HospitalMaintenanceCost},
	model.CategoryDaycare:   {assumptions.DaycareCapitalCost, assumptions.DaycareMaintenanceCost},
}

func (st *build) amenities(ctx context.Context) error {
	for _, c := range model.AmenityCategories {
		codes := amenityCosts[c]
		for _, v := range st.req.Snapshot[c] {
			l, err := st.loadVariant(ctx, c, v)
			if err != nil {
				return eris.Wrapf(err, "partial: %s %s", c, v)
			}
			total := l.Len()
			added := total - st.cache.Base.AmenityCount[c]
			st.cache.Amenities.Put(AmenityKey{Category: c, Variant: v}, Amenity{
				Total:       total,
				New:         added,
				Capital:     float64(added) * st.a.Value(codes[0]),
				Maintenance: float64(total) * st.a.Value(codes[1]),
			})
			if err := st.step(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st *build) footprints(ctx context.Context) error {
	for _, name := range st.req.Snapshot[model.CategoryFootprint] {
		if err := st.footprint(ctx, name); err != nil {
			return eris.Wrapf(err, "partial: footprint %s", name)
		}
		if err := st.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (st *build) footprint(ctx context.Context, name string) error {
	u := st.constants.Units
	fp, err := st.loadVariant(ctx, model.CategoryFootprint, name)
	if err != nil {
		return err
	}
	area, err := st.area(ctx, fp)
	if err != nil {
		return err
	}
	area /= u.SquareKM
	if area <= 0 {
		st.omit(model.CategoryFootprint, name, "footprint has no area")
		return nil
	}

	expansion, err := st.engine.Overlay(ctx, fp, st.fpBase, geo.Difference)
	if err != nil {
		return err
	}
	expansionArea, err := st.area(ctx, expansion)
	if err != nil {
		return err
	}
	expansionArea /= u.SquareKM

	for _, v := range st.req.Snapshot[model.CategoryJobs] {
		jobs, err := st.loadVariant(ctx, model.CategoryJobs, v)
		if err != nil {
			return err
		}
		inside, err := st.engine.SpatialJoin(ctx, jobs, fp)
		if err != nil {
			return err
		}
		st.cache.Jobs.Put(Pair{A: name, B: v}, float64(inside.Len())/area)
	}

	remaining, err := st.engine.Overlay(ctx, st.vgBase, fp, geo.Difference)
	if err != nil {
		return err
	}
	remainingArea, err := st.area(ctx, remaining)
	if err != nil {
		return err
	}

	for _, level := range st.constants.Levels.Solar {
		st.cache.Solar.Put(Level{Variant: name, Level: level}, st.solar(area, level))
	}

	roads, err := st.engine.Overlay(ctx, st.roads, fp, geo.Intersection)
	if err != nil {
		return err
	}
	roadsLength, err := st.length(ctx, roads)
	if err != nil {
		return err
	}
	roadsLength /= u.KM
	lighting := roadsLength / st.a.Value(assumptions.DistanceBetweenLamps) * st.a.Value(assumptions.ConsumptionPerLamp)

	st.cache.Footprint.Put(name, Footprint{
		Area:                area,
		UrbanExpansion:      expansionArea,
		VegetationLoss:      st.cache.Base.VegetationArea - remainingArea/u.SquareKM,
		LightingConsumption: lighting,
		LightingCost:        lighting * st.a.Value(assumptions.CostPerKW),
		Maintenance:         area * st.a.Value(assumptions.ExpansionMaintenanceCost) * st.constants.HorizonYears() / u.Millions,
		Capital:             expansionArea * st.a.Value(assumptions.ExpansionCost),
	})
	return nil
}

// solar computes generation and cost with level percent of the footprint
// covered by panels.
func (st *build) solar(areaKM2, level float64) Solar {
	panelArea := areaKM2 * (level / 100) * st.constants.Units.SquareKM
	generation := st.a.Value(assumptions.SolarPanelFactor) * panelArea * st.a.Value(assumptions.SolarEnergy)
	capacity := generation / 1e6 / (st.a.Value(assumptions.MWCapacity) * 1000)
	gross := st.a.Value(assumptions.MWCost) * capacity
	return Solar{
		Generation:   generation,
		CapitalGross: gross,
		Capital:      st.a.Value(assumptions.PVIncentive) / 100 * gross,
	}
}

func (st *build) transits(ctx context.Context) error {
	u := st.constants.Units
	for _, name := range st.req.Snapshot[model.CategoryTransit] {
		tr, err := st.loadVariant(ctx, model.CategoryTransit, name)
		if err != nil {
			return eris.Wrapf(err, "partial: transit %s", name)
		}
		buf, err := st.layers.memo(fmt.Sprintf("linear|%s|%s", model.CategoryTransit, name), func() (*geo.Layer, error) {
			return st.engine.Buffer(ctx, tr, st.constants.Buffers.LinearAsset)
		})
		if err != nil {
			return err
		}
		bufArea, err := st.area(ctx, buf)
		if err != nil {
			return err
		}
		lineLength, err := st.length(ctx, tr)
		if err != nil {
			return err
		}

		added, err := st.engine.Overlay(ctx, buf, st.trBase, geo.Difference)
		if err != nil {
			return err
		}
		// Length of the remaining buffer pieces is their perimeter.
		addedLength, err := st.length(ctx, added)
		if err != nil {
			return err
		}
		catchment, err := st.engine.Buffer(ctx, added, st.constants.Buffers.NewTransit)
		if err != nil {
			return err
		}
		catchmentArea, err := st.area(ctx, catchment)
		if err != nil {
			return err
		}

		st.cache.Transit.Put(name, Transit{
			BufferArea:    bufArea / u.SquareKM,
			NewBufferArea: catchmentArea / u.SquareKM,
			Maintenance:   lineLength / u.KM * st.a.Value(assumptions.TransitMaintenanceCost) * st.constants.HorizonYears() / u.Millions,
			Capital:       addedLength / u.KM * st.a.Value(assumptions.TransitCost),
		})
		if err := st.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (st *build) permeables(ctx context.Context) error {
	for _, name := range st.req.Snapshot[model.CategoryPermeable] {
		l, err := st.loadVariant(ctx, model.CategoryPermeable, name)
		if err != nil {
			return eris.Wrapf(err, "partial: permeable %s", name)
		}
		a, err := st.area(ctx, l)
		if err != nil {
			return err
		}
		st.cache.Permeable.Put(name, a/st.constants.Units.SquareKM)
		if err := st.step(ctx); err != nil {
			return err
		}
	}
	return nil
}
