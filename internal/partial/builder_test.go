package partial

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/urban-performance/internal/assumptions"
	"github.com/sells-group/urban-performance/internal/catalog"
	"github.com/sells-group/urban-performance/internal/geo"
	"github.com/sells-group/urban-performance/internal/model"
)

// gridEngine approximates geometry on a 100×100 grid: polygons are the cells
// under their bounding box, points and lines the cells they touch. Line
// intersections keep whole lines.
type gridEngine struct {
	fail  string
	calls map[string]int
}

const cellSize = 100.0

type cell [2]int

func newGridEngine() *gridEngine {
	return &gridEngine{calls: map[string]int{}}
}

func pointCell(x, y float64) cell {
	return cell{int(math.Floor(x / cellSize)), int(math.Floor(y / cellSize))}
}

func cellsOf(g geom.T, into map[cell]bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		b := t.Bounds()
		for x := int(math.Floor(b.Min(0) / cellSize)); x < int(math.Ceil(b.Max(0)/cellSize)); x++ {
			for y := int(math.Floor(b.Min(1) / cellSize)); y < int(math.Ceil(b.Max(1)/cellSize)); y++ {
				into[cell{x, y}] = true
			}
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			cellsOf(t.Polygon(i), into)
		}
	case *geom.Point:
		into[pointCell(t.X(), t.Y())] = true
	case *geom.LineString:
		coords := t.Coords()
		for i := 1; i < len(coords); i++ {
			a, b := coords[i-1], coords[i]
			steps := int(math.Hypot(b[0]-a[0], b[1]-a[1])/10) + 1
			for s := 0; s <= steps; s++ {
				f := float64(s) / float64(steps)
				into[pointCell(a[0]+(b[0]-a[0])*f, a[1]+(b[1]-a[1])*f)] = true
			}
		}
	}
}

func featureCells(f geo.Feature) map[cell]bool {
	out := map[cell]bool{}
	cellsOf(f.Geometry, out)
	return out
}

func layerCells(l *geo.Layer) map[cell]bool {
	out := map[cell]bool{}
	for _, f := range l.Features {
		cellsOf(f.Geometry, out)
	}
	return out
}

func cellsGeom(cells map[cell]bool) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for c := range cells {
		x0, y0 := float64(c[0])*cellSize, float64(c[1])*cellSize
		p := geom.NewPolygonFlat(geom.XY, []float64{
			x0, y0, x0 + cellSize, y0, x0 + cellSize, y0 + cellSize, x0, y0 + cellSize, x0, y0,
		}, []int{10})
		if err := mp.Push(p); err != nil {
			panic(err)
		}
	}
	return mp
}

func overlaps(a, b map[cell]bool) bool {
	for c := range a {
		if b[c] {
			return true
		}
	}
	return false
}

func isLine(g geom.T) bool {
	switch g.(type) {
	case *geom.LineString, *geom.MultiLineString:
		return true
	}
	return false
}

func (e *gridEngine) enter(op string, l *geo.Layer) error {
	e.calls[op]++
	if e.fail == op {
		return &geo.OperationError{Op: op, Layer: l.Name, Err: errors.New("invalid geometry")}
	}
	return nil
}

func (e *gridEngine) Reproject(_ context.Context, l *geo.Layer, _ string) (*geo.Layer, error) {
	if err := e.enter("reproject", l); err != nil {
		return nil, err
	}
	return &geo.Layer{Name: l.Name, Features: l.Features}, nil
}

func (e *gridEngine) Buffer(_ context.Context, l *geo.Layer, distance float64) (*geo.Layer, error) {
	if err := e.enter("buffer", l); err != nil {
		return nil, err
	}
	k := int(math.Ceil(distance / cellSize))
	out := &geo.Layer{Name: l.Name + "_buffer"}
	for _, f := range l.Features {
		grown := map[cell]bool{}
		for c := range featureCells(f) {
			for dx := -k; dx <= k; dx++ {
				for dy := -k; dy <= k; dy++ {
					grown[cell{c[0] + dx, c[1] + dy}] = true
				}
			}
		}
		out.Features = append(out.Features, geo.Feature{Geometry: cellsGeom(grown), Properties: f.Properties})
	}
	return out, nil
}

func (e *gridEngine) Overlay(_ context.Context, a, b *geo.Layer, op geo.OverlayOp) (*geo.Layer, error) {
	if err := e.enter("overlay", a); err != nil {
		return nil, err
	}
	out := &geo.Layer{Name: a.Name + "_" + string(op)}
	union := layerCells(b)
	for _, fa := range a.Features {
		ca := featureCells(fa)
		switch {
		case op == geo.Difference:
			rest := map[cell]bool{}
			for c := range ca {
				if !union[c] {
					rest[c] = true
				}
			}
			if len(rest) > 0 {
				out.Features = append(out.Features, geo.Feature{Geometry: cellsGeom(rest), Properties: fa.Properties})
			}
		case isLine(fa.Geometry):
			if overlaps(ca, union) {
				out.Features = append(out.Features, fa)
			}
		default:
			for _, fb := range b.Features {
				common := map[cell]bool{}
				for c := range featureCells(fb) {
					if ca[c] {
						common[c] = true
					}
				}
				if len(common) == 0 {
					continue
				}
				props := map[string]any{}
				for k, v := range fb.Properties {
					props[k] = v
				}
				for k, v := range fa.Properties {
					props[k] = v
				}
				out.Features = append(out.Features, geo.Feature{Geometry: cellsGeom(common), Properties: props})
			}
		}
	}
	return out, nil
}

func (e *gridEngine) SpatialJoin(_ context.Context, left, right *geo.Layer) (*geo.Layer, error) {
	if err := e.enter("sjoin", left); err != nil {
		return nil, err
	}
	union := layerCells(right)
	out := &geo.Layer{Name: left.Name}
	for _, f := range left.Features {
		if overlaps(featureCells(f), union) {
			out.Features = append(out.Features, f)
		}
	}
	return out, nil
}

func (e *gridEngine) Dissolve(_ context.Context, l *geo.Layer) (*geo.Layer, error) {
	if err := e.enter("dissolve", l); err != nil {
		return nil, err
	}
	return &geo.Layer{Name: l.Name, Features: []geo.Feature{{Geometry: cellsGeom(layerCells(l))}}}, nil
}

func (e *gridEngine) Area(_ context.Context, l *geo.Layer) (float64, error) {
	return geo.Area(l), nil
}

func (e *gridEngine) Length(_ context.Context, l *geo.Layer) (float64, error) {
	return geo.Length(l), nil
}

func rect(x0, y0, x1, y1 float64, props map[string]any) geo.Feature {
	return geo.Feature{
		Geometry:   geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}, []int{10}),
		Properties: props,
	}
}

func point(x, y float64) geo.Feature {
	return geo.Feature{Geometry: geom.NewPointFlat(geom.XY, []float64{x, y}), Properties: map[string]any{}}
}

func line(x0, y0, x1, y1 float64) geo.Feature {
	return geo.Feature{Geometry: geom.NewLineStringFlat(geom.XY, []float64{x0, y0, x1, y1}), Properties: map[string]any{}}
}

func layer(name string, features ...geo.Feature) *geo.Layer {
	return &geo.Layer{Name: name, SRID: 4326, Features: features}
}

type fixture struct {
	cat    *catalog.Catalog
	files  map[string]*geo.Layer
	snap   catalog.Snapshot
	engine *gridEngine
}

const projectID = "proj-1"

// newFixture lays out a 1 km² city: base population and footprint on
// [0,1000]², hazard on the bottom 300 m, vegetation east of the city.
func newFixture() *fixture {
	fx := &fixture{
		cat:    catalog.New("/media"),
		files:  map[string]*geo.Layer{},
		snap:   catalog.Snapshot{},
		engine: newGridEngine(),
	}
	base := map[model.BaseLayer]*geo.Layer{
		model.BasePopulation: layer("pop_base", rect(0, 0, 1000, 1000, map[string]any{"Pop_total": 5000.0})),
		model.BaseFootprint:  layer("fp_base", rect(0, 0, 1000, 1000, nil)),
		model.BaseTransit:    layer("tr_base", line(50, 550, 950, 550)),
		model.BaseGreenAreas: layer("ga_base", rect(0, 0, 200, 200, nil)),
		model.BaseSports:     layer("sp_base", point(550, 550)),
		model.BaseHospitals:  layer("hp_base", point(150, 150)),
		model.BaseSchools:    layer("sc_base", point(150, 150), point(450, 450)),
		model.BaseClinics:    layer("cl_base"),
		model.BaseDaycare:    layer("dc_base", point(750, 750)),
		model.BaseVegetation: layer("vg_base", rect(1000, 0, 1500, 1000, nil)),
		model.BaseRoads:      layer("roads", line(150, 150, 950, 150)),
		model.HazardFlooding: layer("hazard", rect(0, 0, 1000, 300, nil)),
	}
	for bl, l := range base {
		fx.files[fx.cat.BasePath(projectID, bl)] = l
	}

	fx.variant(model.CategoryPopulation, "pop_v1.geojson", layer("pop_v1", rect(0, 0, 1000, 1000, map[string]any{
		"Pop_total": 10000.0, "Media_hu": 50.0, "Popular_hu": 30.0, "Residencial_hu": 20.0,
	})))
	fx.variant(model.CategoryPopulation, "pop_zero.geojson", layer("pop_zero", rect(0, 0, 1000, 1000, map[string]any{
		"Pop_total": 0.0, "Media_hu": 0.0, "Popular_hu": 0.0, "Residencial_hu": 0.0,
	})))
	fx.variant(model.CategoryFootprint, "fp_v1.geojson", layer("fp_v1", rect(0, 0, 1500, 1000, nil)))
	fx.variant(model.CategoryTransit, "tr_v1.geojson", layer("tr_v1", line(50, 550, 950, 550), line(1050, 50, 1050, 950)))
	fx.variant(model.CategoryNBS, "nbs_v1.geojson", layer("nbs_v1", rect(0, 0, 1000, 100, nil)))
	fx.variant(model.CategoryHospitals, "hp_v1.geojson", layer("hp_v1", point(150, 150), point(850, 850)))
	fx.variant(model.CategorySchools, "sc_v1.geojson", layer("sc_v1", point(150, 550)))
	fx.variant(model.CategorySports, "sp_v1.geojson", layer("sp_v1", point(550, 550)))
	fx.variant(model.CategoryClinics, "cl_v1.geojson", layer("cl_v1", point(550, 550)))
	fx.variant(model.CategoryDaycare, "dc_v1.geojson", layer("dc_v1", point(750, 750)))
	fx.variant(model.CategoryGreenAreas, "ga_v1.geojson", layer("ga_v1", rect(0, 0, 200, 200, nil)))
	fx.variant(model.CategoryInfrastructure, "in_v1.geojson", layer("in_v1", line(50, 150, 950, 150)))
	fx.variant(model.CategoryJobs, "jb_v1.geojson", layer("jb_v1", point(10, 10), point(1200, 500), point(500, 500), point(5000, 5000)))
	fx.variant(model.CategoryPermeable, "pm_v1.geojson", layer("pm_v1", rect(0, 0, 500, 200, nil)))
	return fx
}

func (fx *fixture) variant(c model.Category, name string, l *geo.Layer) {
	fx.files[fx.cat.VariantPath(projectID, c, name)] = l
	fx.snap[c] = append(fx.snap[c], name)
}

func (fx *fixture) builder() *Builder {
	b := NewBuilder(fx.engine, fx.cat, model.MustDefaultConstants(), 4326)
	b.read = func(path string, _ int) (*geo.Layer, error) {
		l, ok := fx.files[path]
		if !ok {
			return nil, errors.New("no such file: " + path)
		}
		return l, nil
	}
	return b
}

func ones() assumptions.Table {
	t := make(assumptions.Table, len(assumptions.Required))
	for _, code := range assumptions.Required {
		t[code] = 1
	}
	return t
}

func buildFixture(t *testing.T, fx *fixture) (*Cache, []int) {
	t.Helper()
	var progress []int
	cache, err := fx.builder().Build(context.Background(), Request{
		ProjectID:   projectID,
		Generation:  "gen-1",
		Assumptions: ones(),
		Snapshot:    fx.snap,
		Progress: func(_ context.Context, p int) error {
			progress = append(progress, p)
			return nil
		},
	})
	require.NoError(t, err)
	return cache, progress
}

func TestBuild_Base(t *testing.T) {
	t.Parallel()
	cache, _ := buildFixture(t, newFixture())

	b := cache.Base
	assert.Equal(t, 5000.0, b.Population)
	assert.InDelta(t, 1.0, b.FootprintArea, 1e-9)
	assert.InDelta(t, 5000.0, b.Density, 1e-9)
	assert.InDelta(t, 0.8, b.RoadsLength, 1e-9)
	assert.InDelta(t, 0.8, b.RoadsDensity, 1e-9)
	assert.InDelta(t, 0.04, b.GreenArea, 1e-9)
	assert.InDelta(t, 0.5, b.VegetationArea, 1e-9)
	assert.Equal(t, 2, b.AmenityCount[model.CategorySchools])
	assert.Equal(t, 0, b.AmenityCount[model.CategoryClinics])
	// One point grown by five cells each way: 11×11 hectares.
	assert.InDelta(t, 1.21, b.AmenityBufferArea[model.CategoryHospitals], 1e-9)
	assert.Equal(t, "2025.1", cache.ConstantsVersion)
	assert.Equal(t, "gen-1", cache.Generation)
}

func TestBuild_PopulationAndHousing(t *testing.T) {
	t.Parallel()
	cache, _ := buildFixture(t, newFixture())

	pop, err := cache.Population.Get("pop_v1.geojson")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, pop.Pop2050)
	assert.InDelta(t, 50.0, pop.MediaShare, 1e-9)
	assert.InDelta(t, 30.0, pop.PopularShare, 1e-9)
	assert.InDelta(t, 20.0, pop.ResidentialShare, 1e-9)

	w0, err := cache.Water.Get(Level{Variant: "pop_v1.geojson", Level: 0})
	require.NoError(t, err)
	w50, err := cache.Water.Get(Level{Variant: "pop_v1.geojson", Level: 50})
	require.NoError(t, err)
	assert.InDelta(t, 100.0*4*1000/(10000*365), w0.Consumption, 1e-12)
	assert.InDelta(t, 100.0, w0.Energy, 1e-9)
	assert.InDelta(t, 50.0, w50.Energy, 1e-9)
}

func TestBuild_OmitsEmptyPopulation(t *testing.T) {
	t.Parallel()
	cache, _ := buildFixture(t, newFixture())

	_, err := cache.Population.Get("pop_zero.geojson")
	var miss *LookupMissError
	require.True(t, errors.As(err, &miss))

	require.Len(t, cache.Omitted, 1)
	assert.Equal(t, model.CategoryPopulation, cache.Omitted[0].Category)
	assert.Equal(t, "pop_zero.geojson", cache.Omitted[0].Variant)
}

func TestBuild_Hazard(t *testing.T) {
	t.Parallel()
	cache, _ := buildFixture(t, newFixture())

	// Hazard covers rows 0-2; the nbs removes row 0.
	hz, err := cache.Hazard.Get(Pair{A: "pop_v1.geojson", B: "nbs_v1.geojson"})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, hz.ExposedArea, 1e-9)
	assert.InDelta(t, 2000.0, hz.ExposedPop, 1e-9)
	assert.InDelta(t, 20.0, hz.PcExposedPop, 1e-9)
	assert.InDelta(t, 0.1, hz.NBSCapital, 1e-9)
	assert.InDelta(t, 2000.0, hz.Reconstruction, 1e-9)

	key := func(c model.Category, v string) Asset {
		return Asset{Population: "pop_v1.geojson", NBS: "nbs_v1.geojson", Category: c, Variant: v}
	}
	hp, err := cache.Exposure.Get(key(model.CategoryHospitals, "hp_v1.geojson"))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, hp, 1e-9)

	sc, err := cache.Exposure.Get(key(model.CategorySchools, "sc_v1.geojson"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, sc)

	// Infrastructure line on row 1 buffers to 12×3 cells; 20 lie in rows 1-2.
	in, err := cache.Exposure.Get(key(model.CategoryInfrastructure, "in_v1.geojson"))
	require.NoError(t, err)
	assert.InDelta(t, 100.0*20/36, in, 1e-9)
}

func TestBuild_Accessibility(t *testing.T) {
	t.Parallel()
	f := newFixture()
	cache, _ := buildFixture(t, f)

	variants := map[model.Category]string{
		model.CategoryHospitals: "hp_v1.geojson",
		model.CategorySchools:   "sc_v1.geojson",
		model.CategorySports:    "sp_v1.geojson",
		model.CategoryClinics:   "cl_v1.geojson",
		model.CategoryDaycare:   "dc_v1.geojson",
	}
	for c, v := range variants {
		pct, err := cache.Access.Get(Access{Population: "pop_v1.geojson", Category: c, Variant: v})
		require.NoError(t, err, c)
		assert.InDelta(t, 100.0, pct, 1e-9, c)
	}

	ga, err := cache.GreenAreas.Get(Pair{A: "pop_v1.geojson", B: "ga_v1.geojson"})
	require.NoError(t, err)
	assert.InDelta(t, 0.04, ga.Area, 1e-9)
	assert.InDelta(t, 4.0, ga.PerCapita, 1e-9)
	assert.InDelta(t, 100.0, ga.PcAccess, 1e-9)
	assert.InDelta(t, 0.04*1e6, ga.Capital, 1e-6)

	// Walk zones are buffered and dissolved once per amenity variant.
	assert.Equal(t, 6, f.engine.calls["dissolve"])
}

func TestBuild_Footprint(t *testing.T) {
	t.Parallel()
	cache, _ := buildFixture(t, newFixture())

	fp, err := cache.Footprint.Get("fp_v1.geojson")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, fp.Area, 1e-9)
	assert.InDelta(t, 0.5, fp.UrbanExpansion, 1e-9)
	assert.InDelta(t, 0.5, fp.VegetationLoss, 1e-9)
	assert.InDelta(t, 0.8, fp.LightingConsumption, 1e-9)
	assert.InDelta(t, 0.8, fp.LightingCost, 1e-9)
	assert.InDelta(t, 1.5*25/1e6, fp.Maintenance, 1e-15)
	assert.InDelta(t, 0.5, fp.Capital, 1e-9)

	jobs, err := cache.Jobs.Get(Pair{A: "fp_v1.geojson", B: "jb_v1.geojson"})
	require.NoError(t, err)
	assert.InDelta(t, 3/1.5, jobs, 1e-9)

	for _, level := range []float64{0, 8.4, 5} {
		_, err := cache.Solar.Get(Level{Variant: "fp_v1.geojson", Level: level})
		assert.NoError(t, err, level)
	}
	zero, err := cache.Solar.Get(Level{Variant: "fp_v1.geojson", Level: 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero.Generation)
}

func TestBuild_AmenitiesTransitPermeable(t *testing.T) {
	t.Parallel()
	cache, _ := buildFixture(t, newFixture())

	hp, err := cache.Amenities.Get(AmenityKey{Category: model.CategoryHospitals, Variant: "hp_v1.geojson"})
	require.NoError(t, err)
	assert.Equal(t, Amenity{Total: 2, New: 1, Capital: 1, Maintenance: 2}, hp)

	sc, err := cache.Amenities.Get(AmenityKey{Category: model.CategorySchools, Variant: "sc_v1.geojson"})
	require.NoError(t, err)
	assert.Equal(t, -1, sc.New)

	tr, err := cache.Transit.Get("tr_v1.geojson")
	require.NoError(t, err)
	assert.InDelta(t, 1.8*25/1e6, tr.Maintenance, 1e-15)
	assert.Greater(t, tr.Capital, 0.0)
	assert.Greater(t, tr.NewBufferArea, 0.0)

	pm, err := cache.Permeable.Get("pm_v1.geojson")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, pm, 1e-9)
}

func TestBuild_Progress(t *testing.T) {
	t.Parallel()
	_, progress := buildFixture(t, newFixture())

	require.NotEmpty(t, progress)
	assert.Equal(t, ProgressStart, progress[0])
	assert.Equal(t, ProgressBaseLoaded, progress[1])
	assert.Equal(t, ProgressBuilt, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestBuild_GeometryErrorAborts(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.engine.fail = "dissolve"

	_, err := f.builder().Build(context.Background(), Request{
		ProjectID: projectID, Generation: "gen-1", Assumptions: ones(), Snapshot: f.snap,
	})
	require.Error(t, err)
	var opErr *geo.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "dissolve", opErr.Op)
}

func TestBuild_ProgressErrorStops(t *testing.T) {
	t.Parallel()
	f := newFixture()
	stop := errors.New("superseded")

	_, err := f.builder().Build(context.Background(), Request{
		ProjectID: projectID, Generation: "gen-1", Assumptions: ones(), Snapshot: f.snap,
		Progress: func(_ context.Context, p int) error {
			if p >= ProgressBaseLoaded {
				return stop
			}
			return nil
		},
	})
	assert.ErrorIs(t, err, stop)
}
