package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const populationGeoJSON = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::32614"}},
  "features": [
    {"type": "Feature", "properties": {"Pop_total": 120.4, "name": "a"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[100,0],[100,100],[0,100],[0,0]]]}},
    {"type": "Feature", "properties": {"Pop_total": "79.6"},
     "geometry": {"type": "Polygon", "coordinates": [[[100,0],[200,0],[200,100],[100,100],[100,0]]]}}
  ]
}`

func TestReadLayer_GeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.geojson")
	require.NoError(t, os.WriteFile(path, []byte(populationGeoJSON), 0o644))

	l, err := ReadLayer(path, 4326)
	require.NoError(t, err)
	assert.Equal(t, "pop.geojson", l.Name)
	assert.Equal(t, 32614, l.SRID)
	require.Equal(t, 2, l.Len())

	total, err := l.Sum("Pop_total")
	require.NoError(t, err)
	assert.InDelta(t, 200.0, total, 1e-9)
	assert.InDelta(t, 20000.0, Area(l), 1e-9)
	assert.Equal(t, 32614, l.Features[0].Geometry.SRID())
}

func TestReadLayer_GeoJSONDefaultSRID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pts.geojson")
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	l, err := ReadLayer(path, 4326)
	require.NoError(t, err)
	assert.Equal(t, 4326, l.SRID)
	assert.Equal(t, 1, l.Len())
}

func TestReadLayer_Unsupported(t *testing.T) {
	_, err := ReadLayer("layer.kml", 4326)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported layer format")
}

func TestReadLayer_Shapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprint.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.FloatField("Pop_total", 12, 2)}))

	// Clockwise shell with a counter-clockwise hole.
	shell := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4}, {X: 2, Y: 2}}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{shell, hole}))
	n := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(n), 0, 42.5))
	w.Close()

	l, err := ReadLayer(path, 32614)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, 32614, l.SRID)

	mp, ok := l.Features[0].Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.InDelta(t, 96.0, Area(l), 1e-9)

	v, ok := l.Features[0].Float("Pop_total")
	require.True(t, ok)
	assert.InDelta(t, 42.5, v, 1e-9)
}

func TestParseCRSName(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"urn:ogc:def:crs:OGC:1.3:CRS84", 4326, true},
		{"urn:ogc:def:crs:EPSG::6372", 6372, true},
		{"EPSG:4326", 4326, true},
		{"", 0, false},
		{"mollweide", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCRSName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeatureFloatAndWith(t *testing.T) {
	f := Feature{Properties: map[string]any{"a": 1, "b": "x", "c": nil}}

	v, ok := f.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = f.Float("b")
	assert.False(t, ok)
	_, ok = f.Float("c")
	assert.False(t, ok)

	g := f.With("d", 2.5)
	assert.NotContains(t, f.Properties, "d")
	assert.Equal(t, 2.5, g.Properties["d"])
}

func TestLayerSum_NonNumeric(t *testing.T) {
	l := &Layer{Name: "pop", Features: []Feature{{Properties: map[string]any{"Pop_total": "many"}}}}
	_, err := l.Sum("Pop_total")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not numeric")
}

func TestMeasures(t *testing.T) {
	square := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
	line := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 3, 4})
	pt := geom.NewPointFlat(geom.XY, []float64{1, 1})

	l := &Layer{Features: []Feature{{Geometry: square}, {Geometry: line}, {Geometry: pt}}}
	assert.InDelta(t, 100.0, Area(l), 1e-9)
	assert.InDelta(t, 45.0, Length(l), 1e-9)
}
