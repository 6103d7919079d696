package geo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// ReadLayer loads a GeoJSON or shapefile layer. The layer SRID comes from the
// file's declared CRS when present, otherwise defaultSRID. Features without
// geometry are dropped.
func ReadLayer(path string, defaultSRID int) (*Layer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return readGeoJSON(path, defaultSRID)
	case ".shp":
		return readShapefile(path, defaultSRID)
	default:
		return nil, eris.Errorf("geo: unsupported layer format %q", path)
	}
}

type crsMember struct {
	CRS *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func readGeoJSON(path string, defaultSRID int) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "geo: decode %s", path)
	}

	srid := defaultSRID
	var meta crsMember
	if err := json.Unmarshal(data, &meta); err == nil && meta.CRS != nil {
		if s, ok := parseCRSName(meta.CRS.Properties.Name); ok {
			srid = s
		}
	}

	layer := &Layer{Name: filepath.Base(path), SRID: srid, Features: make([]Feature, 0, len(fc.Features))}
	var skipped int
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		layer.Features = append(layer.Features, Feature{Geometry: withSRID(f.Geometry, srid), Properties: props})
	}
	logSkipped(layer.Name, skipped)
	return layer, nil
}

// parseCRSName understands OGC URNs and EPSG:n names.
func parseCRSName(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	if strings.HasSuffix(name, "CRS84") {
		return 4326, true
	}
	i := strings.LastIndexAny(name, ":")
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

var prjAuthority = regexp.MustCompile(`AUTHORITY\["EPSG",\s*"(\d+)"\]\]\s*$`)

func readShapefile(path string, defaultSRID int) (*Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	srid := defaultSRID
	if prj, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"); err == nil {
		if m := prjAuthority.FindSubmatch(prj); m != nil {
			if n, err := strconv.Atoi(string(m[1])); err == nil {
				srid = n
			}
		}
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	layer := &Layer{Name: filepath.Base(path), SRID: srid}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeom(shape, srid)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				props[name] = nil
				continue
			}
			props[name] = val
		}
		layer.Features = append(layer.Features, Feature{Geometry: g, Properties: props})
	}
	logSkipped(layer.Name, skipped)
	return layer, nil
}

func logSkipped(layer string, skipped int) {
	if skipped > 0 {
		zap.L().Debug("geo: skipped features without geometry",
			zap.String("layer", layer),
			zap.Int("skipped", skipped),
		)
	}
}

func shapeToGeom(shape shp.Shape, srid int) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(srid)
	case *shp.PolyLine:
		return polyLineToMultiLineString(s, srid)
	case *shp.Polygon:
		return polygonToMultiPolygon(s, srid)
	default:
		return nil
	}
}

// partRanges splits a shapefile point array at its part offsets.
func partRanges(parts []int32, numPoints int) [][2]int32 {
	out := make([][2]int32, len(parts))
	for i, start := range parts {
		end := int32(numPoints)
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		out[i] = [2]int32{start, end}
	}
	return out
}

func pointsFlat(pts []shp.Point, r [2]int32) []float64 {
	flat := make([]float64, 0, 2*(r[1]-r[0]))
	for j := r[0]; j < r[1]; j++ {
		flat = append(flat, pts[j].X, pts[j].Y)
	}
	return flat
}

func polyLineToMultiLineString(pl *shp.PolyLine, srid int) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}
	mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)
	for i, r := range partRanges(pl.Parts, len(pl.Points)) {
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, pointsFlat(pl.Points, r))); err != nil {
			zap.L().Debug("geo: skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon groups rings into polygons. Shapefile outer rings
// run clockwise; counter-clockwise rings are holes of the preceding shell.
func polygonToMultiPolygon(p *shp.Polygon, srid int) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("geo: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i, r := range partRanges(p.Parts, len(p.Points)) {
		flat := pointsFlat(p.Points, r)
		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if signedArea(flat) > 0 && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("geo: skipping malformed hole", zap.Int("part", i), zap.Error(err))
			}
			continue
		}
		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed ring", zap.Int("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}

func withSRID(g geom.T, srid int) geom.T {
	switch t := g.(type) {
	case *geom.Point:
		return t.SetSRID(srid)
	case *geom.MultiPoint:
		return t.SetSRID(srid)
	case *geom.LineString:
		return t.SetSRID(srid)
	case *geom.MultiLineString:
		return t.SetSRID(srid)
	case *geom.Polygon:
		return t.SetSRID(srid)
	case *geom.MultiPolygon:
		return t.SetSRID(srid)
	case *geom.GeometryCollection:
		return t.SetSRID(srid)
	default:
		return g
	}
}
