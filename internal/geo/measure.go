package geo

import "github.com/twpayne/go-geom"

// Area sums the planar area of every feature in layer units squared.
func Area(l *Layer) float64 {
	var total float64
	for _, f := range l.Features {
		total += area(f.Geometry)
	}
	return total
}

// Length sums the planar length of every feature in layer units. Polygons
// contribute their perimeter.
func Length(l *Layer) float64 {
	var total float64
	for _, f := range l.Features {
		total += length(f.Geometry)
	}
	return total
}

func area(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.Area()
	case *geom.MultiPolygon:
		return t.Area()
	case *geom.GeometryCollection:
		var sum float64
		for _, c := range t.Geoms() {
			sum += area(c)
		}
		return sum
	default:
		return 0
	}
}

func length(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.LineString:
		return t.Length()
	case *geom.MultiLineString:
		return t.Length()
	case *geom.LinearRing:
		return t.Length()
	case *geom.Polygon:
		return t.Length()
	case *geom.MultiPolygon:
		return t.Length()
	case *geom.GeometryCollection:
		var sum float64
		for _, c := range t.Geoms() {
			sum += length(c)
		}
		return sum
	default:
		return 0
	}
}
