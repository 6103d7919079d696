// Package geo reads project layers and exposes the geometry primitives the
// partial-results builder relies on. Heavy operations run in PostGIS; areas
// and lengths are measured locally with go-geom in the layer's units.
package geo

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Feature is one geometry with its attribute record.
type Feature struct {
	Geometry   geom.T
	Properties map[string]any
}

// Float returns a numeric attribute. Strings holding numbers (shapefile
// attributes) are parsed.
func (f Feature) Float(key string) (float64, bool) {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// With returns a copy of f with one attribute set.
func (f Feature) With(key string, value any) Feature {
	props := make(map[string]any, len(f.Properties)+1)
	maps.Copy(props, f.Properties)
	props[key] = value
	return Feature{Geometry: f.Geometry, Properties: props}
}

// Layer is an ordered feature collection in a single coordinate system.
// SRID 0 means a custom projection applied through Reproject.
type Layer struct {
	Name     string
	SRID     int
	Features []Feature
}

// Len returns the number of features.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Features)
}

// Empty reports whether the layer has no features.
func (l *Layer) Empty() bool {
	return l.Len() == 0
}

// Sum adds a numeric attribute over all features. Features lacking the
// attribute contribute nothing; a non-numeric value is an error.
func (l *Layer) Sum(key string) (float64, error) {
	var total float64
	for i, f := range l.Features {
		v, present := f.Properties[key]
		if !present || v == nil {
			continue
		}
		n, ok := f.Float(key)
		if !ok {
			return 0, eris.Errorf("geo: layer %s feature %d: %s is not numeric (%v)", l.Name, i, key, v)
		}
		total += n
	}
	return total, nil
}

// derive builds a layer named after its source with the given features.
func (l *Layer) derive(op string, srid int, features []Feature) *Layer {
	return &Layer{Name: l.Name + "|" + op, SRID: srid, Features: features}
}
