package geo

import (
	"context"
	"fmt"
)

// OverlayOp selects the set operation of Overlay.
type OverlayOp string

const (
	Intersection OverlayOp = "intersection"
	Difference   OverlayOp = "difference"
)

// Engine is the set of geometry primitives behind partial-result
// construction. Inputs must share a coordinate system; distances, areas and
// lengths are in that system's units.
type Engine interface {
	// Reproject transforms every feature to the target projection (a proj
	// string or "EPSG:n").
	Reproject(ctx context.Context, l *Layer, target string) (*Layer, error)
	// Buffer grows every feature by distance, keeping attributes.
	Buffer(ctx context.Context, l *Layer, distance float64) (*Layer, error)
	// Overlay intersects feature pairs (attributes merged, left wins) or
	// subtracts the union of b from each feature of a. Results keep the
	// geometry dimension of a; empty pieces are dropped.
	Overlay(ctx context.Context, a, b *Layer, op OverlayOp) (*Layer, error)
	// SpatialJoin keeps the features of left intersecting any feature of
	// right. Each left feature appears at most once.
	SpatialJoin(ctx context.Context, left, right *Layer) (*Layer, error)
	// Dissolve unions all features into one.
	Dissolve(ctx context.Context, l *Layer) (*Layer, error)
	// Area sums feature areas.
	Area(ctx context.Context, l *Layer) (float64, error)
	// Length sums feature lengths; polygons contribute their perimeter.
	Length(ctx context.Context, l *Layer) (float64, error)
}

// OperationError reports a failed geometry operation on a named layer.
type OperationError struct {
	Op    string
	Layer string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("geo: %s %s: %v", e.Op, e.Layer, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func opError(op string, l *Layer, err error) error {
	name := ""
	if l != nil {
		name = l.Name
	}
	return &OperationError{Op: op, Layer: name, Err: err}
}
