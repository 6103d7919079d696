package partial

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urban-performance/internal/geo"
)

// layerSet reads and reprojects each file once per build. Derived layers
// reused across variants (buffers, dissolves) are memoized under a key.
type layerSet struct {
	engine     geo.Engine
	projection string
	srid       int
	read       func(path string, srid int) (*geo.Layer, error)

	files   map[string]*geo.Layer
	derived map[string]*geo.Layer
}

func newLayerSet(engine geo.Engine, projection string, srid int) *layerSet {
	return &layerSet{
		engine:     engine,
		projection: projection,
		srid:       srid,
		read:       geo.ReadLayer,
		files:      make(map[string]*geo.Layer),
		derived:    make(map[string]*geo.Layer),
	}
}

// load returns the projected layer stored at path.
func (ls *layerSet) load(ctx context.Context, path string) (*geo.Layer, error) {
	if l, ok := ls.files[path]; ok {
		return l, nil
	}
	raw, err := ls.read(path, ls.srid)
	if err != nil {
		return nil, eris.Wrapf(err, "partial: read layer %s", path)
	}
	projected, err := ls.engine.Reproject(ctx, raw, ls.projection)
	if err != nil {
		return nil, err
	}
	projected.Name = raw.Name
	ls.files[path] = projected
	return projected, nil
}

// memo returns the layer cached under key, computing it on first use.
func (ls *layerSet) memo(key string, fn func() (*geo.Layer, error)) (*geo.Layer, error) {
	if l, ok := ls.derived[key]; ok {
		return l, nil
	}
	l, err := fn()
	if err != nil {
		return nil, err
	}
	ls.derived[key] = l
	return l, nil
}
