package geo

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/urban-performance/internal/db"
)

// PostGIS runs geometry operations in a PostGIS database. Features travel
// as EWKB arrays; no tables are written.
type PostGIS struct {
	pool db.Pool
}

// NewPostGIS creates an engine over pool.
func NewPostGIS(pool db.Pool) *PostGIS {
	return &PostGIS{pool: pool}
}

var _ Engine = (*PostGIS)(nil)

const (
	inputA = `SELECT ord, ST_GeomFromEWKB(g) AS geom FROM unnest($1::bytea[]) WITH ORDINALITY AS t(g, ord)`
	inputB = `SELECT ord, ST_GeomFromEWKB(g) AS geom FROM unnest($2::bytea[]) WITH ORDINALITY AS t(g, ord)`

	reprojectSQL = `SELECT ord, ST_AsEWKB(ST_Transform(ST_SetSRID(geom, $2::int), $3::text))
FROM (` + inputA + `) a ORDER BY ord`

	bufferSQL = `SELECT ord, ST_AsEWKB(ST_Buffer(geom, $2::float8))
FROM (` + inputA + `) a ORDER BY ord`

	intersectionSQL = `WITH a AS (` + inputA + `), b AS (` + inputB + `)
SELECT a_ord, b_ord, ST_AsEWKB(g) FROM (
  SELECT a.ord AS a_ord, b.ord AS b_ord,
         ST_CollectionExtract(ST_Intersection(a.geom, b.geom), ST_Dimension(a.geom) + 1) AS g
  FROM a JOIN b ON ST_Intersects(a.geom, b.geom)
) x WHERE NOT ST_IsEmpty(g) ORDER BY a_ord, b_ord`

	differenceSQL = `WITH a AS (` + inputA + `), b AS (SELECT ST_Union(geom) AS geom FROM (` + inputB + `) s)
SELECT a_ord, 0::bigint, ST_AsEWKB(g) FROM (
  SELECT a.ord AS a_ord,
         ST_CollectionExtract(COALESCE(ST_Difference(a.geom, b.geom), a.geom), ST_Dimension(a.geom) + 1) AS g
  FROM a CROSS JOIN b
) x WHERE NOT ST_IsEmpty(g) ORDER BY a_ord`

	semiJoinSQL = `WITH a AS (` + inputA + `), b AS (` + inputB + `)
SELECT a.ord FROM a WHERE EXISTS (SELECT 1 FROM b WHERE ST_Intersects(a.geom, b.geom)) ORDER BY a.ord`

	dissolveSQL = `SELECT ST_AsEWKB(ST_Union(geom)) FROM (` + inputA + `) a`
)

// Reproject transforms l into target. EPSG targets keep their SRID; proj
// strings yield SRID 0.
func (p *PostGIS) Reproject(ctx context.Context, l *Layer, target string) (*Layer, error) {
	srid := 0
	if s, ok := parseCRSName(target); ok && strings.HasPrefix(strings.ToUpper(target), "EPSG:") {
		srid = s
	}
	if l.Empty() {
		return l.derive("reproject", srid, nil), nil
	}
	if l.SRID == 0 {
		return nil, opError("reproject", l, eris.New("source layer has no SRID"))
	}
	encoded, err := encodeLayer(l)
	if err != nil {
		return nil, opError("reproject", l, err)
	}
	geoms, err := p.queryOrdered(ctx, reprojectSQL, encoded, l.SRID, target)
	if err != nil {
		return nil, opError("reproject", l, err)
	}
	out := make([]Feature, len(l.Features))
	for i, f := range l.Features {
		out[i] = Feature{Geometry: geoms[i], Properties: f.Properties}
	}
	return l.derive("reproject", srid, out), nil
}

// Buffer grows every feature by distance.
func (p *PostGIS) Buffer(ctx context.Context, l *Layer, distance float64) (*Layer, error) {
	if l.Empty() {
		return l.derive("buffer", l.SRID, nil), nil
	}
	encoded, err := encodeLayer(l)
	if err != nil {
		return nil, opError("buffer", l, err)
	}
	geoms, err := p.queryOrdered(ctx, bufferSQL, encoded, distance)
	if err != nil {
		return nil, opError("buffer", l, err)
	}
	out := make([]Feature, len(l.Features))
	for i, f := range l.Features {
		out[i] = Feature{Geometry: geoms[i], Properties: f.Properties}
	}
	return l.derive("buffer", l.SRID, out), nil
}

// Overlay intersects or subtracts b from a.
func (p *PostGIS) Overlay(ctx context.Context, a, b *Layer, op OverlayOp) (*Layer, error) {
	name := string(op)
	var query string
	switch op {
	case Intersection:
		if a.Empty() || b.Empty() {
			return a.derive(name, a.SRID, nil), nil
		}
		query = intersectionSQL
	case Difference:
		if a.Empty() || b.Empty() {
			return a.derive(name, a.SRID, append([]Feature(nil), a.Features...)), nil
		}
		query = differenceSQL
	default:
		return nil, opError("overlay", a, eris.Errorf("unknown overlay op %q", op))
	}

	ea, err := encodeLayer(a)
	if err != nil {
		return nil, opError(name, a, err)
	}
	eb, err := encodeLayer(b)
	if err != nil {
		return nil, opError(name, b, err)
	}

	rows, err := p.pool.Query(ctx, query, ea, eb)
	if err != nil {
		return nil, opError(name, a, eris.Wrap(err, "query"))
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		var aOrd, bOrd int64
		var data []byte
		if err := rows.Scan(&aOrd, &bOrd, &data); err != nil {
			return nil, opError(name, a, eris.Wrap(err, "scan"))
		}
		g, err := decode(data)
		if err != nil {
			return nil, opError(name, a, err)
		}
		if aOrd < 1 || int(aOrd) > len(a.Features) {
			return nil, opError(name, a, eris.Errorf("ordinal %d out of range", aOrd))
		}
		props := a.Features[aOrd-1].Properties
		if op == Intersection && bOrd >= 1 && int(bOrd) <= len(b.Features) {
			props = mergeProps(props, b.Features[bOrd-1].Properties)
		}
		out = append(out, Feature{Geometry: g, Properties: props})
	}
	if err := rows.Err(); err != nil {
		return nil, opError(name, a, eris.Wrap(err, "rows"))
	}
	return a.derive(name, a.SRID, out), nil
}

// SpatialJoin keeps the features of left intersecting right.
func (p *PostGIS) SpatialJoin(ctx context.Context, left, right *Layer) (*Layer, error) {
	if left.Empty() || right.Empty() {
		return left.derive("sjoin", left.SRID, nil), nil
	}
	el, err := encodeLayer(left)
	if err != nil {
		return nil, opError("sjoin", left, err)
	}
	er, err := encodeLayer(right)
	if err != nil {
		return nil, opError("sjoin", right, err)
	}

	rows, err := p.pool.Query(ctx, semiJoinSQL, el, er)
	if err != nil {
		return nil, opError("sjoin", left, eris.Wrap(err, "query"))
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		var ord int64
		if err := rows.Scan(&ord); err != nil {
			return nil, opError("sjoin", left, eris.Wrap(err, "scan"))
		}
		if ord < 1 || int(ord) > len(left.Features) {
			return nil, opError("sjoin", left, eris.Errorf("ordinal %d out of range", ord))
		}
		out = append(out, left.Features[ord-1])
	}
	if err := rows.Err(); err != nil {
		return nil, opError("sjoin", left, eris.Wrap(err, "rows"))
	}
	return left.derive("sjoin", left.SRID, out), nil
}

// Dissolve unions all features into one without attributes.
func (p *PostGIS) Dissolve(ctx context.Context, l *Layer) (*Layer, error) {
	if l.Empty() {
		return l.derive("dissolve", l.SRID, nil), nil
	}
	encoded, err := encodeLayer(l)
	if err != nil {
		return nil, opError("dissolve", l, err)
	}
	var data []byte
	if err := p.pool.QueryRow(ctx, dissolveSQL, encoded).Scan(&data); err != nil {
		return nil, opError("dissolve", l, eris.Wrap(err, "query"))
	}
	g, err := decode(data)
	if err != nil {
		return nil, opError("dissolve", l, err)
	}
	return l.derive("dissolve", l.SRID, []Feature{{Geometry: g, Properties: map[string]any{}}}), nil
}

// Area measures locally; planar area in projected units matches ST_Area.
func (p *PostGIS) Area(_ context.Context, l *Layer) (float64, error) {
	return Area(l), nil
}

// Length measures locally.
func (p *PostGIS) Length(_ context.Context, l *Layer) (float64, error) {
	return Length(l), nil
}

// queryOrdered runs a per-feature transform returning (ord, ewkb) rows and
// checks that every input came back.
func (p *PostGIS) queryOrdered(ctx context.Context, query string, args ...any) ([]geom.T, error) {
	want := len(args[0].([][]byte))
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "query")
	}
	defer rows.Close()

	out := make([]geom.T, want)
	var got int
	for rows.Next() {
		var ord int64
		var data []byte
		if err := rows.Scan(&ord, &data); err != nil {
			return nil, eris.Wrap(err, "scan")
		}
		if ord < 1 || int(ord) > want {
			return nil, eris.Errorf("ordinal %d out of range", ord)
		}
		g, err := decode(data)
		if err != nil {
			return nil, err
		}
		out[ord-1] = g
		got++
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "rows")
	}
	if got != want {
		return nil, eris.Errorf("expected %d geometries, got %d", want, got)
	}
	return out, nil
}

func encodeLayer(l *Layer) ([][]byte, error) {
	out := make([][]byte, len(l.Features))
	for i, f := range l.Features {
		if f.Geometry == nil {
			return nil, eris.Errorf("feature %d has no geometry", i)
		}
		data, err := ewkb.Marshal(f.Geometry, ewkb.NDR)
		if err != nil {
			return nil, eris.Wrapf(err, "encode feature %d", i)
		}
		out[i] = data
	}
	return out, nil
}

func decode(data []byte) (geom.T, error) {
	if data == nil {
		return geom.NewGeometryCollection(), nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "decode EWKB")
	}
	return g, nil
}

func mergeProps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}
