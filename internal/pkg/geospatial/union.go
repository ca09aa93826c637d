package geospatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/peterstace/simplefeatures/geom"
)

// Union merges the areal parts of geoms into the minimal set of polygons
// covering their combined area. Points and lines have no area and are
// ignored. The second return value is the number of polygons that took part;
// when it is zero the geometry is nil. Shells of the result run
// counter-clockwise and holes clockwise.
func Union(geoms []orb.Geometry) (orb.Geometry, int, error) {
	var input orb.Collection
	for _, g := range geoms {
		for _, poly := range polygonsOf(g) {
			closed := make(orb.Polygon, 0, len(poly))
			for _, r := range poly {
				closed = append(closed, CloseRing(r))
			}
			if len(closed[0]) < 4 {
				continue
			}
			input = append(input, closed)
		}
	}
	if len(input) == 0 {
		return nil, 0, nil
	}

	// A collection rather than a MultiPolygon: plan cells share edges, which
	// a MultiPolygon does not allow.
	data, err := wkb.Marshal(input)
	if err != nil {
		return nil, 0, fmt.Errorf("encode polygons: %w", err)
	}
	g, err := geom.UnmarshalWKB(data)
	if err != nil {
		return nil, 0, fmt.Errorf("polygons are not valid: %w", err)
	}
	merged, err := geom.UnaryUnion(g)
	if err != nil {
		return nil, 0, fmt.Errorf("union of %d polygons: %w", len(input), err)
	}
	out, err := wkb.Unmarshal(merged.AsBinary())
	if err != nil {
		return nil, 0, fmt.Errorf("decode union: %w", err)
	}

	polys := orientPolygons(polygonsOf(out))
	switch len(polys) {
	case 0:
		return nil, len(input), nil
	case 1:
		return polys[0], len(input), nil
	}
	return orb.MultiPolygon(polys), len(input), nil
}

// polygonsOf returns the non-empty polygons making up g; non-areal kinds
// yield none.
func polygonsOf(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return nil
		}
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		out := make([]orb.Polygon, 0, len(g))
		for _, p := range g {
			out = append(out, polygonsOf(p)...)
		}
		return out
	case orb.Collection:
		var out []orb.Polygon
		for _, c := range g {
			out = append(out, polygonsOf(c)...)
		}
		return out
	default:
		return nil
	}
}

func orientPolygons(polys []orb.Polygon) []orb.Polygon {
	for _, p := range polys {
		for i, r := range p {
			if i == 0 {
				p[i] = oriented(CloseRing(r), orb.CCW)
			} else {
				p[i] = oriented(CloseRing(r), orb.CW)
			}
		}
	}
	return polys
}
