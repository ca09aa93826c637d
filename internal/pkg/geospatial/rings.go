package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AssembleRings groups a flat list of closed rings into polygons by nesting
// depth: rings at even depth become shells, rings at odd depth become holes of
// the smallest shell enclosing them. A single shell yields an orb.Polygon,
// several an orb.MultiPolygon. Ring and vertex order are kept unless orient is
// set, in which case shells are made counter-clockwise and holes clockwise.
func AssembleRings(rings []orb.Ring, orient bool) orb.Geometry {
	n := len(rings)
	if n == 0 {
		return nil
	}

	areas := make([]float64, n)
	for i, r := range rings {
		areas[i] = math.Abs(planar.Area(r))
	}

	// parent[i] is the smallest ring enclosing ring i, or -1.
	depth := make([]int, n)
	parent := make([]int, n)
	for i := range rings {
		parent[i] = -1
		for j := range rings {
			if i == j || areas[i] >= areas[j] || !ringInside(rings[i], rings[j]) {
				continue
			}
			depth[i]++
			if parent[i] == -1 || areas[j] < areas[parent[i]] {
				parent[i] = j
			}
		}
	}

	shellIndex := make(map[int]int, n)
	var polygons []orb.Polygon
	for i, r := range rings {
		if depth[i]%2 != 0 && parent[i] != -1 {
			continue
		}
		if orient {
			r = oriented(r, orb.CCW)
		}
		shellIndex[i] = len(polygons)
		polygons = append(polygons, orb.Polygon{r})
	}
	for i, r := range rings {
		if depth[i]%2 == 0 || parent[i] == -1 {
			continue
		}
		idx, ok := shellIndex[parent[i]]
		if !ok {
			continue
		}
		if orient {
			r = oriented(r, orb.CW)
		}
		polygons[idx] = append(polygons[idx], r)
	}

	if len(polygons) == 1 {
		return polygons[0]
	}
	return orb.MultiPolygon(polygons)
}

// CloseRing appends the first vertex when the ring is open.
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

func oriented(r orb.Ring, want orb.Orientation) orb.Ring {
	if r.Orientation() == want {
		return r
	}
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// ringInside reports whether every vertex of inner lies in or on outer.
// Callers only test rings of smaller area, so equal rings never nest.
func ringInside(inner, outer orb.Ring) bool {
	for _, p := range inner {
		if !planar.RingContains(outer, p) {
			return false
		}
	}
	return true
}
