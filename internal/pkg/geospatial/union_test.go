package geospatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func TestUnion_DisjointSquares(t *testing.T) {
	g, parts, err := Union([]orb.Geometry{square(0, 0, 1), square(3, 0, 1)})
	require.NoError(t, err)
	require.Equal(t, 2, parts)

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", g)
	assert.Len(t, mp, 2)
	assert.InDelta(t, 2.0, planar.Area(mp), 1e-9)
}

func TestUnion_OverlappingSquares(t *testing.T) {
	g, _, err := Union([]orb.Geometry{square(0, 0, 1), square(0.5, 0.5, 1)})
	require.NoError(t, err)

	poly, ok := g.(orb.Polygon)
	require.True(t, ok, "expected Polygon, got %T", g)
	assert.Len(t, poly, 1, "union of overlapping squares has no holes")
	// 1 + 1 - 0.25 overlap
	assert.InDelta(t, 1.75, planar.Area(poly), 1e-9)
	assert.Equal(t, orb.CCW, poly[0].Orientation())
	assert.Equal(t, poly[0][0], poly[0][len(poly[0])-1], "ring must be closed")
}

func TestUnion_MultiPolygonInput(t *testing.T) {
	mp := orb.MultiPolygon{square(0, 0, 1), square(0.5, 0.5, 1)}
	g, parts, err := Union([]orb.Geometry{mp, square(10, 10, 2)})
	require.NoError(t, err)
	require.Equal(t, 3, parts)

	out, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", g)
	assert.Len(t, out, 2)
	assert.InDelta(t, 1.75+4, planar.Area(out), 1e-9)
}

func TestUnion_IgnoresNonArealGeometry(t *testing.T) {
	g, parts, err := Union([]orb.Geometry{
		orb.Point{1, 1},
		orb.LineString{{0, 0}, {1, 1}},
		nil,
	})
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.Zero(t, parts)

	g, parts, err = Union([]orb.Geometry{orb.Point{5, 5}, square(0, 0, 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, parts)
	assert.InDelta(t, 4.0, planar.Area(g), 1e-9)
}

func TestUnion_EdgeSharingFloatGrid(t *testing.T) {
	const cell = 0.00017
	n := 20
	cells := make([]orb.Geometry, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cells = append(cells, square(9.123456+float64(i)*cell, 48.654321+float64(j)*cell, cell))
		}
	}

	g, parts, err := Union(cells)
	require.NoError(t, err)
	assert.Equal(t, n*n, parts)
	poly, ok := g.(orb.Polygon)
	require.True(t, ok, "expected Polygon, got %T", g)
	assert.Len(t, poly, 1)
	assert.InEpsilon(t, float64(n*n)*cell*cell, planar.Area(poly), 1e-6)
	assert.Equal(t, orb.CCW, poly[0].Orientation())
}

func TestUnion_RingWithHoleKeepsHole(t *testing.T) {
	frame := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {2, 8}, {8, 8}, {8, 2}, {2, 2}},
	}
	g, _, err := Union([]orb.Geometry{frame, square(20, 0, 1)})
	require.NoError(t, err)

	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", g)
	var holed orb.Polygon
	for _, p := range mp {
		if len(p) == 2 {
			holed = p
		}
	}
	require.NotNil(t, holed, "hole must survive the union")
	assert.Equal(t, orb.CW, holed[1].Orientation())
	assert.InDelta(t, 100.0-36.0+1.0, planar.Area(mp), 1e-9)
}
