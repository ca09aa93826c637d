package usecases_test

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/usecases"
)

func TestSynthesizeBoundary_DisjointSquares(t *testing.T) {
	plan := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "rate", 10),
		feature(square(2, 0, 1), "rate", 20),
	)

	fc, err := usecases.SynthesizeBoundary(plan)
	require.NoError(t, err)
	require.Equal(t, 1, fc.Len())
	assert.Empty(t, fc.Features[0].Properties)

	mp, ok := fc.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", fc.Features[0].Geometry)
	assert.Len(t, mp, 2)
}

func TestSynthesizeBoundary_OverlappingSquares(t *testing.T) {
	plan := domain.NewFeatureCollection(
		feature(square(0, 0, 1)),
		feature(square(0.5, 0.5, 1)),
	)

	fc, err := usecases.SynthesizeBoundary(plan)
	require.NoError(t, err)

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok, "expected Polygon, got %T", fc.Features[0].Geometry)
	assert.InDelta(t, 2-0.25, planar.Area(poly), 1e-9)
}

func TestSynthesizeBoundary_AdjacentCellsMerge(t *testing.T) {
	plan := domain.NewFeatureCollection(
		feature(square(0, 0, 1)),
		feature(square(1, 0, 1)),
		feature(square(0, 1, 1)),
		feature(square(1, 1, 1)),
	)

	fc, err := usecases.SynthesizeBoundary(plan)
	require.NoError(t, err)

	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok, "expected Polygon, got %T", fc.Features[0].Geometry)
	assert.Len(t, poly, 1)
	assert.InDelta(t, 4.0, planar.Area(poly), 1e-9)
}

func TestSynthesizeBoundary_FloatGridMergesIntoOnePolygon(t *testing.T) {
	const cell = 0.00017
	for _, n := range []int{3, 10, 20} {
		var features []domain.Feature
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				features = append(features, feature(square(9.123456+float64(i)*cell, 48.654321+float64(j)*cell, cell), "rate", i+j))
			}
		}

		fc, err := usecases.SynthesizeBoundary(domain.NewFeatureCollection(features...))
		require.NoError(t, err, "n=%d", n)
		poly, ok := fc.Features[0].Geometry.(orb.Polygon)
		require.True(t, ok, "n=%d: expected Polygon, got %T", n, fc.Features[0].Geometry)
		assert.Len(t, poly, 1, "n=%d: a full grid has no holes", n)
		want := float64(n*n) * cell * cell
		assert.InEpsilon(t, want, planar.Area(poly), 1e-6, "n=%d", n)
	}
}

func TestSynthesizeBoundary_EmptyPlan(t *testing.T) {
	_, err := usecases.SynthesizeBoundary(domain.NewFeatureCollection())
	if !errors.Is(err, domain.ErrEmptyPlan) {
		t.Fatalf("expected ErrEmptyPlan, got %v", err)
	}
	_, err = usecases.SynthesizeBoundary(nil)
	if !errors.Is(err, domain.ErrEmptyPlan) {
		t.Fatalf("expected ErrEmptyPlan for nil plan, got %v", err)
	}
}

func TestSynthesizeBoundary_NoArealGeometry(t *testing.T) {
	plan := domain.NewFeatureCollection(
		feature(orb.Point{1, 1}, "rate", 5),
		feature(orb.LineString{{0, 0}, {1, 1}}, "rate", 5),
	)
	_, err := usecases.SynthesizeBoundary(plan)
	if !errors.Is(err, domain.ErrNoArealGeometry) {
		t.Fatalf("expected ErrNoArealGeometry, got %v", err)
	}
}
