package usecases

import (
	"github.com/paulmach/orb"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/pkg/geospatial"
)

// SynthesizeBoundary derives a boundary from the union of a plan's polygons.
// The result is a single feature with empty properties, in the plan's CRS.
func SynthesizeBoundary(plan *domain.FeatureCollection) (*domain.FeatureCollection, error) {
	if plan.Len() == 0 {
		return nil, domain.ErrEmptyPlan
	}

	geoms := make([]orb.Geometry, 0, plan.Len())
	for _, f := range plan.Features {
		geoms = append(geoms, f.Geometry)
	}
	union, parts, err := geospatial.Union(geoms)
	if err != nil {
		return nil, domain.Errorf(domain.KindMalformedGeometry, "synthesize boundary: %w", err)
	}
	if parts == 0 || union == nil {
		return nil, domain.Errorf(domain.KindNoArealGeometry,
			"plan has no polygon geometry among %d features", plan.Len())
	}
	return domain.NewFeatureCollection(domain.NewFeature(union)), nil
}
