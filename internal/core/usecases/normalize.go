package usecases

import (
	"context"
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/ports"
	"github.com/samirrijal/rateplan/internal/pkg/geospatial"
	"github.com/samirrijal/rateplan/internal/pkg/logging"
)

// CRSNormalizer settles the CRS a dataset's coordinates are in and moves them
// to WGS84.
type CRSNormalizer struct {
	proj ports.Projector
}

// NewCRSNormalizer creates a new CRSNormalizer.
func NewCRSNormalizer(proj ports.Projector) *CRSNormalizer {
	return &CRSNormalizer{proj: proj}
}

// EffectiveCRS returns the CRS a dataset is read in: the detected descriptor
// when it is an authority code, the caller default otherwise.
func EffectiveCRS(detected, fallback string) string {
	if fallback == "" {
		fallback = geospatial.WGS84
	}
	if detected != "" && geospatial.IsAuthorityCode(detected) {
		return detected
	}
	return fallback
}

// Normalize reprojects ds from its effective CRS to WGS84.
func (n *CRSNormalizer) Normalize(ctx context.Context, ds *domain.Dataset, defaultCRS string) (*domain.FeatureCollection, domain.CRSRecord, error) {
	rec := domain.CRSRecord{
		Input:    EffectiveCRS(ds.CRS, defaultCRS),
		Original: ds.CRS,
	}
	logging.FromContext(ctx).Debug("normalizing crs",
		"dataset", ds.Name,
		"detected", ds.CRS,
		"effective", rec.Input,
	)

	fc, err := n.Reproject(ds.Features, rec.Input, geospatial.WGS84)
	if err != nil {
		return nil, rec, err
	}
	return fc, rec, nil
}

// Reproject returns a copy of fc with every geometry moved from one CRS to
// another. Identical codes return fc untouched.
func (n *CRSNormalizer) Reproject(fc *domain.FeatureCollection, from, to string) (*domain.FeatureCollection, error) {
	if fc == nil {
		return domain.NewFeatureCollection(), nil
	}
	if geospatial.SameCRS(from, to) {
		return fc, nil
	}

	p, err := n.proj.Projection(from, to)
	if err != nil {
		return nil, domain.Errorf(domain.KindInvalidCRS, "reproject %s to %s: %w", from, to, err)
	}
	outOfRange := false
	checked := func(pt orb.Point) orb.Point {
		q := p(pt)
		if math.IsNaN(q[0]) || math.IsNaN(q[1]) || math.IsInf(q[0], 0) || math.IsInf(q[1], 0) {
			outOfRange = true
		}
		return q
	}

	out := make([]domain.Feature, len(fc.Features))
	for i, f := range fc.Features {
		g, err := project(f.Geometry, checked)
		if err != nil {
			return nil, err
		}
		if outOfRange {
			return nil, domain.Errorf(domain.KindInvalidCRS,
				"feature %d: coordinates cannot be expressed in %s when read as %s", i, to, from)
		}
		f.Geometry = g
		out[i] = f
	}
	return domain.NewFeatureCollection(out...), nil
}

func project(g orb.Geometry, p orb.Projection) (orb.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return p(g), nil
	case orb.MultiPoint:
		return orb.MultiPoint(projectPoints(g, p)), nil
	case orb.LineString:
		return orb.LineString(projectPoints(g, p)), nil
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = projectPoints(ls, p)
		}
		return out, nil
	case orb.Polygon:
		return projectPolygon(g, p), nil
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, poly := range g {
			out[i] = projectPolygon(poly, p)
		}
		return out, nil
	default:
		return nil, domain.Errorf(domain.KindMalformedGeometry, "unsupported geometry type %s", g.GeoJSONType())
	}
}

func projectPolygon(poly orb.Polygon, p orb.Projection) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = projectPoints(r, p)
	}
	return out
}

func projectPoints(ps []orb.Point, p orb.Projection) []orb.Point {
	out := make([]orb.Point, len(ps))
	for i, pt := range ps {
		out[i] = p(pt)
	}
	return out
}
