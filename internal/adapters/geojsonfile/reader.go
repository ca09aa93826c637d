package geojsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/pkg/geospatial"
)

// Reader implements ports.DatasetReader for GeoJSON documents.
type Reader struct{}

// NewReader creates a GeoJSON reader.
func NewReader() *Reader {
	return &Reader{}
}

// header holds the top-level members inspected before decoding.
type header struct {
	Type string `json:"type"`
	CRS  *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// Read parses a FeatureCollection, a single Feature or a bare geometry. A
// legacy named "crs" member is reported as the dataset's CRS; without one the
// document is in WGS84 as RFC 7946 requires.
func (r *Reader) Read(ctx context.Context, path string) (*domain.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Decode(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Decode parses GeoJSON bytes into a dataset named name.
func Decode(data []byte, name string) (*domain.Dataset, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, domain.Errorf(domain.KindInvalidDocument, "invalid geojson: %w", err)
	}

	ds := &domain.Dataset{Name: name, CRS: geospatial.WGS84}
	if h.CRS != nil && strings.EqualFold(h.CRS.Type, "name") {
		ds.CRS = geospatial.CanonicalName(h.CRS.Properties.Name)
	}

	switch h.Type {
	case "FeatureCollection":
		var fc domain.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, err
		}
		ds.Features = &fc
	case "Feature":
		var f domain.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		ds.Features = domain.NewFeatureCollection(f)
	case domain.TypePoint, domain.TypeMultiPoint, domain.TypeLineString,
		domain.TypeMultiLineString, domain.TypePolygon, domain.TypeMultiPolygon:
		g, err := domain.DecodeGeometry(data)
		if err != nil {
			return nil, err
		}
		ds.Features = domain.NewFeatureCollection(domain.NewFeature(g))
	default:
		return nil, domain.Errorf(domain.KindInvalidDocument, "unsupported geojson type %q", h.Type)
	}
	return ds, nil
}
