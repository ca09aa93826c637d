package domain

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// Feature is a geometry with attributes. Geometry is nil for null shapes.
type Feature struct {
	ID         json.RawMessage
	Geometry   orb.Geometry
	Properties Properties
}

// NewFeature wraps a geometry with empty properties.
func NewFeature(g orb.Geometry) Feature {
	return Feature{Geometry: g, Properties: Properties{}}
}

type featureDoc struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties Properties      `json:"properties"`
}

func (f Feature) MarshalJSON() ([]byte, error) {
	geom, err := EncodeGeometry(f.Geometry)
	if err != nil {
		return nil, err
	}
	return json.Marshal(featureDoc{
		Type:       "Feature",
		ID:         f.ID,
		Geometry:   geom,
		Properties: f.Properties,
	})
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	var doc featureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Errorf(KindInvalidDocument, "invalid feature: %w", err)
	}
	if doc.Type != "Feature" {
		return Errorf(KindInvalidDocument, "invalid feature: type %q, want \"Feature\"", doc.Type)
	}
	g, err := DecodeGeometry(doc.Geometry)
	if err != nil {
		return err
	}
	if doc.Properties == nil {
		doc.Properties = Properties{}
	}
	*f = Feature{ID: doc.ID, Geometry: g, Properties: doc.Properties}
	return nil
}

// FeatureCollection is an ordered set of features.
type FeatureCollection struct {
	Features []Feature
}

// NewFeatureCollection builds a collection from the given features.
func NewFeatureCollection(features ...Feature) *FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return &FeatureCollection{Features: features}
}

// Len returns the number of features.
func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

type collectionDoc struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []Feature{}
	}
	return json.Marshal(collectionDoc{Type: "FeatureCollection", Features: features})
}

func (fc *FeatureCollection) UnmarshalJSON(data []byte) error {
	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Errorf(KindInvalidDocument, "invalid feature collection: %w", err)
	}
	if doc.Type != "FeatureCollection" {
		return Errorf(KindInvalidDocument, "invalid feature collection: type %q, want \"FeatureCollection\"", doc.Type)
	}
	features := make([]Feature, len(doc.Features))
	for i, raw := range doc.Features {
		if err := features[i].UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	fc.Features = features
	return nil
}
