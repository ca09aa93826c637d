package domain

import (
	"encoding/json"
	"fmt"
)

// Settings are the spreader parameters shipped with a project.
type Settings struct {
	ThrowingRange float64 `json:"throwing_range"`
	MinSpeed      float64 `json:"min_speed"`
	DefaultRate   float64 `json:"default_rate"`
	DefaultSpeed  float64 `json:"default_speed"`
}

// DefaultSettings returns the settings used when a field is not supplied.
func DefaultSettings() Settings {
	return Settings{
		ThrowingRange: 15,
		MinSpeed:      1,
		DefaultRate:   0,
		DefaultSpeed:  2.2,
	}
}

// UnmarshalJSON fills omitted fields with their defaults.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	out := plain(DefaultSettings())
	if string(data) != "null" {
		if err := json.Unmarshal(data, &out); err != nil {
			return Errorf(KindInvalidDocument, "invalid settings: %w", err)
		}
	}
	*s = Settings(out)
	return nil
}

// Validate rejects negative values; they feed the client's rate application.
func (s Settings) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"throwing_range", s.ThrowingRange},
		{"min_speed", s.MinSpeed},
		{"default_rate", s.DefaultRate},
		{"default_speed", s.DefaultSpeed},
	}
	for _, f := range fields {
		if f.v < 0 {
			return Errorf(KindInvalidSettings, "invalid settings: %s must not be negative, got %g", f.name, f.v)
		}
	}
	return nil
}

// ProjectFile is the document handed to the mapping client.
type ProjectFile struct {
	Boundaries *FeatureCollection `json:"boundaries"`
	Plan       *FeatureCollection `json:"plan"`
	Settings   Settings           `json:"settings"`
}

func (p *ProjectFile) UnmarshalJSON(data []byte) error {
	type plain ProjectFile
	out := plain{Settings: DefaultSettings()}
	if err := json.Unmarshal(data, &out); err != nil {
		if _, ok := KindOf(err); ok {
			return err
		}
		return Errorf(KindInvalidDocument, "invalid project file: %w", err)
	}
	*p = ProjectFile(out)
	return nil
}

// DecodeProjectFile parses a project file document.
func DecodeProjectFile(data []byte) (*ProjectFile, error) {
	var p ProjectFile
	if err := json.Unmarshal(data, &p); err != nil {
		if _, ok := KindOf(err); ok {
			return nil, err
		}
		return nil, Errorf(KindInvalidDocument, "invalid project file: %w", err)
	}
	return &p, nil
}

// CRSRecord records how a dataset's coordinates were interpreted.
type CRSRecord struct {
	// Input is the CRS the coordinates were reprojected from.
	Input string
	// Original is the descriptor found in the file, empty when there was none.
	Original string
}

// OriginalOrNil returns Original, or nil when the file carried no CRS.
func (r CRSRecord) OriginalOrNil() *string {
	if r.Original == "" {
		return nil
	}
	s := r.Original
	return &s
}

// PlanConversion is the result of converting an uploaded rate plan.
type PlanConversion struct {
	FileName    string            `json:"file_name"`
	GeoJSON     FeatureCollection `json:"geojson"`
	InputCRS    string            `json:"input_crs"`
	OriginalCRS *string           `json:"original_crs"`
	MinRate     float64           `json:"min_rate"`
	MaxRate     float64           `json:"max_rate"`
	RateKey     string            `json:"rate_key"`
}

// BoundaryConversion is the result of converting an uploaded boundary.
type BoundaryConversion struct {
	FileName    string            `json:"file_name"`
	GeoJSON     FeatureCollection `json:"geojson"`
	InputCRS    string            `json:"input_crs"`
	OriginalCRS *string           `json:"original_crs"`
}

// RateSummary describes the resolved rate attribute of a plan.
type RateSummary struct {
	Key string
	Min float64
	Max float64
}

func (r RateSummary) String() string {
	return fmt.Sprintf("%s [%g, %g]", r.Key, r.Min, r.Max)
}
