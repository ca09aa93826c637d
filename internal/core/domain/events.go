package domain

import "time"

// PlanConvertedEvent is emitted after a rate plan upload was converted.
type PlanConvertedEvent struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	FileName    string    `json:"file_name"`
	Features    int       `json:"features"`
	RateKey     string    `json:"rate_key"`
	MinRate     float64   `json:"min_rate"`
	MaxRate     float64   `json:"max_rate"`
	InputCRS    string    `json:"input_crs"`
	OriginalCRS string    `json:"original_crs,omitempty"`
}

// ProjectAssembledEvent is emitted after a project file was completed.
type ProjectAssembledEvent struct {
	ID                  string    `json:"id"`
	Time                time.Time `json:"time"`
	BoundaryFeatures    int       `json:"boundary_features"`
	PlanFeatures        int       `json:"plan_features"`
	BoundarySynthesized bool      `json:"boundary_synthesized"`
}
