package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure. The value doubles as the
// machine-readable error code returned to API clients.
type ErrorKind string

const (
	KindNoSpatialData           ErrorKind = "no_spatial_data"
	KindAmbiguousInput          ErrorKind = "ambiguous_input"
	KindAmbiguousArchiveContent ErrorKind = "ambiguous_archive_content"
	KindNoShapefileInArchive    ErrorKind = "no_shapefile_in_archive"
	KindInvalidArchive          ErrorKind = "invalid_archive"
	KindNoUniqueRateKey         ErrorKind = "no_unique_rate_key"
	KindInconsistentSchema      ErrorKind = "inconsistent_schema"
	KindInvalidRateValue        ErrorKind = "invalid_rate_value"
	KindNoPositiveRateValues    ErrorKind = "no_positive_rate_values"
	KindEmptyPlan               ErrorKind = "empty_plan"
	KindNoArealGeometry         ErrorKind = "no_areal_geometry"
	KindMissingBoundaryAndPlan  ErrorKind = "missing_boundary_and_plan"
	KindMalformedGeometry       ErrorKind = "malformed_geometry"
	KindInvalidDocument         ErrorKind = "invalid_document"
	KindInvalidCRS              ErrorKind = "invalid_crs"
	KindInvalidSettings         ErrorKind = "invalid_settings"
)

// Error is a classified pipeline error. Msg is the full human-readable
// message; Err, when set, is the underlying cause. Two Errors match under
// errors.Is when their kinds are equal, so the sentinels below can be used
// as targets.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels, one per kind.
var (
	ErrNoSpatialData           = &Error{Kind: KindNoSpatialData, Msg: "no shape data provided"}
	ErrAmbiguousInput          = &Error{Kind: KindAmbiguousInput, Msg: "too many spatial files"}
	ErrAmbiguousArchiveContent = &Error{Kind: KindAmbiguousArchiveContent, Msg: "too many shapefiles in archive"}
	ErrNoShapefileInArchive    = &Error{Kind: KindNoShapefileInArchive, Msg: "no shapefile found in archive"}
	ErrInvalidArchive          = &Error{Kind: KindInvalidArchive, Msg: "invalid zip archive"}
	ErrNoUniqueRateKey         = &Error{Kind: KindNoUniqueRateKey, Msg: "no unique rate key found"}
	ErrInconsistentSchema      = &Error{Kind: KindInconsistentSchema, Msg: "features use different rate keys"}
	ErrInvalidRateValue        = &Error{Kind: KindInvalidRateValue, Msg: "rate value is not numeric"}
	ErrNoPositiveRateValues    = &Error{Kind: KindNoPositiveRateValues, Msg: "no positive rate values"}
	ErrEmptyPlan               = &Error{Kind: KindEmptyPlan, Msg: "plan has no features"}
	ErrNoArealGeometry         = &Error{Kind: KindNoArealGeometry, Msg: "plan has no polygon geometry"}
	ErrMissingBoundaryAndPlan  = &Error{Kind: KindMissingBoundaryAndPlan, Msg: "no boundaries or plan provided"}
	ErrMalformedGeometry       = &Error{Kind: KindMalformedGeometry, Msg: "malformed geometry"}
	ErrInvalidDocument         = &Error{Kind: KindInvalidDocument, Msg: "invalid document"}
	ErrInvalidCRS              = &Error{Kind: KindInvalidCRS, Msg: "unsupported coordinate reference system"}
	ErrInvalidSettings         = &Error{Kind: KindInvalidSettings, Msg: "invalid settings"}
)

// Errorf builds an Error of the given kind with a formatted message.
// A %w verb in format is honoured, so the cause stays reachable.
func Errorf(kind ErrorKind, format string, args ...any) error {
	cause := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: cause.Error(), Err: errors.Unwrap(cause)}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
