package usecases_test

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/usecases"
)

func scaledRates(t *testing.T, fc *domain.FeatureCollection) []float64 {
	t.Helper()
	out := make([]float64, fc.Len())
	for i, f := range fc.Features {
		v, ok := f.Properties.Get(usecases.RateAttribute)
		require.True(t, ok, "feature %d has no %s", i, usecases.RateAttribute)
		out[i], ok = v.Number()
		require.True(t, ok, "feature %d: %s is not a number", i, usecases.RateAttribute)
	}
	return out
}

func TestResolveRates_ScalesToMaximum(t *testing.T) {
	fc := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "rate", 10),
		feature(square(1, 0, 1), "rate", 20),
		feature(square(2, 0, 1), "rate", 30),
	)

	sum, err := usecases.ResolveRates(fc)
	require.NoError(t, err)
	assert.Equal(t, "rate", sum.Key)
	assert.Equal(t, 10.0, sum.Min)
	assert.Equal(t, 30.0, sum.Max)

	got := scaledRates(t, fc)
	want := []float64{0.333, 0.667, 1.0}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-3)
	}
}

func TestResolveRates_KeepsPropertyOrder(t *testing.T) {
	fc := domain.NewFeatureCollection(feature(orb.Point{0, 0}, "NAME", "a", "Menge", 120, "ZONE", 3))

	_, err := usecases.ResolveRates(fc)
	require.NoError(t, err)
	assert.Equal(t, []string{"NAME", "Menge", "ZONE", usecases.RateAttribute}, fc.Features[0].Properties.Keys())
}

func TestResolveRates_NonPositiveValuesStillScaled(t *testing.T) {
	fc := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "RATE", 0),
		feature(square(1, 0, 1), "RATE", 50),
		feature(square(2, 0, 1), "RATE", -25),
		feature(square(3, 0, 1), "RATE", 100),
	)

	sum, err := usecases.ResolveRates(fc)
	require.NoError(t, err)
	assert.Equal(t, 50.0, sum.Min, "min ignores non-positive values")
	assert.Equal(t, 100.0, sum.Max)
	assert.Equal(t, []float64{0, 0.5, -0.25, 1}, scaledRates(t, fc))
}

func TestResolveRates_MissingAndNullCountAsZero(t *testing.T) {
	fc := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "fertilizer", 40),
		feature(square(1, 0, 1), "fertilizer", nil),
		feature(square(2, 0, 1), "other", 1),
		feature(square(3, 0, 1), "fertilizer", "80"),
	)

	sum, err := usecases.ResolveRates(fc)
	require.NoError(t, err)
	assert.Equal(t, 80.0, sum.Max, "numeric strings are accepted")
	assert.Equal(t, []float64{0.5, 0, 0, 1}, scaledRates(t, fc))
}

func TestResolveRates_AmbiguousKey(t *testing.T) {
	fc := domain.NewFeatureCollection(feature(square(0, 0, 1), "RATE", 10, "rate", 12))

	_, err := usecases.ResolveRates(fc)
	if !errors.Is(err, domain.ErrNoUniqueRateKey) {
		t.Fatalf("expected ErrNoUniqueRateKey, got %v", err)
	}
}

func TestResolveRates_NoKnownKey(t *testing.T) {
	fc := domain.NewFeatureCollection(feature(square(0, 0, 1), "amount", 10))

	_, err := usecases.ResolveRates(fc)
	if !errors.Is(err, domain.ErrNoUniqueRateKey) {
		t.Fatalf("expected ErrNoUniqueRateKey, got %v", err)
	}
}

func TestResolveRates_EmptyCollection(t *testing.T) {
	_, err := usecases.ResolveRates(domain.NewFeatureCollection())
	if !errors.Is(err, domain.ErrNoUniqueRateKey) {
		t.Fatalf("expected ErrNoUniqueRateKey, got %v", err)
	}
}

func TestResolveRates_InconsistentSchema(t *testing.T) {
	fc := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "rate", 10),
		feature(square(1, 0, 1), "Menge", 20),
	)

	_, err := usecases.ResolveRates(fc)
	if !errors.Is(err, domain.ErrInconsistentSchema) {
		t.Fatalf("expected ErrInconsistentSchema, got %v", err)
	}
	if _, ok := fc.Features[0].Properties.Get(usecases.RateAttribute); ok {
		t.Error("collection must not be annotated on failure")
	}
}

func TestResolveRates_NoPositiveValues(t *testing.T) {
	fc := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "rate", 0),
		feature(square(1, 0, 1), "rate", -5),
	)

	_, err := usecases.ResolveRates(fc)
	if !errors.Is(err, domain.ErrNoPositiveRateValues) {
		t.Fatalf("expected ErrNoPositiveRateValues, got %v", err)
	}
}

func TestResolveRates_InvalidValue(t *testing.T) {
	fc := domain.NewFeatureCollection(
		feature(square(0, 0, 1), "rate", 10),
		feature(square(1, 0, 1), "rate", "lots"),
	)

	_, err := usecases.ResolveRates(fc)
	if !errors.Is(err, domain.ErrInvalidRateValue) {
		t.Fatalf("expected ErrInvalidRateValue, got %v", err)
	}
}
