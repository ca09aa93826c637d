package usecases

import (
	"math"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

// RateAttribute is the per-feature attribute holding the rate scaled to the
// plan's maximum.
const RateAttribute = "V22RATE"

// rateKeys are the attribute names under which plans carry their rate.
var rateKeys = []string{"RATE", "Menge", "rate", "fertilizer"}

// ResolveRates finds the plan's rate attribute, computes the range of its
// positive values and sets RateAttribute on every feature. The key is taken
// from the first feature; later features naming a different known key are
// rejected. A missing or null rate counts as zero.
func ResolveRates(fc *domain.FeatureCollection) (domain.RateSummary, error) {
	if fc.Len() == 0 {
		return domain.RateSummary{}, domain.Errorf(domain.KindNoUniqueRateKey, "no unique rate key found: plan has no features")
	}

	key, err := rateKey(fc.Features[0].Properties)
	if err != nil {
		return domain.RateSummary{}, err
	}

	values := make([]float64, len(fc.Features))
	sum := domain.RateSummary{Key: key, Min: math.Inf(1), Max: math.Inf(-1)}
	for i, f := range fc.Features {
		for _, other := range rateKeys {
			if other != key && f.Properties.Has(other) {
				return domain.RateSummary{}, domain.Errorf(domain.KindInconsistentSchema,
					"feature %d uses rate key %q, first feature uses %q", i, other, key)
			}
		}
		v, err := rateValue(f.Properties, key)
		if err != nil {
			return domain.RateSummary{}, domain.Errorf(domain.KindInvalidRateValue, "feature %d: %w", i, err)
		}
		values[i] = v
		if v > 0 {
			sum.Min = math.Min(sum.Min, v)
			sum.Max = math.Max(sum.Max, v)
		}
	}
	if math.IsInf(sum.Max, -1) {
		return domain.RateSummary{}, domain.Errorf(domain.KindNoPositiveRateValues,
			"no positive values for rate key %q", key)
	}

	for i := range fc.Features {
		fc.Features[i].Properties.Set(RateAttribute, domain.NumberValue(values[i]/sum.Max))
	}
	return sum, nil
}

func rateKey(props domain.Properties) (string, error) {
	var found []string
	for _, k := range rateKeys {
		if props.Has(k) {
			found = append(found, k)
		}
	}
	if len(found) != 1 {
		return "", domain.Errorf(domain.KindNoUniqueRateKey,
			"no unique rate key found: want exactly one of %v, got %v", rateKeys, found)
	}
	return found[0], nil
}

func rateValue(props domain.Properties, key string) (float64, error) {
	v, ok := props.Get(key)
	if !ok || v.IsNull() {
		return 0, nil
	}
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, domain.Errorf(domain.KindInvalidRateValue, "rate %s is not a number", v)
	}
	return f, nil
}
