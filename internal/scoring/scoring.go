// Package scoring computes the normalized weighted score used to rank
// catalog candidates. Price and lead time are normalized against the bounds
// of the current candidate set, so scores are relative to that population
// and change when the population changes.
package scoring

import (
	"quartermaster/internal/errors"
	"quartermaster/pkg/types"
)

// Weight keys recognized in a request.
const (
	WeightPrice       = "price"
	WeightLeadTime    = "lead_time"
	WeightReliability = "reliability"
)

// Default weights applied per key when a request omits one.
const (
	DefaultPriceWeight       = 0.4
	DefaultLeadTimeWeight    = 0.3
	DefaultReliabilityWeight = 0.3
)

// Weights maps scoring dimensions to their weights. Unknown keys are
// ignored; missing keys fall back to the defaults per key.
type Weights map[string]float64

// DefaultWeights returns the standard price/lead_time/reliability weighting.
func DefaultWeights() Weights {
	return Weights{
		WeightPrice:       DefaultPriceWeight,
		WeightLeadTime:    DefaultLeadTimeWeight,
		WeightReliability: DefaultReliabilityWeight,
	}
}

// Resolve fills in defaults for any missing key. A nil map resolves to the
// full defaults.
func Resolve(w map[string]float64) Weights {
	resolved := DefaultWeights()
	for key := range resolved {
		if v, ok := w[key]; ok {
			resolved[key] = v
		}
	}
	return resolved
}

// Validate rejects any known weight outside [0,1]. Weights need not sum
// to 1.
func Validate(w map[string]float64) error {
	for _, key := range []string{WeightPrice, WeightLeadTime, WeightReliability} {
		v, ok := w[key]
		if !ok {
			continue
		}
		if v < 0 || v > 1 {
			return errors.BadRequest("weight %q must be in [0,1], got %v", key, v)
		}
	}
	return nil
}

// Bounds are the price and lead-time extremes of one candidate set. They
// are only meaningful for normalizing that same set.
type Bounds struct {
	PriceMin float64
	PriceMax float64
	LeadMin  int
	LeadMax  int
}

// ComputeBounds scans items for the min/max price and lead time. An empty
// slice returns zero bounds; callers reject empty candidate sets before
// scoring.
func ComputeBounds(items []types.Item) Bounds {
	if len(items) == 0 {
		return Bounds{}
	}
	b := Bounds{
		PriceMin: items[0].Price,
		PriceMax: items[0].Price,
		LeadMin:  items[0].LeadTimeDays,
		LeadMax:  items[0].LeadTimeDays,
	}
	for _, item := range items[1:] {
		if item.Price < b.PriceMin {
			b.PriceMin = item.Price
		}
		if item.Price > b.PriceMax {
			b.PriceMax = item.Price
		}
		if item.LeadTimeDays < b.LeadMin {
			b.LeadMin = item.LeadTimeDays
		}
		if item.LeadTimeDays > b.LeadMax {
			b.LeadMax = item.LeadTimeDays
		}
	}
	return b
}

// Score computes the weighted score for one item against the bounds of its
// candidate set. Price and lead time are lower-is-better and inverted;
// reliability is higher-is-better and used directly. When every candidate is
// tied on a dimension the normalized value is 1.0, so nobody is penalized
// for a tie. The result is clamped into [0,1].
func Score(item types.Item, w Weights, b Bounds) float64 {
	normalizedPrice := 1.0
	if b.PriceMax != b.PriceMin {
		normalizedPrice = clamp01(1 - (item.Price-b.PriceMin)/(b.PriceMax-b.PriceMin))
	}
	normalizedLead := 1.0
	if b.LeadMax != b.LeadMin {
		normalizedLead = clamp01(1 - float64(item.LeadTimeDays-b.LeadMin)/float64(b.LeadMax-b.LeadMin))
	}
	score := w[WeightPrice]*normalizedPrice +
		w[WeightLeadTime]*normalizedLead +
		w[WeightReliability]*item.Reliability
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
