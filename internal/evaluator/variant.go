package evaluator

import (
	"errors"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// ErrNoVariants is returned for a selection over an empty variant set; the
// caller must reject such configurations before invoking.
var ErrNoVariants = errors.New("no variants to select from")

// RandFunc supplies a uniform draw in [0, 1). Injected so tests and the
// preview path can be deterministic.
type RandFunc func() float64

// SelectVariant picks a variant id by weighted-random draw over the traffic
// allocations. Weights need not sum to 100. A zero total falls back to the
// first variant rather than erroring.
func SelectVariant(variants []domain.ABTestVariant, rnd RandFunc) (string, error) {
	if len(variants) == 0 {
		return "", ErrNoVariants
	}
	if len(variants) == 1 {
		return variants[0].ID, nil
	}

	var total float64
	for _, v := range variants {
		if v.TrafficAllocation > 0 {
			total += v.TrafficAllocation
		}
	}
	if total == 0 {
		return variants[0].ID, nil
	}

	r := rnd() * total
	var cumulative float64
	for _, v := range variants {
		if v.TrafficAllocation <= 0 {
			continue
		}
		cumulative += v.TrafficAllocation
		if r < cumulative {
			return v.ID, nil
		}
	}
	// Floating-point edge: r landed exactly on the total.
	return variants[len(variants)-1].ID, nil
}
