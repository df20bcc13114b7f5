package evaluator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

func TestSelectVariant_EmptySetRejected(t *testing.T) {
	_, err := SelectVariant(nil, rand.Float64)

	assert.ErrorIs(t, err, ErrNoVariants)
}

func TestSelectVariant_SingleVariant(t *testing.T) {
	variants := []domain.ABTestVariant{{ID: "only", TrafficAllocation: 100}}

	id, err := SelectVariant(variants, func() float64 { return 0.99 })

	assert.NoError(t, err)
	assert.Equal(t, "only", id)
}

func TestSelectVariant_ZeroTotalFallsBackToFirst(t *testing.T) {
	variants := []domain.ABTestVariant{
		{ID: "a", TrafficAllocation: 0},
		{ID: "b", TrafficAllocation: 0},
	}

	id, err := SelectVariant(variants, rand.Float64)

	assert.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestSelectVariant_DeterministicWalk(t *testing.T) {
	variants := []domain.ABTestVariant{
		{ID: "a", TrafficAllocation: 30},
		{ID: "b", TrafficAllocation: 70},
	}

	id, err := SelectVariant(variants, func() float64 { return 0.1 }) // r = 10
	assert.NoError(t, err)
	assert.Equal(t, "a", id)

	id, err = SelectVariant(variants, func() float64 { return 0.5 }) // r = 50
	assert.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestSelectVariant_ZeroWeightVariantNeverSelected(t *testing.T) {
	variants := []domain.ABTestVariant{
		{ID: "dead", TrafficAllocation: 0},
		{ID: "live", TrafficAllocation: 100},
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		id, err := SelectVariant(variants, rng.Float64)
		assert.NoError(t, err)
		assert.Equal(t, "live", id)
	}
}

func TestSelectVariant_ApproximatelyUniform(t *testing.T) {
	variants := []domain.ABTestVariant{
		{ID: "a", TrafficAllocation: 25},
		{ID: "b", TrafficAllocation: 25},
		{ID: "c", TrafficAllocation: 25},
		{ID: "d", TrafficAllocation: 25},
	}

	rng := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	const samples = 40000

	for i := 0; i < samples; i++ {
		id, err := SelectVariant(variants, rng.Float64)
		assert.NoError(t, err)
		counts[id]++
	}

	for _, v := range variants {
		share := float64(counts[v.ID]) / samples
		assert.InDelta(t, 0.25, share, 0.02, "variant %s share %f", v.ID, share)
	}
}

func TestSelectVariant_WeightsNeedNotSumTo100(t *testing.T) {
	variants := []domain.ABTestVariant{
		{ID: "a", TrafficAllocation: 1},
		{ID: "b", TrafficAllocation: 3},
	}

	rng := rand.New(rand.NewSource(99))
	counts := map[string]int{}
	const samples = 40000

	for i := 0; i < samples; i++ {
		id, _ := SelectVariant(variants, rng.Float64)
		counts[id]++
	}

	share := float64(counts["b"]) / samples
	assert.InDelta(t, 0.75, share, 0.02)
}
