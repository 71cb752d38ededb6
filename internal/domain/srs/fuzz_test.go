package srs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFuzzStaysWithinFactor(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	const base = 100
	const factor = 0.05
	lo := int(float64(base) * (1 - factor))
	hi := int(float64(base) * (1 + factor))

	for i := 0; i < 1000; i++ {
		got := applyFuzz(base, factor, 1, 36500, rng)
		require.GreaterOrEqual(t, got, lo, "draw %d below -5%%", i)
		require.LessOrEqual(t, got, hi, "draw %d above +5%%", i)
	}
}

func TestApplyFuzzRespectsIntervalBounds(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		got := applyFuzz(36400, 0.05, 1, 36500, rng)
		require.LessOrEqual(t, got, 36500, "draw %d above max interval", i)
	}

	for i := 0; i < 1000; i++ {
		got := applyFuzz(100, 0.05, 98, 36500, rng)
		require.GreaterOrEqual(t, got, 98, "draw %d below min interval", i)
	}
}

func TestApplyFuzzSmallIntervalsPassThrough(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	assert.Equal(t, 1, applyFuzz(1, 0.05, 1, 36500, rng))
	// A window too narrow for a whole-day perturbation returns the input.
	assert.Equal(t, 5, applyFuzz(5, 0.05, 1, 36500, rng))
}

func TestApplyFuzzDisabled(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		assert.Equal(t, 100, applyFuzz(100, -1, 1, 36500, rng))
	}
}

func TestApplyFuzzDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	draw := func() []int {
		rng := rand.New(rand.NewSource(7))
		out := make([]int, 50)
		for i := range out {
			out[i] = applyFuzz(200, 0.05, 1, 36500, rng)
		}
		return out
	}

	assert.Equal(t, draw(), draw(), "identical seeds must produce identical schedules")
}
