package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievabilityAtZeroElapsed(t *testing.T) {
	t.Parallel()
	c := newCurve(DefaultWeights)

	for _, stability := range []float64{0.001, 0.5, 1, 10, 365, 36500} {
		assert.InDelta(t, 1.0, c.retrievability(0, stability), 1e-12,
			"retrievability(0, %f) must be 1", stability)
	}
}

func TestRetrievabilityMonotoneInElapsed(t *testing.T) {
	t.Parallel()
	c := newCurve(DefaultWeights)

	const stability = 10.0
	prev := c.retrievability(0, stability)
	for elapsed := 0.5; elapsed <= 400; elapsed += 0.5 {
		r := c.retrievability(elapsed, stability)
		require.LessOrEqual(t, r, prev, "retrievability must not increase with elapsed time")
		require.Greater(t, r, 0.0, "retrievability stays in (0, 1]")
		prev = r
	}
}

func TestRetrievabilityMonotoneInStability(t *testing.T) {
	t.Parallel()
	c := newCurve(DefaultWeights)

	const elapsed = 30.0
	prev := c.retrievability(elapsed, 0.5)
	for stability := 1.0; stability <= 1000; stability *= 2 {
		r := c.retrievability(elapsed, stability)
		require.GreaterOrEqual(t, r, prev, "retrievability must not decrease with stability")
		prev = r
	}
}

func TestRetrievabilityAtStabilityIsReference(t *testing.T) {
	t.Parallel()
	c := newCurve(DefaultWeights)

	// Stability is defined as the time for recall probability to decay to 0.9.
	for _, stability := range []float64{1, 7, 30, 365} {
		assert.InDelta(t, 0.9, c.retrievability(stability, stability), 1e-9)
	}
}

func TestIntervalInversion(t *testing.T) {
	t.Parallel()
	c := newCurve(DefaultWeights)

	// At desired retention 0.9 the interval equals the stability (rounded).
	assert.Equal(t, 10, c.interval(10, 0.9, 1, 36500))
	assert.Equal(t, 365, c.interval(365, 0.9, 1, 36500))

	// Lower retention targets produce longer intervals.
	relaxed := c.interval(10, 0.8, 1, 36500)
	assert.Greater(t, relaxed, 10)

	// Clamping.
	assert.Equal(t, 1, c.interval(0.001, 0.9, 1, 36500))
	assert.Equal(t, 100, c.interval(1e9, 0.9, 1, 100))
}
