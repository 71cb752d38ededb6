package srs

import "math"

// curve is the power-law forgetting model. Recall probability decays as
// R(t, S) = (1 + factor * t / S) ^ decay, which falls off more slowly than an
// exponential for large t, matching observed human memory curves. decay and
// factor are precomputed from the weight vector so that R(S, S) equals the
// reference retention of 0.9.
type curve struct {
	w      Weights
	decay  float64 // -w[20]
	factor float64 // 0.9^(1/decay) - 1
}

func newCurve(w Weights) curve {
	decay := -w[20]
	factor := math.Pow(0.9, 1.0/decay) - 1.0
	return curve{w: w, decay: decay, factor: factor}
}

// retrievability returns the forecast probability of recall after elapsedDays
// for a memory of the given stability. retrievability(0, S) is exactly 1.
func (c *curve) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+c.factor*elapsedDays/stability, c.decay)
}

// interval inverts the forgetting curve: it returns the whole-day interval at
// which retrievability decays to the desired retention, clamped to
// [minIvl, maxIvl].
func (c *curve) interval(stability, desiredRetention float64, minIvl, maxIvl int) int {
	ivl := stability / c.factor * (math.Pow(desiredRetention, 1.0/c.decay) - 1)
	rounded := int(math.Round(ivl))
	if rounded < minIvl {
		rounded = minIvl
	}
	if rounded > maxIvl {
		rounded = maxIvl
	}
	return rounded
}
