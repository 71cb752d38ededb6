package srs

import (
	"math"
	"math/rand"
)

// applyFuzz perturbs a day-granularity interval by at most ±fuzzFactor so
// that cards reviewed together do not clump on identical due dates. The
// result always stays strictly within the ±fuzzFactor window of the unfuzzed
// interval and within [minIvl, maxIvl]. Intervals of one day or less pass
// through unchanged.
func applyFuzz(days int, fuzzFactor float64, minIvl, maxIvl int, rng *rand.Rand) int {
	if fuzzFactor <= 0 || days <= 1 {
		return clampInterval(days, minIvl, maxIvl)
	}

	base := float64(days)
	// Ceil/floor keep the whole-day window inside the fractional one.
	lo := int(math.Ceil(base * (1 - fuzzFactor)))
	hi := int(math.Floor(base * (1 + fuzzFactor)))
	if lo < minIvl {
		lo = minIvl
	}
	if hi > maxIvl {
		hi = maxIvl
	}
	if lo >= hi {
		return clampInterval(days, minIvl, maxIvl)
	}

	return lo + rng.Intn(hi-lo+1)
}

func clampInterval(days, minIvl, maxIvl int) int {
	if days < minIvl {
		return minIvl
	}
	if days > maxIvl {
		return maxIvl
	}
	return days
}
