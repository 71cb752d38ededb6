package srs

import (
	"math"

	"github.com/mnemo-app/mnemo-api/internal/domain"
)

// minStability keeps stability strictly positive; the forgetting curve
// divides by it.
const minStability = 0.001

// memoryModel implements the difficulty/stability update rules on top of the
// forgetting curve. All methods are pure.
type memoryModel struct {
	curve curve

	// First-rating initialization tables, one entry per rating (index 1..4).
	initialStability  [5]float64
	initialDifficulty [5]float64
}

func newMemoryModel(w Weights) memoryModel {
	m := memoryModel{curve: newCurve(w)}
	for r := domain.RatingAgain; r <= domain.RatingEasy; r++ {
		m.initialStability[r] = clampStability(w[r-1])
		m.initialDifficulty[r] = clampDifficulty(rawInitialDifficulty(w, r))
	}
	return m
}

// rawInitialDifficulty computes D0(G) = w[4] - e^(w[5]*(G-1)) + 1, unclamped.
// The unclamped Easy value is the mean-reversion target for nextDifficulty.
func rawInitialDifficulty(w Weights, r domain.Rating) float64 {
	return w[4] - math.Exp(w[5]*float64(r-1)) + 1
}

// initMemory returns the initial (difficulty, stability) for a card's first
// rating. New cards have no prior state to update from; values come from the
// rating-indexed tables.
func (m *memoryModel) initMemory(rating domain.Rating) (difficulty, stability float64) {
	return m.initialDifficulty[rating], m.initialStability[rating]
}

// nextDifficulty moves difficulty toward a rating-dependent target with a
// mean-reversion pull toward the first-Easy difficulty, so difficulty does
// not drift unboundedly over long review histories. Clamped to [1, 10].
func (m *memoryModel) nextDifficulty(difficulty float64, rating domain.Rating) float64 {
	deltaD := -m.curve.w[6] * (float64(rating) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	target := rawInitialDifficulty(m.curve.w, domain.RatingEasy)
	reverted := m.curve.w[7]*target + (1-m.curve.w[7])*dPrime
	return clampDifficulty(reverted)
}

// nextRecallStability computes stability after a successful recall
// (hard/good/easy). The gain grows with (1 - R): recalling a nearly
// forgotten card is stronger evidence of durable memory than recalling a
// recently seen one. Harder cards gain more slowly, and the rating applies a
// penalty (hard) or bonus (easy) multiplier relative to good.
func (m *memoryModel) nextRecallStability(d, s, r float64, rating domain.Rating) float64 {
	w := m.curve.w
	hardPenalty := 1.0
	if rating == domain.RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == domain.RatingEasy {
		easyBonus = w[16]
	}
	gain := math.Exp(w[8]) *
		(11 - d) *
		math.Pow(s, -w[9]) *
		(math.Exp((1-r)*w[10]) - 1) *
		hardPenalty * easyBonus
	return clampStability(s * (1 + gain))
}

// nextForgetStability computes stability after a lapse. A forgotten card does
// not return to its naive initial stability: the post-lapse value grows with
// the pre-lapse stability, shrinks with difficulty, and is capped by the
// same-day lapse stability.
func (m *memoryModel) nextForgetStability(d, s, r float64) float64 {
	w := m.curve.w
	long := w[11] *
		math.Pow(d, -w[12]) *
		(math.Pow(s+1, w[13]) - 1) *
		math.Exp((1-r)*w[14])
	short := s / math.Exp(w[17]*w[18])
	return clampStability(math.Min(long, short))
}

// shortTermStability handles same-day reviews, where the forgetting curve has
// not meaningfully decayed yet.
func (m *memoryModel) shortTermStability(s float64, rating domain.Rating) float64 {
	w := m.curve.w
	inc := math.Exp(w[17]*(float64(rating)-3+w[18])) * math.Pow(s, -w[19])
	if rating == domain.RatingGood || rating == domain.RatingEasy {
		inc = math.Max(inc, 1.0)
	}
	return clampStability(s * inc)
}

// updateMemory applies one review to (difficulty, stability).
//
// retr is the retrievability at the moment of review. For successful recalls
// well before the scheduled due date, the stability gain is dampened in
// proportion to elapsed/scheduled so that cramming ahead of schedule is not
// rewarded as if the full interval had passed.
func (m *memoryModel) updateMemory(
	difficulty, stability float64,
	rating domain.Rating,
	retr, elapsedDays, scheduledDays float64,
) (newDifficulty, newStability float64) {
	newDifficulty = m.nextDifficulty(difficulty, rating)

	if elapsedDays < 1 {
		newStability = m.shortTermStability(stability, rating)
		return newDifficulty, newStability
	}

	if rating == domain.RatingAgain {
		newStability = m.nextForgetStability(difficulty, stability, retr)
		return newDifficulty, newStability
	}

	newStability = m.nextRecallStability(difficulty, stability, retr, rating)
	if scheduledDays >= 1 && elapsedDays < scheduledDays {
		damp := elapsedDays / scheduledDays
		newStability = clampStability(stability + (newStability-stability)*damp)
	}
	return newDifficulty, newStability
}

// clampStability clamps stability to a minimum of minStability.
func clampStability(s float64) float64 {
	return math.Max(s, minStability)
}

// clampDifficulty clamps difficulty to [1, 10].
func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
