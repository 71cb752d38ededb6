package srs

import (
	"time"

	"github.com/mnemo-app/mnemo-api/internal/domain"
)

// ReviewResult carries the scheduling decision fields the caller needs to
// assemble a domain.ReviewLog entry. The engine itself never writes the log.
type ReviewResult struct {
	ElapsedDays    float64
	ScheduledDays  float64
	PriorState     domain.CardState
	ResultingState domain.CardState
}

// Service defines the scheduling engine operations. All methods are pure and
// synchronous: no I/O, no shared mutable state, safe to call from any
// goroutine. Randomness for interval fuzz comes from the injected source in
// Params.
type Service interface {
	// ReviewCard applies a rating to a card's memory state at the given
	// time. It returns a new state (the input is never mutated) together
	// with the fields for a review log entry.
	ReviewCard(
		state *domain.CardMemoryState,
		rating domain.Rating,
		now time.Time,
	) (*domain.CardMemoryState, *ReviewResult, error)

	// Retrievability returns the forecast probability of recall for the
	// state at the given time. Returns 1 for cards that have never been
	// reviewed.
	Retrievability(state *domain.CardMemoryState, now time.Time) float64

	// PostponeReview pushes the next due time forward by a number of days
	// without touching the memory model.
	PostponeReview(
		state *domain.CardMemoryState,
		days int,
		now time.Time,
	) (*domain.CardMemoryState, error)
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params Params
	model  memoryModel
}

// NewService creates a scheduling engine from the given parameters.
// Zero-valued fields are filled with defaults; invalid values return an error.
func NewService(params Params) (Service, error) {
	p, err := params.withDefaults()
	if err != nil {
		return nil, err
	}
	return &defaultService{
		params: p,
		model:  newMemoryModel(p.Weights),
	}, nil
}

// NewDefaultService creates a scheduling engine with default parameters.
func NewDefaultService() Service {
	svc, err := NewService(NewDefaultParams())
	if err != nil {
		// Defaults are statically valid.
		// ALLOW-PANIC: unreachable unless defaults are broken at compile time
		panic(err)
	}
	return svc
}

// ReviewCard implements the Service interface.
func (s *defaultService) ReviewCard(
	state *domain.CardMemoryState,
	rating domain.Rating,
	now time.Time,
) (*domain.CardMemoryState, *ReviewResult, error) {
	if state == nil {
		return nil, nil, ErrNilState
	}
	if !rating.IsValid() {
		return nil, nil, ErrInvalidRating
	}
	if err := checkStateShape(state); err != nil {
		return nil, nil, err
	}

	next := state.Clone()
	priorState := state.State

	if state.State == domain.StateNew {
		s.reviewNew(next, rating, now)
	} else {
		s.reviewSeen(next, rating, now)
	}

	next.Reps++
	lastReview := now
	next.LastReview = &lastReview
	next.UpdatedAt = now

	result := &ReviewResult{
		ElapsedDays:    next.ElapsedDays,
		ScheduledDays:  next.ScheduledDays,
		PriorState:     priorState,
		ResultingState: next.State,
	}
	return next, result, nil
}

// reviewNew handles the first rating of a card: difficulty and stability come
// from the rating-indexed initialization tables, and the card enters the
// learning ladder at step 0 (or graduates immediately when no steps are
// configured).
func (s *defaultService) reviewNew(next *domain.CardMemoryState, rating domain.Rating, now time.Time) {
	next.Difficulty, next.Stability = s.model.initMemory(rating)
	next.ElapsedDays = 0

	if len(s.params.LearningSteps) == 0 {
		s.graduate(next, now)
		return
	}

	next.State = domain.StateLearning
	next.LearningStep = 0
	s.scheduleStep(next, s.params.LearningSteps[0], now)
}

// reviewSeen handles every review after the first.
func (s *defaultService) reviewSeen(next *domain.CardMemoryState, rating domain.Rating, now time.Time) {
	elapsed := 0.0
	if next.LastReview != nil {
		elapsed = now.Sub(*next.LastReview).Hours() / 24.0
		if elapsed < 0 {
			elapsed = 0
		}
	}
	retr := s.model.curve.retrievability(elapsed, next.Stability)

	next.Difficulty, next.Stability = s.model.updateMemory(
		next.Difficulty, next.Stability, rating, retr, elapsed, next.ScheduledDays)
	next.ElapsedDays = elapsed

	switch next.State {
	case domain.StateLearning, domain.StateRelearning:
		s.transitionStepLadder(next, rating, now)
	case domain.StateReview:
		s.transitionReview(next, rating, now)
	}
}

// transitionStepLadder walks the Learning/Relearning ladder: Again resets to
// the first step, a successful rating advances one step, and completing the
// last step graduates the card into Review.
func (s *defaultService) transitionStepLadder(next *domain.CardMemoryState, rating domain.Rating, now time.Time) {
	steps := s.params.LearningSteps
	if next.State == domain.StateRelearning {
		steps = s.params.RelearningSteps
	}

	if len(steps) == 0 {
		s.graduate(next, now)
		return
	}

	if rating == domain.RatingAgain {
		next.LearningStep = 0
		s.scheduleStep(next, steps[0], now)
		return
	}

	nextStep := next.LearningStep + 1
	if nextStep >= len(steps) {
		s.graduate(next, now)
		return
	}
	next.LearningStep = nextStep
	s.scheduleStep(next, steps[nextStep], now)
}

// transitionReview handles a card already in the long-term review cycle.
// Success recomputes the interval from the updated stability; Again is a
// lapse into the relearning ladder.
func (s *defaultService) transitionReview(next *domain.CardMemoryState, rating domain.Rating, now time.Time) {
	if rating == domain.RatingAgain {
		next.Lapses++
		if len(s.params.RelearningSteps) == 0 {
			// No relearning ladder configured: the lapse is counted, the
			// post-lapse stability drives a fresh day interval, and the
			// card stays in Review.
			s.scheduleDays(next, now, time.Time{})
			return
		}
		next.State = domain.StateRelearning
		next.LearningStep = 0
		s.scheduleStep(next, s.params.RelearningSteps[0], now)
		return
	}

	priorDue := next.Due
	s.scheduleDays(next, now, priorDue)
}

// graduate moves a card into the Review state and schedules a day interval.
func (s *defaultService) graduate(next *domain.CardMemoryState, now time.Time) {
	next.State = domain.StateReview
	next.LearningStep = 0
	s.scheduleDays(next, now, time.Time{})
}

// scheduleStep sets the short minute-granularity due time for a ladder step.
// Step intervals are never fuzzed.
func (s *defaultService) scheduleStep(next *domain.CardMemoryState, step time.Duration, now time.Time) {
	next.Due = now.Add(step)
	next.ScheduledDays = step.Hours() / 24.0
}

// scheduleDays computes a fuzzed whole-day interval by inverting the
// forgetting curve at the desired retention. When floorDue is set, the new
// due time is kept strictly after it so successful reviews never schedule
// behind the previous due date.
func (s *defaultService) scheduleDays(next *domain.CardMemoryState, now time.Time, floorDue time.Time) {
	days := s.model.curve.interval(
		next.Stability, s.params.DesiredRetention, s.params.MinInterval, s.params.MaxInterval)
	days = applyFuzz(days, s.params.FuzzFactor, s.params.MinInterval, s.params.MaxInterval, s.params.Rand)

	due := now.Add(time.Duration(days) * 24 * time.Hour)
	if !floorDue.IsZero() && !due.After(floorDue) {
		due = floorDue.Add(24 * time.Hour)
	}
	next.Due = due
	next.ScheduledDays = due.Sub(now).Hours() / 24.0
}

// Retrievability implements the Service interface.
func (s *defaultService) Retrievability(state *domain.CardMemoryState, now time.Time) float64 {
	if state == nil || state.LastReview == nil || state.Stability <= 0 {
		return 1
	}
	elapsed := now.Sub(*state.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return s.model.curve.retrievability(elapsed, state.Stability)
}

// PostponeReview implements the Service interface. It shifts the due date
// forward without touching difficulty or stability.
func (s *defaultService) PostponeReview(
	state *domain.CardMemoryState,
	days int,
	now time.Time,
) (*domain.CardMemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}
	if days < 1 {
		return nil, ErrInvalidDays
	}

	next := state.Clone()
	next.Due = state.Due.AddDate(0, 0, days)
	next.UpdatedAt = now
	return next, nil
}

// checkStateShape rejects states with impossible field combinations before
// any computation happens.
func checkStateShape(state *domain.CardMemoryState) error {
	if !state.State.IsValid() {
		return ErrInvalidState
	}
	if state.State == domain.StateNew {
		if state.Reps != 0 || state.LastReview != nil {
			return ErrInvalidState
		}
		return nil
	}
	if state.Stability <= 0 || state.Difficulty < 1 || state.Difficulty > 10 {
		return ErrInvalidState
	}
	return nil
}
