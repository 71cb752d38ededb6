package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for CardMemoryState
var (
	ErrEmptyMemoryUserID   = errors.New("card memory state user ID cannot be empty")
	ErrEmptyMemoryCardID   = errors.New("card memory state card ID cannot be empty")
	ErrDifficultyRange     = errors.New("difficulty must be within [1, 10]")
	ErrNonPositiveStab     = errors.New("stability must be positive")
	ErrNegativeInterval    = errors.New("scheduled days must be greater than or equal to 0")
	ErrRepsBelowLapses     = errors.New("reps cannot be below lapses")
	ErrNewStateReviewed    = errors.New("new card cannot have review history")
	ErrDueBeforeLastReview = errors.New("due cannot precede last review")
)

// CardMemoryState tracks the decaying-memory model for one user and one card.
// It is the unit the scheduling engine mutates: exactly one new value is
// produced per review, and the previous value is never modified in place.
//
// Difficulty and Stability are undefined (zero) while State is StateNew; the
// scheduler initializes them from the first rating.
type CardMemoryState struct {
	UserID        uuid.UUID  `json:"user_id"`
	CardID        uuid.UUID  `json:"card_id"`
	State         CardState  `json:"state"`
	Difficulty    float64    `json:"difficulty"`     // [1, 10]; higher = harder to retain.
	Stability     float64    `json:"stability"`      // Days for recall probability to decay to the reference retention.
	Due           time.Time  `json:"due"`            // Next scheduled presentation.
	LastReview    *time.Time `json:"last_review"`    // Nil before first review.
	ScheduledDays float64    `json:"scheduled_days"` // Interval chosen at the last scheduling decision.
	ElapsedDays   float64    `json:"elapsed_days"`   // Actual days between the last two reviews.
	Reps          int        `json:"reps"`           // Total reviews ever applied.
	Lapses        int        `json:"lapses"`         // Review -> Relearning transitions.
	LearningStep  int        `json:"learning_step"`  // Step-ladder index; meaningful only in Learning/Relearning.
	Version       int64      `json:"version"`        // Optimistic-concurrency token; bumped on every commit.
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewCardMemoryState creates the memory state for a card the user has never
// seen. The card is due immediately so it enters the queue on first build.
func NewCardMemoryState(userID, cardID uuid.UUID) (*CardMemoryState, error) {
	now := time.Now().UTC()
	state := &CardMemoryState{
		UserID:    userID,
		CardID:    cardID,
		State:     StateNew,
		Due:       now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Clone returns a deep copy of the state. Pointer fields are copied by value.
func (s *CardMemoryState) Clone() *CardMemoryState {
	out := *s
	if s.LastReview != nil {
		v := *s.LastReview
		out.LastReview = &v
	}
	return &out
}

// Validate checks the structural invariants of the memory state.
// Returns an error describing the first violated invariant.
func (s *CardMemoryState) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrEmptyMemoryUserID
	}

	if s.CardID == uuid.Nil {
		return ErrEmptyMemoryCardID
	}

	if !s.State.IsValid() {
		return ErrInvalidCardState
	}

	if s.ScheduledDays < 0 {
		return ErrNegativeInterval
	}

	if s.Reps < s.Lapses {
		return ErrRepsBelowLapses
	}

	if s.State == StateNew {
		if s.Reps != 0 || s.LastReview != nil {
			return ErrNewStateReviewed
		}
		return nil
	}

	// Difficulty and stability are defined for every state except New.
	if s.Difficulty < 1 || s.Difficulty > 10 {
		return ErrDifficultyRange
	}

	if s.Stability <= 0 {
		return ErrNonPositiveStab
	}

	if s.LastReview != nil && s.Due.Before(*s.LastReview) {
		return ErrDueBeforeLastReview
	}

	return nil
}
