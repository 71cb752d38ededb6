package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ReviewLog
var (
	ErrEmptyLogID        = errors.New("review log ID cannot be empty")
	ErrEmptyLogUserID    = errors.New("review log user ID cannot be empty")
	ErrEmptyLogCardID    = errors.New("review log card ID cannot be empty")
	ErrEmptyLogRequestID = errors.New("review log request ID cannot be empty")
	ErrNegativeDuration  = errors.New("review duration cannot be negative")
)

// ReviewLog is an immutable record of one scheduling decision. Entries are
// append-only: they are the system of record for review statistics and for
// any future re-fitting of model parameters. The engine writes them and never
// reads them back.
//
// RequestID is a client-generated identifier used to deduplicate retried
// submissions before the engine is invoked again.
type ReviewLog struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	CardID         uuid.UUID `json:"card_id"`
	LessonID       uuid.UUID `json:"lesson_id"` // Informational, supplied by the caller.
	RequestID      uuid.UUID `json:"request_id"`
	Rating         Rating    `json:"rating"`
	Timestamp      time.Time `json:"timestamp"`
	ScheduledDays  float64   `json:"scheduled_days"`
	ElapsedDays    float64   `json:"elapsed_days"`
	PriorState     CardState `json:"prior_state"`
	ResultingState CardState `json:"resulting_state"`
	DurationMs     int       `json:"duration_ms"` // Caller-supplied; not used by the engine.
}

// NewReviewLog creates a log entry with a fresh ID.
// Returns an error if validation fails.
func NewReviewLog(
	userID, cardID, lessonID, requestID uuid.UUID,
	rating Rating,
	timestamp time.Time,
	scheduledDays, elapsedDays float64,
	priorState, resultingState CardState,
	durationMs int,
) (*ReviewLog, error) {
	entry := &ReviewLog{
		ID:             uuid.New(),
		UserID:         userID,
		CardID:         cardID,
		LessonID:       lessonID,
		RequestID:      requestID,
		Rating:         rating,
		Timestamp:      timestamp,
		ScheduledDays:  scheduledDays,
		ElapsedDays:    elapsedDays,
		PriorState:     priorState,
		ResultingState: resultingState,
		DurationMs:     durationMs,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the ReviewLog has valid data.
// Returns an error if any field fails validation.
func (l *ReviewLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLogID
	}

	if l.UserID == uuid.Nil {
		return ErrEmptyLogUserID
	}

	if l.CardID == uuid.Nil {
		return ErrEmptyLogCardID
	}

	if l.RequestID == uuid.Nil {
		return ErrEmptyLogRequestID
	}

	if !l.Rating.IsValid() {
		return ErrInvalidRating
	}

	if !l.PriorState.IsValid() || !l.ResultingState.IsValid() {
		return ErrInvalidCardState
	}

	if l.DurationMs < 0 {
		return ErrNegativeDuration
	}

	return nil
}
