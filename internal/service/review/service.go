// Package review orchestrates card reviews: it loads memory states, runs the
// scheduling engine, commits the winner under optimistic concurrency, and
// appends the review log.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
)

// SubmitCommand carries one review submission.
// RequestID is the client-generated idempotency key: retrying a submission
// with the same RequestID returns the originally recorded outcome instead of
// applying the rating twice.
type SubmitCommand struct {
	UserID     uuid.UUID
	CardID     uuid.UUID
	LessonID   uuid.UUID
	RequestID  uuid.UUID
	Rating     domain.Rating
	DurationMs int
	Now        time.Time
}

// SubmitResult is the outcome of a review submission.
type SubmitResult struct {
	// State is the memory state after the submission: the committed new state
	// on success, or the currently stored state on an idempotent replay.
	State *domain.CardMemoryState
	// Log is the appended (or previously recorded) review log entry. May be
	// nil if the log append failed after a successful commit.
	Log *domain.ReviewLog
	// Duplicate is true when the RequestID had already been recorded and no
	// new review was applied.
	Duplicate bool
}

// QueueItem pairs a due memory state with its card content and the model's
// current recall estimate.
type QueueItem struct {
	Card           *domain.Card           `json:"card"`
	State          *domain.CardMemoryState `json:"state"`
	Retrievability float64                `json:"retrievability"`
}

// Service provides review scheduling operations for the API layer.
type Service interface {
	// GetQueue returns the user's due cards ordered for presentation.
	// Returns ErrNoCardsDue when nothing is due at the given instant.
	GetQueue(ctx context.Context, userID uuid.UUID, now time.Time) ([]*QueueItem, error)

	// SubmitReview applies one rating to one card.
	// Returns ErrCardNotFound for an unknown card, ErrInvalidRating for a
	// rating outside 1..4, and ErrReviewConflict when a concurrent submission
	// committed first (the losing rating is still logged, without mutating
	// the state).
	SubmitReview(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error)

	// Postpone pushes a card's due date forward by the given number of days
	// without touching the memory model. Returns ErrCardNotFound when the
	// user has no state for the card.
	Postpone(ctx context.Context, userID, cardID uuid.UUID, days int, now time.Time) (*domain.CardMemoryState, error)

	// CountToday returns how many reviews the user has recorded since the
	// given start of day.
	CountToday(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// Common error types for the review service
var (
	// ErrNoCardsDue indicates that the user has no cards due for review.
	ErrNoCardsDue = errors.New("no cards due for review")

	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidRating indicates a rating outside the valid 1..4 range.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidPostpone indicates a non-positive postpone interval.
	ErrInvalidPostpone = errors.New("postpone days must be positive")

	// ErrReviewConflict indicates that a concurrent submission updated the
	// card first. The caller should re-fetch the card before retrying.
	ErrReviewConflict = errors.New("card was already updated elsewhere")
)

// ServiceError wraps errors from the review service with operation context,
// so consumers can differentiate failures with errors.As instead of string
// matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "get_queue", "submit_review")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewSubmitReviewError returns a new ServiceError for the submit_review operation.
func NewSubmitReviewError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "submit_review",
		Message:   message,
		Err:       err,
	}
}

// NewGetQueueError returns a new ServiceError for the get_queue operation.
func NewGetQueueError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "get_queue",
		Message:   message,
		Err:       err,
	}
}
