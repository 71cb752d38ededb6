package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
)

// ReviewLogStore defines the interface for review log persistence.
// Review logs are append-only: entries are never updated or deleted,
// so the interface exposes no mutation beyond Append.
type ReviewLogStore interface {
	// Append saves a new review log entry.
	// Returns ErrDuplicateRequest if an entry with the same (user, request)
	// pair already exists, which callers use for idempotent submission.
	// Returns validation errors if the log data is invalid.
	Append(ctx context.Context, log *domain.ReviewLog) error

	// RequestSeen reports whether a review with the given request ID has
	// already been recorded for the user.
	RequestSeen(ctx context.Context, userID, requestID uuid.UUID) (bool, error)

	// GetByRequestID retrieves the log entry recorded for the given
	// (user, request) pair. Returns ErrReviewLogNotFound if none exists.
	GetByRequestID(ctx context.Context, userID, requestID uuid.UUID) (*domain.ReviewLog, error)

	// ListForCard returns the full review history for one (user, card)
	// pair, ordered by timestamp ascending.
	ListForCard(ctx context.Context, userID, cardID uuid.UUID) ([]*domain.ReviewLog, error)

	// CountSince returns the number of reviews the user has recorded at or
	// after the given instant. Used for daily progress reporting.
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// WithTx returns a new ReviewLogStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) ReviewLogStore
}
