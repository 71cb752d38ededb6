package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
)

// CardMemoryStore defines the interface for card memory state persistence.
// A memory state is keyed by the (user, card) pair and carries a version
// counter used for optimistic concurrency control.
type CardMemoryStore interface {
	// GetOrCreate returns the memory state for the given (user, card) pair,
	// creating a fresh unreviewed state if none exists yet. Creation is
	// race-safe: when two callers race on a missing row, both receive the
	// single row that won the insert.
	GetOrCreate(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardMemoryState, error)

	// Get retrieves the memory state for the given (user, card) pair.
	// Returns ErrMemoryStateNotFound if no state exists.
	Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardMemoryState, error)

	// ListForUser returns all memory states belonging to the user. The
	// result is unordered; callers that need queue ordering should pass
	// the slice through the scheduling engine.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.CardMemoryState, error)

	// CommitState persists an updated memory state using compare-and-swap
	// semantics: the write succeeds only if the stored row still carries
	// expectedVersion, and increments the version by one on success.
	// Returns ErrConcurrencyConflict if the stored version has moved on,
	// and ErrMemoryStateNotFound if the row does not exist.
	// The state's Version field is updated in place on success.
	CommitState(ctx context.Context, state *domain.CardMemoryState, expectedVersion int64) error

	// WithTx returns a new CardMemoryStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) CardMemoryStore
}
