package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

// PostgresCardMemoryStore implements the store.CardMemoryStore interface
// using a PostgreSQL database as the storage backend. Rows carry a version
// column that CommitState uses for optimistic concurrency control.
type PostgresCardMemoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardMemoryStore creates a new PostgreSQL implementation of the
// CardMemoryStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresCardMemoryStore(db store.DBTX, logger *slog.Logger) *PostgresCardMemoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardMemoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_memory_store")),
	}
}

// Ensure PostgresCardMemoryStore implements store.CardMemoryStore interface
var _ store.CardMemoryStore = (*PostgresCardMemoryStore)(nil)

const memoryStateColumns = `
	user_id, card_id, state, difficulty, stability, due, last_review,
	scheduled_days, elapsed_days, reps, lapses, learning_step, version,
	created_at, updated_at`

// scanMemoryState scans one row into a CardMemoryState. The state column is
// stored as text and parsed back into the enum.
func scanMemoryState(row interface{ Scan(dest ...any) error }) (*domain.CardMemoryState, error) {
	state := &domain.CardMemoryState{}
	var stateName string
	err := row.Scan(
		&state.UserID, &state.CardID, &stateName,
		&state.Difficulty, &state.Stability, &state.Due, &state.LastReview,
		&state.ScheduledDays, &state.ElapsedDays,
		&state.Reps, &state.Lapses, &state.LearningStep, &state.Version,
		&state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := state.State.UnmarshalText([]byte(stateName)); err != nil {
		return nil, fmt.Errorf("failed to parse stored card state: %w", err)
	}
	return state, nil
}

// GetOrCreate implements store.CardMemoryStore.GetOrCreate. The insert uses
// ON CONFLICT DO NOTHING so that two callers racing on a missing row both end
// up reading the single row that won.
func (s *PostgresCardMemoryStore) GetOrCreate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	fresh, err := domain.NewCardMemoryState(userID, cardID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	insert := `
		INSERT INTO card_memory_states (
			user_id, card_id, state, due, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, card_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, insert,
		fresh.UserID, fresh.CardID, fresh.State.String(), fresh.Due,
		fresh.Version, fresh.CreatedAt, fresh.UpdatedAt)
	if err != nil {
		return nil, MapError(err)
	}

	if rows, raErr := result.RowsAffected(); raErr == nil && rows > 0 {
		s.logger.DebugContext(ctx, "created fresh memory state",
			slog.String("user_id", userID.String()),
			slog.String("card_id", cardID.String()))
	}

	return s.Get(ctx, userID, cardID)
}

// Get implements store.CardMemoryStore.Get.
// Returns store.ErrMemoryStateNotFound if no state exists.
func (s *PostgresCardMemoryStore) Get(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	query := `SELECT` + memoryStateColumns + `
		FROM card_memory_states
		WHERE user_id = $1 AND card_id = $2
	`
	state, err := scanMemoryState(s.db.QueryRowContext(ctx, query, userID, cardID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrMemoryStateNotFound
		}
		return nil, MapError(err)
	}
	return state, nil
}

// ListForUser implements store.CardMemoryStore.ListForUser.
func (s *PostgresCardMemoryStore) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.CardMemoryState, error) {
	query := `SELECT` + memoryStateColumns + `
		FROM card_memory_states
		WHERE user_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.CardMemoryState
	for rows.Next() {
		state, err := scanMemoryState(rows)
		if err != nil {
			return nil, MapError(err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return states, nil
}

// CommitState implements store.CardMemoryStore.CommitState. The UPDATE is
// guarded by the version column: zero rows affected with an existing row
// means another writer got there first.
func (s *PostgresCardMemoryStore) CommitState(
	ctx context.Context,
	state *domain.CardMemoryState,
	expectedVersion int64,
) error {
	if state == nil {
		return fmt.Errorf("%w: nil memory state", store.ErrInvalidEntity)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE card_memory_states
		SET state = $3, difficulty = $4, stability = $5, due = $6,
			last_review = $7, scheduled_days = $8, elapsed_days = $9,
			reps = $10, lapses = $11, learning_step = $12,
			version = version + 1, updated_at = $13
		WHERE user_id = $1 AND card_id = $2 AND version = $14
	`
	result, err := s.db.ExecContext(ctx, query,
		state.UserID, state.CardID, state.State.String(),
		state.Difficulty, state.Stability, state.Due, state.LastReview,
		state.ScheduledDays, state.ElapsedDays,
		state.Reps, state.Lapses, state.LearningStep,
		state.UpdatedAt, expectedVersion)
	if err != nil {
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		state.Version = expectedVersion + 1
		return nil
	}

	// Zero rows: either the row is gone or the version moved on. Distinguish
	// so callers can retry conflicts but surface missing rows.
	var exists bool
	checkQuery := `
		SELECT EXISTS (
			SELECT 1 FROM card_memory_states WHERE user_id = $1 AND card_id = $2
		)
	`
	if err := s.db.QueryRowContext(ctx, checkQuery, state.UserID, state.CardID).Scan(&exists); err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrMemoryStateNotFound
	}

	s.logger.DebugContext(ctx, "memory state version conflict",
		slog.String("user_id", state.UserID.String()),
		slog.String("card_id", state.CardID.String()),
		slog.Int64("expected_version", expectedVersion))
	return store.ErrConcurrencyConflict
}

// WithTx implements store.CardMemoryStore.WithTx.
func (s *PostgresCardMemoryStore) WithTx(tx *sql.Tx) store.CardMemoryStore {
	return &PostgresCardMemoryStore{
		db:     tx,
		logger: s.logger,
	}
}
