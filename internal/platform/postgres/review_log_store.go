package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend. The review_logs table
// is append-only; idempotency rests on the (user_id, request_id) unique
// constraint.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the
// ReviewLogStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

const reviewLogColumns = `
	id, user_id, card_id, lesson_id, request_id, rating, reviewed_at,
	scheduled_days, elapsed_days, prior_state, resulting_state, duration_ms`

func scanReviewLog(row interface{ Scan(dest ...any) error }) (*domain.ReviewLog, error) {
	log := &domain.ReviewLog{}
	var ratingName, priorName, resultingName string
	err := row.Scan(
		&log.ID, &log.UserID, &log.CardID, &log.LessonID, &log.RequestID,
		&ratingName, &log.Timestamp,
		&log.ScheduledDays, &log.ElapsedDays,
		&priorName, &resultingName, &log.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	if err := log.Rating.UnmarshalText([]byte(ratingName)); err != nil {
		return nil, fmt.Errorf("failed to parse stored rating: %w", err)
	}
	if err := log.PriorState.UnmarshalText([]byte(priorName)); err != nil {
		return nil, fmt.Errorf("failed to parse stored prior state: %w", err)
	}
	if err := log.ResultingState.UnmarshalText([]byte(resultingName)); err != nil {
		return nil, fmt.Errorf("failed to parse stored resulting state: %w", err)
	}
	return log, nil
}

// Append implements store.ReviewLogStore.Append.
// Returns store.ErrDuplicateRequest when the (user, request) pair has
// already been recorded.
func (s *PostgresReviewLogStore) Append(ctx context.Context, log *domain.ReviewLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_logs (` + reviewLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		log.ID, log.UserID, log.CardID, log.LessonID, log.RequestID,
		log.Rating.String(), log.Timestamp,
		log.ScheduledDays, log.ElapsedDays,
		log.PriorState.String(), log.ResultingState.String(), log.DurationMs)
	if err != nil {
		if IsUniqueViolation(err) {
			s.logger.DebugContext(ctx, "duplicate review request",
				slog.String("user_id", log.UserID.String()),
				slog.String("request_id", log.RequestID.String()))
			return MapUniqueViolation(
				err, "review request", "review_logs_user_request_key", store.ErrDuplicateRequest)
		}
		return MapError(err)
	}

	return nil
}

// RequestSeen implements store.ReviewLogStore.RequestSeen.
func (s *PostgresReviewLogStore) RequestSeen(
	ctx context.Context,
	userID, requestID uuid.UUID,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM review_logs WHERE user_id = $1 AND request_id = $2
		)
	`
	var seen bool
	if err := s.db.QueryRowContext(ctx, query, userID, requestID).Scan(&seen); err != nil {
		return false, MapError(err)
	}
	return seen, nil
}

// GetByRequestID implements store.ReviewLogStore.GetByRequestID.
// Returns store.ErrReviewLogNotFound if no entry exists.
func (s *PostgresReviewLogStore) GetByRequestID(
	ctx context.Context,
	userID, requestID uuid.UUID,
) (*domain.ReviewLog, error) {
	query := `SELECT` + reviewLogColumns + `
		FROM review_logs
		WHERE user_id = $1 AND request_id = $2
	`
	log, err := scanReviewLog(s.db.QueryRowContext(ctx, query, userID, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrReviewLogNotFound
		}
		return nil, MapError(err)
	}
	return log, nil
}

// ListForCard implements store.ReviewLogStore.ListForCard.
func (s *PostgresReviewLogStore) ListForCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
) ([]*domain.ReviewLog, error) {
	query := `SELECT` + reviewLogColumns + `
		FROM review_logs
		WHERE user_id = $1 AND card_id = $2
		ORDER BY reviewed_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, cardID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*domain.ReviewLog
	for rows.Next() {
		log, err := scanReviewLog(rows)
		if err != nil {
			return nil, MapError(err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return logs, nil
}

// CountSince implements store.ReviewLogStore.CountSince.
func (s *PostgresReviewLogStore) CountSince(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*) FROM review_logs
		WHERE user_id = $1 AND reviewed_at >= $2
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// WithTx implements store.ReviewLogStore.WithTx.
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{
		db:     tx,
		logger: s.logger,
	}
}
