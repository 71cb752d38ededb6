package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed
// by the caller. If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// CreateMultiple implements store.CardStore.CreateMultiple.
// Callers are responsible for running this inside a transaction via WithTx;
// the rows are inserted one by one against whatever DBTX the store holds.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}

	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	query := `
		INSERT INTO cards (id, lesson_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, card := range cards {
		_, err := s.db.ExecContext(ctx, query,
			card.ID, card.LessonID, card.Content, card.CreatedAt, card.UpdatedAt)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to insert card",
				slog.String("card_id", card.ID.String()),
				slog.String("error", err.Error()))
			return MapError(err)
		}
	}

	s.logger.DebugContext(ctx, "created cards", slog.Int("count", len(cards)))
	return nil
}

// GetByID implements store.CardStore.GetByID.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `
		SELECT id, lesson_id, content, created_at, updated_at
		FROM cards
		WHERE id = $1
	`
	card := &domain.Card{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&card.ID, &card.LessonID, &card.Content, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrCardNotFound
		}
		return nil, MapError(err)
	}

	return card, nil
}

// ListByLesson implements store.CardStore.ListByLesson.
func (s *PostgresCardStore) ListByLesson(ctx context.Context, lessonID uuid.UUID) ([]*domain.Card, error) {
	query := `
		SELECT id, lesson_id, content, created_at, updated_at
		FROM cards
		WHERE lesson_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, lessonID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card := &domain.Card{}
		if err := rows.Scan(
			&card.ID, &card.LessonID, &card.Content, &card.CreatedAt, &card.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return cards, nil
}

// UpdateContent implements store.CardStore.UpdateContent.
// Returns store.ErrCardNotFound if the card does not exist and
// store.ErrInvalidEntity if the content is not valid JSON.
func (s *PostgresCardStore) UpdateContent(ctx context.Context, id uuid.UUID, content []byte) error {
	if !json.Valid(content) {
		return fmt.Errorf("%w: content is not valid JSON", store.ErrInvalidEntity)
	}

	query := `
		UPDATE cards
		SET content = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, content)
	if err != nil {
		return MapError(err)
	}

	return CheckRowsAffected(result, "card")
}

// Delete implements store.CardStore.Delete. Memory states and review logs
// referencing the card are removed by ON DELETE CASCADE.
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "card")
}

// WithTx implements store.CardStore.WithTx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}
