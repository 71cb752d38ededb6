package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/domain/srs"
	"github.com/mnemo-app/mnemo-api/internal/platform/logger"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*reviewServiceImpl)(nil)

// reviewServiceImpl implements the Service interface.
//
// State commits and log appends are deliberately not wrapped in one
// transaction: the memory state is the scheduling source of truth and the log
// is an append-only audit trail, so a failed append must never roll back a
// committed review.
type reviewServiceImpl struct {
	memories store.CardMemoryStore
	logs     store.ReviewLogStore
	cards    store.CardStore
	engine   srs.Service
	logger   *slog.Logger
}

// NewService creates a new review Service implementation.
func NewService(
	memories store.CardMemoryStore,
	logs store.ReviewLogStore,
	cards store.CardStore,
	engine srs.Service,
	log *slog.Logger,
) Service {
	if memories == nil {
		panic("memories cannot be nil")
	}
	if logs == nil {
		panic("logs cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &reviewServiceImpl{
		memories: memories,
		logs:     logs,
		cards:    cards,
		engine:   engine,
		logger:   log.With(slog.String("component", "review_service")),
	}
}

// GetQueue implements Service.GetQueue.
func (s *reviewServiceImpl) GetQueue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) ([]*QueueItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	states, err := s.memories.ListForUser(ctx, userID)
	if err != nil {
		log.Error("failed to list memory states",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewGetQueueError("failed to load memory states", err)
	}

	due := srs.BuildQueue(states, now)
	if len(due) == 0 {
		log.Debug("no cards due", slog.String("user_id", userID.String()))
		return nil, ErrNoCardsDue
	}

	items := make([]*QueueItem, 0, len(due))
	for _, state := range due {
		card, err := s.cards.GetByID(ctx, state.CardID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// The card was deleted out from under its memory state;
				// skip it rather than failing the whole queue.
				log.Warn("memory state references missing card",
					slog.String("user_id", userID.String()),
					slog.String("card_id", state.CardID.String()))
				continue
			}
			return nil, NewGetQueueError("failed to load card content", err)
		}

		items = append(items, &QueueItem{
			Card:           card,
			State:          state,
			Retrievability: s.engine.Retrievability(state, now),
		})
	}

	if len(items) == 0 {
		return nil, ErrNoCardsDue
	}

	log.Debug("built review queue",
		slog.String("user_id", userID.String()),
		slog.Int("due_count", len(items)))
	return items, nil
}

// SubmitReview implements Service.SubmitReview.
func (s *reviewServiceImpl) SubmitReview(
	ctx context.Context,
	cmd SubmitCommand,
) (*SubmitResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !cmd.Rating.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(cmd.Rating))
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Idempotent replay: a request ID we have already logged means the rating
	// was applied (or deliberately recorded) before. Return the stored
	// outcome without touching the engine.
	if prior, err := s.logs.GetByRequestID(ctx, cmd.UserID, cmd.RequestID); err == nil {
		state, getErr := s.memories.Get(ctx, cmd.UserID, cmd.CardID)
		if getErr != nil {
			return nil, NewSubmitReviewError("failed to load state for replayed request", getErr)
		}
		log.Debug("replayed duplicate review request",
			slog.String("user_id", cmd.UserID.String()),
			slog.String("request_id", cmd.RequestID.String()))
		return &SubmitResult{State: state, Log: prior, Duplicate: true}, nil
	} else if !errors.Is(err, store.ErrReviewLogNotFound) {
		return nil, NewSubmitReviewError("failed to check request id", err)
	}

	card, err := s.cards.GetByID(ctx, cmd.CardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, NewSubmitReviewError("failed to load card", err)
	}

	lessonID := cmd.LessonID
	if lessonID == uuid.Nil {
		lessonID = card.LessonID
	}

	state, err := s.memories.GetOrCreate(ctx, cmd.UserID, cmd.CardID)
	if err != nil {
		return nil, NewSubmitReviewError("failed to load memory state", err)
	}

	newState, result, err := s.engine.ReviewCard(state, cmd.Rating, now)
	if err != nil {
		if errors.Is(err, srs.ErrInvalidRating) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(cmd.Rating))
		}
		log.Error("scheduling engine rejected review",
			slog.String("error", err.Error()),
			slog.String("user_id", cmd.UserID.String()),
			slog.String("card_id", cmd.CardID.String()))
		return nil, NewSubmitReviewError("failed to compute new state", err)
	}

	err = s.memories.CommitState(ctx, newState, state.Version)
	switch {
	case err == nil:
		entry := s.appendLog(ctx, log, cmd, lessonID, now,
			result.ScheduledDays, result.ElapsedDays, result.PriorState, result.ResultingState)

		log.Debug("review committed",
			slog.String("user_id", cmd.UserID.String()),
			slog.String("card_id", cmd.CardID.String()),
			slog.String("rating", cmd.Rating.String()),
			slog.String("state", newState.State.String()),
			slog.Time("due", newState.Due))
		return &SubmitResult{State: newState, Log: entry}, nil

	case errors.Is(err, store.ErrConcurrencyConflict):
		// A concurrent submission won the version race. The losing rating is
		// still recorded against the unchanged winner state.
		fresh, getErr := s.memories.Get(ctx, cmd.UserID, cmd.CardID)
		if getErr != nil {
			return nil, NewSubmitReviewError("failed to reload state after conflict", getErr)
		}
		s.appendLog(ctx, log, cmd, lessonID, now,
			fresh.ScheduledDays, result.ElapsedDays, fresh.State, fresh.State)

		log.Warn("review lost version race",
			slog.String("user_id", cmd.UserID.String()),
			slog.String("card_id", cmd.CardID.String()),
			slog.Int64("expected_version", state.Version))
		return nil, ErrReviewConflict

	default:
		return nil, NewSubmitReviewError("failed to commit new state", err)
	}
}

// appendLog appends a review log entry, treating failure as a logged warning
// rather than an error: the state commit has already happened (or was
// deliberately skipped) and must not be affected.
func (s *reviewServiceImpl) appendLog(
	ctx context.Context,
	log *slog.Logger,
	cmd SubmitCommand,
	lessonID uuid.UUID,
	now time.Time,
	scheduledDays, elapsedDays float64,
	priorState, resultingState domain.CardState,
) *domain.ReviewLog {
	entry, err := domain.NewReviewLog(
		cmd.UserID, cmd.CardID, lessonID, cmd.RequestID,
		cmd.Rating, now,
		scheduledDays, elapsedDays,
		priorState, resultingState,
		cmd.DurationMs,
	)
	if err != nil {
		log.Error("failed to build review log entry",
			slog.String("error", err.Error()),
			slog.String("user_id", cmd.UserID.String()),
			slog.String("card_id", cmd.CardID.String()))
		return nil
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		log.Error("failed to append review log",
			slog.String("error", err.Error()),
			slog.String("user_id", cmd.UserID.String()),
			slog.String("card_id", cmd.CardID.String()),
			slog.String("request_id", cmd.RequestID.String()))
		return nil
	}

	return entry
}

// Postpone implements Service.Postpone.
func (s *reviewServiceImpl) Postpone(
	ctx context.Context,
	userID, cardID uuid.UUID,
	days int,
	now time.Time,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := s.memories.Get(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to load memory state: %w", err)
	}

	newState, err := s.engine.PostponeReview(state, days, now)
	if err != nil {
		if errors.Is(err, srs.ErrInvalidDays) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPostpone, days)
		}
		return nil, fmt.Errorf("failed to postpone review: %w", err)
	}

	if err := s.memories.CommitState(ctx, newState, state.Version); err != nil {
		if errors.Is(err, store.ErrConcurrencyConflict) {
			return nil, ErrReviewConflict
		}
		return nil, fmt.Errorf("failed to commit postponed state: %w", err)
	}

	log.Debug("postponed card",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()),
		slog.Int("days", days))
	return newState, nil
}

// CountToday implements Service.CountToday.
func (s *reviewServiceImpl) CountToday(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (int, error) {
	count, err := s.logs.CountSince(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}
