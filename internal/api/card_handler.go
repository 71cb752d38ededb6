package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/mnemo-app/mnemo-api/internal/api/shared"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/platform/logger"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

// CardHandler handles card catalog API requests: creating cards within a
// lesson and listing a lesson's cards.
type CardHandler struct {
	cardStore store.CardStore
	logger    *slog.Logger
	// runTx executes fn within a database transaction; overridable in tests.
	runTx func(ctx context.Context, fn store.TxFn) error
}

// NewCardHandler creates a new CardHandler with the given dependencies.
// The db handle is used to run batch creation inside a transaction.
func NewCardHandler(db *sql.DB, cardStore store.CardStore, log *slog.Logger) *CardHandler {
	if db == nil {
		panic("db cannot be nil")
	}
	if cardStore == nil {
		panic("cardStore cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CardHandler{
		cardStore: cardStore,
		logger:    log.With(slog.String("component", "card_handler")),
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
	}
}

// CreateCards handles POST /api/lessons/{id}/cards.
// The batch is created atomically: one invalid card fails the whole request
// and none of the cards are persisted.
func (h *CardHandler) CreateCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, lessonID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req CreateCardsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	cards := make([]*domain.Card, 0, len(req.Cards))
	for _, item := range req.Cards {
		card, err := domain.NewCard(lessonID, item.Content)
		if err != nil {
			HandleAPIError(w, r, err, "Invalid card content")
			return
		}
		cards = append(cards, card)
	}

	err := h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		return h.cardStore.WithTx(tx).CreateMultiple(ctx, cards)
	})
	if err != nil {
		log.Error("failed to create cards",
			"error", err,
			"user_id", userID,
			"lesson_id", lessonID,
			"count", len(cards))
		HandleAPIError(w, r, err, "Failed to create cards")
		return
	}

	log.Debug("created cards",
		slog.String("user_id", userID.String()),
		slog.String("lesson_id", lessonID.String()),
		slog.Int("count", len(cards)))

	resp := CardsResponse{Cards: make([]CardResponse, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, toCardResponse(card))
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// ListCards handles GET /api/lessons/{id}/cards.
// An unknown lesson is indistinguishable from an empty one: both respond
// 200 with an empty array.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	_, lessonID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	cards, err := h.cardStore.ListByLesson(r.Context(), lessonID)
	if err != nil {
		log.Error("failed to list lesson cards", "error", err, "lesson_id", lessonID)
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}

	resp := CardsResponse{Cards: make([]CardResponse, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, toCardResponse(card))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
