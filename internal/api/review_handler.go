package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo-api/internal/api/shared"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/platform/logger"
	"github.com/mnemo-app/mnemo-api/internal/service/review"
)

// ReviewHandler handles review scheduling API requests: the due queue,
// review submissions, postponing, and daily activity counts.
type ReviewHandler struct {
	reviewService review.Service
	logger        *slog.Logger
	// timeFunc supplies the current time; overridable in tests.
	timeFunc func() time.Time
}

// NewReviewHandler creates a new ReviewHandler with the given dependencies.
func NewReviewHandler(reviewService review.Service, log *slog.Logger) *ReviewHandler {
	if reviewService == nil {
		panic("reviewService cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        log.With(slog.String("component", "review_handler")),
		timeFunc:      func() time.Time { return time.Now().UTC() },
	}
}

// GetQueue handles GET /api/cards/queue.
// An empty queue is a normal outcome and responds 200 with an empty array.
func (h *ReviewHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	items, err := h.reviewService.GetQueue(r.Context(), userID, h.timeFunc())
	if err != nil && !errors.Is(err, review.ErrNoCardsDue) {
		log.Error("failed to build review queue", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "Failed to build review queue")
		return
	}

	resp := QueueResponse{Cards: make([]QueueItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Cards = append(resp.Cards, QueueItemResponse{
			Card:           toCardResponse(item.Card),
			State:          toMemoryStateResponse(item.State),
			Retrievability: item.Retrievability,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// SubmitReview handles POST /api/cards/{id}/review.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	var rating domain.Rating
	if err := rating.UnmarshalText([]byte(req.Rating)); err != nil {
		HandleAPIError(w, r, review.ErrInvalidRating, "Invalid rating")
		return
	}

	// Validated as UUIDs by the request tags above.
	requestID := uuid.MustParse(req.RequestID)
	var lessonID uuid.UUID
	if req.LessonID != "" {
		lessonID = uuid.MustParse(req.LessonID)
	}

	result, err := h.reviewService.SubmitReview(r.Context(), review.SubmitCommand{
		UserID:     userID,
		CardID:     cardID,
		LessonID:   lessonID,
		RequestID:  requestID,
		Rating:     rating,
		DurationMs: req.DurationMs,
		Now:        h.timeFunc(),
	})
	if err != nil {
		log.Warn("review submission rejected",
			"error", err, "user_id", userID, "card_id", cardID, "request_id", requestID)
		HandleAPIError(w, r, err, "Failed to submit review")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewResponse{
		State:     toMemoryStateResponse(result.State),
		Duplicate: result.Duplicate,
	})
}

// Postpone handles POST /api/cards/{id}/postpone.
func (h *ReviewHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req PostponeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	state, err := h.reviewService.Postpone(r.Context(), userID, cardID, req.Days, h.timeFunc())
	if err != nil {
		log.Warn("postpone rejected", "error", err, "user_id", userID, "card_id", cardID)
		HandleAPIError(w, r, err, "Failed to postpone card")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toMemoryStateResponse(state))
}

// ReviewsToday handles GET /api/reviews/today.
// The day boundary is midnight UTC.
func (h *ReviewHandler) ReviewsToday(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	now := h.timeFunc()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := h.reviewService.CountToday(r.Context(), userID, since)
	if err != nil {
		log.Error("failed to count reviews", "error", err, "user_id", userID)
		HandleAPIError(w, r, err, "Failed to count reviews")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TodayResponse{Count: count, Since: since})
}

func toCardResponse(card *domain.Card) CardResponse {
	var content interface{}
	if len(card.Content) > 0 {
		content = json.RawMessage(card.Content)
	}
	return CardResponse{
		ID:        card.ID.String(),
		LessonID:  card.LessonID.String(),
		Content:   content,
		CreatedAt: card.CreatedAt,
		UpdatedAt: card.UpdatedAt,
	}
}

func toMemoryStateResponse(state *domain.CardMemoryState) MemoryStateResponse {
	return MemoryStateResponse{
		CardID:        state.CardID.String(),
		State:         state.State.String(),
		Difficulty:    state.Difficulty,
		Stability:     state.Stability,
		Due:           state.Due,
		LastReview:    state.LastReview,
		ScheduledDays: state.ScheduledDays,
		Reps:          state.Reps,
		Lapses:        state.Lapses,
		Version:       state.Version,
	}
}
