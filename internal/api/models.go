package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// Token is the JWT access token used for API authorization
	Token string `json:"token"`
}

// ReviewRequest defines the payload for submitting a card review.
// RequestID is the client-generated idempotency key; retries must reuse it.
type ReviewRequest struct {
	Rating     string `json:"rating"      validate:"required,oneof=again hard good easy"`
	RequestID  string `json:"request_id"  validate:"required,uuid"`
	LessonID   string `json:"lesson_id"   validate:"omitempty,uuid"`
	DurationMs int    `json:"duration_ms" validate:"gte=0"`
}

// PostponeRequest defines the payload for postponing a card.
type PostponeRequest struct {
	Days int `json:"days" validate:"required,gt=0"`
}

// CreateCardsRequest defines the payload for batch card creation within a
// lesson. The batch is persisted atomically.
type CreateCardsRequest struct {
	Cards []CreateCardItem `json:"cards" validate:"required,min=1,max=100,dive"`
}

// CreateCardItem is one card to create. Content is arbitrary JSON; the
// scheduler never inspects it.
type CreateCardItem struct {
	Content json.RawMessage `json:"content" validate:"required"`
}

// CardResponse represents the response data for a card.
type CardResponse struct {
	ID        string      `json:"id"`
	LessonID  string      `json:"lesson_id"`
	Content   interface{} `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CardsResponse wraps a list of cards. Cards is never null: an empty lesson
// serializes as an empty array.
type CardsResponse struct {
	Cards []CardResponse `json:"cards"`
}

// MemoryStateResponse represents the scheduling state of one card for the
// authenticated user.
type MemoryStateResponse struct {
	CardID        string     `json:"card_id"`
	State         string     `json:"state"`
	Difficulty    float64    `json:"difficulty"`
	Stability     float64    `json:"stability"`
	Due           time.Time  `json:"due"`
	LastReview    *time.Time `json:"last_review,omitempty"`
	ScheduledDays float64    `json:"scheduled_days"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	Version       int64      `json:"version"`
}

// QueueItemResponse is one entry of the review queue.
type QueueItemResponse struct {
	Card           CardResponse        `json:"card"`
	State          MemoryStateResponse `json:"state"`
	Retrievability float64             `json:"retrievability"`
}

// QueueResponse is the full review queue. Cards is never null: an empty
// queue serializes as an empty array.
type QueueResponse struct {
	Cards []QueueItemResponse `json:"cards"`
}

// ReviewResponse is returned after a successful review submission.
type ReviewResponse struct {
	State MemoryStateResponse `json:"state"`
	// Duplicate is true when the request ID had been recorded before and the
	// stored outcome was returned instead of applying the rating again.
	Duplicate bool `json:"duplicate,omitempty"`
}

// TodayResponse reports review activity for the current day.
type TodayResponse struct {
	Count int       `json:"count"`
	Since time.Time `json:"since"`
}
