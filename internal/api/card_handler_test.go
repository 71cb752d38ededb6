package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-app/mnemo-api/internal/api/shared"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/store"
)

type fakeCardCatalog struct {
	mu        sync.Mutex
	cards     map[uuid.UUID]*domain.Card
	createErr error
	listErr   error
}

func newFakeCardCatalog() *fakeCardCatalog {
	return &fakeCardCatalog{cards: make(map[uuid.UUID]*domain.Card)}
}

func (f *fakeCardCatalog) CreateMultiple(_ context.Context, cards []*domain.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}
	for _, card := range cards {
		f.cards[card.ID] = card
	}
	return nil
}

func (f *fakeCardCatalog) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return card, nil
}

func (f *fakeCardCatalog) ListByLesson(_ context.Context, lessonID uuid.UUID) ([]*domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var cards []*domain.Card
	for _, card := range f.cards {
		if card.LessonID == lessonID {
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].CreatedAt.Before(cards[j].CreatedAt) })
	return cards, nil
}

func (f *fakeCardCatalog) UpdateContent(_ context.Context, id uuid.UUID, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return store.ErrCardNotFound
	}
	return card.UpdateContent(content)
}

func (f *fakeCardCatalog) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeCardCatalog) WithTx(_ *sql.Tx) store.CardStore { return f }

// newCardTestHandler builds a CardHandler whose transaction runner invokes
// the callback directly; the fake store ignores the nil transaction.
func newCardTestHandler(catalog store.CardStore) *CardHandler {
	return &CardHandler{
		cardStore: catalog,
		logger:    slog.Default().With(slog.String("component", "card_handler")),
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return fn(ctx, nil)
		},
	}
}

func cardTestRouter(handler *CardHandler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != uuid.Nil {
				req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/lessons/{id}/cards", handler.CreateCards)
	r.Get("/api/lessons/{id}/cards", handler.ListCards)
	return r
}

func TestCreateCardsEndpoint(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	lessonID := uuid.New()
	path := "/api/lessons/" + lessonID.String() + "/cards"

	payload := map[string]any{
		"cards": []map[string]any{
			{"content": map[string]string{"front": "der Hund", "back": "the dog"}},
			{"content": map[string]string{"front": "die Katze", "back": "the cat"}},
		},
	}

	t.Run("creates a batch", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		router := cardTestRouter(newCardTestHandler(catalog), userID)

		rec := doRequest(router, http.MethodPost, path, payload)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp CardsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Cards, 2)
		for _, card := range resp.Cards {
			assert.Equal(t, lessonID.String(), card.LessonID)
		}
		assert.Len(t, catalog.cards, 2)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		router := cardTestRouter(newCardTestHandler(catalog), userID)

		rec := doRequest(router, http.MethodPost, path, map[string]any{"cards": []map[string]any{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, catalog.cards)
	})

	t.Run("missing content is rejected", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		router := cardTestRouter(newCardTestHandler(catalog), userID)

		rec := doRequest(router, http.MethodPost, path, map[string]any{
			"cards": []map[string]any{{}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, catalog.cards)
	})

	t.Run("store validation error maps to 400", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		catalog.createErr = fmt.Errorf("%w: card content must be valid JSON", store.ErrInvalidEntity)
		router := cardTestRouter(newCardTestHandler(catalog), userID)

		rec := doRequest(router, http.MethodPost, path, payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transaction failure creates nothing", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		handler := newCardTestHandler(catalog)
		handler.runTx = func(context.Context, store.TxFn) error {
			return errors.New("begin tx: connection reset")
		}
		router := cardTestRouter(handler, userID)

		rec := doRequest(router, http.MethodPost, path, payload)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, catalog.cards)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()
		router := cardTestRouter(newCardTestHandler(newFakeCardCatalog()), uuid.Nil)

		rec := doRequest(router, http.MethodPost, path, payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed lesson id", func(t *testing.T) {
		t.Parallel()
		router := cardTestRouter(newCardTestHandler(newFakeCardCatalog()), userID)

		rec := doRequest(router, http.MethodPost, "/api/lessons/not-a-uuid/cards", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListCardsEndpoint(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	lessonID := uuid.New()
	path := "/api/lessons/" + lessonID.String() + "/cards"

	t.Run("lists lesson cards in creation order", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		base := time.Now().UTC()
		first := &domain.Card{
			ID:        uuid.New(),
			LessonID:  lessonID,
			Content:   json.RawMessage(`{"front":"eins"}`),
			CreatedAt: base.Add(-time.Hour),
			UpdatedAt: base.Add(-time.Hour),
		}
		second := &domain.Card{
			ID:        uuid.New(),
			LessonID:  lessonID,
			Content:   json.RawMessage(`{"front":"zwei"}`),
			CreatedAt: base,
			UpdatedAt: base,
		}
		other := &domain.Card{
			ID:        uuid.New(),
			LessonID:  uuid.New(),
			Content:   json.RawMessage(`{"front":"drei"}`),
			CreatedAt: base,
			UpdatedAt: base,
		}
		catalog.cards[first.ID] = first
		catalog.cards[second.ID] = second
		catalog.cards[other.ID] = other

		router := cardTestRouter(newCardTestHandler(catalog), userID)
		rec := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp CardsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Cards, 2)
		assert.Equal(t, first.ID.String(), resp.Cards[0].ID)
		assert.Equal(t, second.ID.String(), resp.Cards[1].ID)
	})

	t.Run("empty lesson serializes as empty array", func(t *testing.T) {
		t.Parallel()
		router := cardTestRouter(newCardTestHandler(newFakeCardCatalog()), userID)

		rec := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"cards":[]}`, rec.Body.String())
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		t.Parallel()
		catalog := newFakeCardCatalog()
		catalog.listErr = errors.New("query: connection reset")
		router := cardTestRouter(newCardTestHandler(catalog), userID)

		rec := doRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
