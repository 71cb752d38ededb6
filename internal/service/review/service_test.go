package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/mnemo-app/mnemo-api/internal/domain/srs"
	"github.com/mnemo-app/mnemo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemoryStore is an in-memory CardMemoryStore with real version
// compare-and-swap semantics.
type fakeMemoryStore struct {
	mu     sync.Mutex
	states map[string]*domain.CardMemoryState

	commitErr error // forced error for the next CommitState call
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{states: make(map[string]*domain.CardMemoryState)}
}

func memKey(userID, cardID uuid.UUID) string {
	return userID.String() + "/" + cardID.String()
}

func (f *fakeMemoryStore) GetOrCreate(
	_ context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.states[memKey(userID, cardID)]; ok {
		return st.Clone(), nil
	}
	st, err := domain.NewCardMemoryState(userID, cardID)
	if err != nil {
		return nil, err
	}
	f.states[memKey(userID, cardID)] = st
	return st.Clone(), nil
}

func (f *fakeMemoryStore) Get(
	_ context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[memKey(userID, cardID)]
	if !ok {
		return nil, store.ErrMemoryStateNotFound
	}
	return st.Clone(), nil
}

func (f *fakeMemoryStore) ListForUser(
	_ context.Context,
	userID uuid.UUID,
) ([]*domain.CardMemoryState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.CardMemoryState
	for _, st := range f.states {
		if st.UserID == userID {
			out = append(out, st.Clone())
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) CommitState(
	_ context.Context,
	state *domain.CardMemoryState,
	expectedVersion int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		err := f.commitErr
		f.commitErr = nil
		return err
	}
	stored, ok := f.states[memKey(state.UserID, state.CardID)]
	if !ok {
		return store.ErrMemoryStateNotFound
	}
	if stored.Version != expectedVersion {
		return store.ErrConcurrencyConflict
	}
	committed := state.Clone()
	committed.Version = expectedVersion + 1
	f.states[memKey(state.UserID, state.CardID)] = committed
	state.Version = committed.Version
	return nil
}

func (f *fakeMemoryStore) WithTx(_ *sql.Tx) store.CardMemoryStore { return f }

// fakeLogStore is an in-memory append-only ReviewLogStore.
type fakeLogStore struct {
	mu      sync.Mutex
	entries []*domain.ReviewLog

	appendErr error // forced error for the next Append call
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{}
}

func (f *fakeLogStore) Append(_ context.Context, log *domain.ReviewLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		err := f.appendErr
		f.appendErr = nil
		return err
	}
	for _, e := range f.entries {
		if e.UserID == log.UserID && e.RequestID == log.RequestID {
			return store.ErrDuplicateRequest
		}
	}
	clone := *log
	f.entries = append(f.entries, &clone)
	return nil
}

func (f *fakeLogStore) RequestSeen(_ context.Context, userID, requestID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.UserID == userID && e.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLogStore) GetByRequestID(
	_ context.Context,
	userID, requestID uuid.UUID,
) (*domain.ReviewLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.UserID == userID && e.RequestID == requestID {
			clone := *e
			return &clone, nil
		}
	}
	return nil, store.ErrReviewLogNotFound
}

func (f *fakeLogStore) ListForCard(
	_ context.Context,
	userID, cardID uuid.UUID,
) ([]*domain.ReviewLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ReviewLog
	for _, e := range f.entries {
		if e.UserID == userID && e.CardID == cardID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeLogStore) CountSince(
	_ context.Context,
	userID uuid.UUID,
	since time.Time,
) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeLogStore) WithTx(_ *sql.Tx) store.ReviewLogStore { return f }

// fakeCardStore serves a fixed set of cards.
type fakeCardStore struct {
	cards map[uuid.UUID]*domain.Card
}

func newFakeCardStore(cards ...*domain.Card) *fakeCardStore {
	f := &fakeCardStore{cards: make(map[uuid.UUID]*domain.Card)}
	for _, c := range cards {
		f.cards[c.ID] = c
	}
	return f
}

func (f *fakeCardStore) CreateMultiple(_ context.Context, cards []*domain.Card) error {
	for _, c := range cards {
		f.cards[c.ID] = c
	}
	return nil
}

func (f *fakeCardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	c, ok := f.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return c, nil
}

func (f *fakeCardStore) ListByLesson(_ context.Context, lessonID uuid.UUID) ([]*domain.Card, error) {
	var out []*domain.Card
	for _, c := range f.cards {
		if c.LessonID == lessonID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCardStore) UpdateContent(_ context.Context, id uuid.UUID, content []byte) error {
	c, ok := f.cards[id]
	if !ok {
		return store.ErrCardNotFound
	}
	c.Content = json.RawMessage(content)
	return nil
}

func (f *fakeCardStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	delete(f.cards, id)
	return nil
}

func (f *fakeCardStore) WithTx(_ *sql.Tx) store.CardStore { return f }

// fixture bundles a service with its fakes.
type fixture struct {
	svc      Service
	memories *fakeMemoryStore
	logs     *fakeLogStore
	cards    *fakeCardStore
	userID   uuid.UUID
	card     *domain.Card
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	card, err := domain.NewCard(uuid.New(), json.RawMessage(`{"front":"2+2","back":"4"}`))
	require.NoError(t, err)

	memories := newFakeMemoryStore()
	logs := newFakeLogStore()
	cards := newFakeCardStore(card)

	params := srs.NewDefaultParams()
	params.FuzzFactor = -1 // deterministic intervals
	engine, err := srs.NewService(params)
	require.NoError(t, err)

	return &fixture{
		svc:      NewService(memories, logs, cards, engine, nil),
		memories: memories,
		logs:     logs,
		cards:    cards,
		userID: uuid.New(),
		card:   card,
		// Fresh states are due at their wall-clock creation time, so the
		// fixture clock has to be real time rather than a fixed date.
		now: time.Now().UTC(),
	}
}

func (fx *fixture) submit(t *testing.T, rating domain.Rating, requestID uuid.UUID) (*SubmitResult, error) {
	t.Helper()
	return fx.svc.SubmitReview(context.Background(), SubmitCommand{
		UserID:     fx.userID,
		CardID:     fx.card.ID,
		RequestID:  requestID,
		Rating:     rating,
		DurationMs: 3200,
		Now:        fx.now,
	})
}

func TestSubmitReviewHappyPath(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	result, err := fx.submit(t, domain.RatingGood, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Duplicate)
	assert.Equal(t, domain.StateLearning, result.State.State)
	assert.Equal(t, 1, result.State.Reps)
	assert.Positive(t, result.State.Stability)

	require.NotNil(t, result.Log)
	assert.Equal(t, domain.StateNew, result.Log.PriorState)
	assert.Equal(t, domain.StateLearning, result.Log.ResultingState)
	assert.Equal(t, fx.card.LessonID, result.Log.LessonID)
	assert.Equal(t, domain.RatingGood, result.Log.Rating)

	// The commit is visible to a fresh read and bumped the version.
	stored, err := fx.memories.Get(context.Background(), fx.userID, fx.card.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, domain.StateLearning, stored.State)
}

func TestSubmitReviewIdempotentReplay(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	requestID := uuid.New()

	first, err := fx.submit(t, domain.RatingGood, requestID)
	require.NoError(t, err)

	replay, err := fx.submit(t, domain.RatingGood, requestID)
	require.NoError(t, err)

	assert.True(t, replay.Duplicate)
	assert.Equal(t, first.Log.ID, replay.Log.ID, "stored log entry is returned")
	assert.Equal(t, first.State.Reps, replay.State.Reps, "no second review was applied")
	assert.Len(t, fx.logs.entries, 1)
}

func TestSubmitReviewConflictLogsRating(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	// Establish a state, then force the next commit to lose the version race.
	_, err := fx.submit(t, domain.RatingGood, uuid.New())
	require.NoError(t, err)

	fx.memories.commitErr = store.ErrConcurrencyConflict

	requestID := uuid.New()
	result, err := fx.submit(t, domain.RatingAgain, requestID)
	require.ErrorIs(t, err, ErrReviewConflict)
	assert.Nil(t, result)

	// The losing rating was still appended, against the unchanged state.
	entry, err := fx.logs.GetByRequestID(context.Background(), fx.userID, requestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RatingAgain, entry.Rating)
	assert.Equal(t, entry.PriorState, entry.ResultingState)

	// The stored state was not mutated by the loser.
	stored, err := fx.memories.Get(context.Background(), fx.userID, fx.card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Reps)
}

func TestSubmitReviewLogFailureDoesNotFailCommit(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	fx.logs.appendErr = errors.New("log table on fire")

	result, err := fx.submit(t, domain.RatingGood, uuid.New())
	require.NoError(t, err, "committed review survives a failed log append")
	require.NotNil(t, result)
	assert.Nil(t, result.Log)

	stored, err := fx.memories.Get(context.Background(), fx.userID, fx.card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Reps, "state commit stands")
	assert.Empty(t, fx.logs.entries)
}

func TestSubmitReviewValidation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	t.Run("invalid_rating", func(t *testing.T) {
		_, err := fx.submit(t, domain.Rating(0), uuid.New())
		assert.ErrorIs(t, err, ErrInvalidRating)
	})

	t.Run("unknown_card", func(t *testing.T) {
		_, err := fx.svc.SubmitReview(context.Background(), SubmitCommand{
			UserID:    fx.userID,
			CardID:    uuid.New(),
			RequestID: uuid.New(),
			Rating:    domain.RatingGood,
			Now:       fx.now,
		})
		assert.ErrorIs(t, err, ErrCardNotFound)
	})
}

func TestGetQueue(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	t.Run("empty", func(t *testing.T) {
		_, err := fx.svc.GetQueue(context.Background(), fx.userID, fx.now)
		assert.ErrorIs(t, err, ErrNoCardsDue)
	})

	t.Run("new_card_is_due_immediately", func(t *testing.T) {
		_, err := fx.memories.GetOrCreate(context.Background(), fx.userID, fx.card.ID)
		require.NoError(t, err)

		items, err := fx.svc.GetQueue(context.Background(), fx.userID, time.Now().UTC().Add(time.Second))
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, fx.card.ID, items[0].Card.ID)
		assert.Equal(t, 1.0, items[0].Retrievability, "unreviewed cards forecast certain recall")
	})

	t.Run("reviewed_card_leaves_queue_until_due", func(t *testing.T) {
		result, err := fx.submit(t, domain.RatingGood, uuid.New())
		require.NoError(t, err)

		_, err = fx.svc.GetQueue(context.Background(), fx.userID, fx.now)
		assert.ErrorIs(t, err, ErrNoCardsDue, "card scheduled into the future")

		items, err := fx.svc.GetQueue(context.Background(), fx.userID, result.State.Due)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})
}

func TestGetQueueSkipsDeletedCards(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.memories.GetOrCreate(context.Background(), fx.userID, fx.card.ID)
	require.NoError(t, err)
	require.NoError(t, fx.cards.Delete(context.Background(), fx.card.ID))

	_, err = fx.svc.GetQueue(context.Background(), fx.userID, time.Now().UTC().Add(time.Second))
	assert.ErrorIs(t, err, ErrNoCardsDue, "states without a card do not surface")
}

func TestPostpone(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	result, err := fx.submit(t, domain.RatingGood, uuid.New())
	require.NoError(t, err)

	t.Run("shifts_due_forward", func(t *testing.T) {
		state, err := fx.svc.Postpone(context.Background(), fx.userID, fx.card.ID, 3, fx.now)
		require.NoError(t, err)
		assert.Equal(t, result.State.Due.AddDate(0, 0, 3), state.Due)
		assert.Equal(t, result.State.Stability, state.Stability, "memory model untouched")
	})

	t.Run("unknown_card", func(t *testing.T) {
		_, err := fx.svc.Postpone(context.Background(), fx.userID, uuid.New(), 3, fx.now)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("invalid_days", func(t *testing.T) {
		_, err := fx.svc.Postpone(context.Background(), fx.userID, fx.card.ID, 0, fx.now)
		assert.ErrorIs(t, err, ErrInvalidPostpone)
	})
}

func TestCountToday(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	since := fx.now.Add(-time.Hour)

	count, err := fx.svc.CountToday(context.Background(), fx.userID, since)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = fx.submit(t, domain.RatingGood, uuid.New())
	require.NoError(t, err)

	count, err = fx.svc.CountToday(context.Background(), fx.userID, since)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
