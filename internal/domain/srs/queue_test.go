package srs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-app/mnemo-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueState(t *testing.T, cardID uuid.UUID, due time.Time) *domain.CardMemoryState {
	t.Helper()
	state, err := domain.NewCardMemoryState(uuid.New(), cardID)
	require.NoError(t, err)
	state.Due = due
	return state
}

func TestBuildQueueFiltersAndOrders(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	overdue := queueState(t, uuid.New(), now.Add(-48*time.Hour))
	dueNow := queueState(t, uuid.New(), now)
	justDue := queueState(t, uuid.New(), now.Add(-time.Minute))
	future := queueState(t, uuid.New(), now.Add(time.Second))

	queue := BuildQueue([]*domain.CardMemoryState{future, dueNow, overdue, justDue}, now)

	require.Len(t, queue, 3, "cards due after now are excluded")
	assert.Equal(t, overdue.CardID, queue[0].CardID)
	assert.Equal(t, justDue.CardID, queue[1].CardID)
	assert.Equal(t, dueNow.CardID, queue[2].CardID, "due == now is included")
}

func TestBuildQueueTieBreaksByCardID(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)

	idA := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idB := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	idC := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	queue := BuildQueue([]*domain.CardMemoryState{
		queueState(t, idC, due),
		queueState(t, idA, due),
		queueState(t, idB, due),
	}, now)

	require.Len(t, queue, 3)
	assert.Equal(t, idA, queue[0].CardID)
	assert.Equal(t, idB, queue[1].CardID)
	assert.Equal(t, idC, queue[2].CardID)
}

func TestBuildQueueDeterministic(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	states := make([]*domain.CardMemoryState, 0, 20)
	for i := 0; i < 20; i++ {
		states = append(states, queueState(t, uuid.New(), now.Add(-time.Duration(i%5)*time.Hour)))
	}

	first := BuildQueue(states, now)
	second := BuildQueue(states, now)
	assert.Equal(t, first, second, "identical inputs produce identical queues")
}

func TestBuildQueueEmptyAndNil(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	assert.Empty(t, BuildQueue(nil, now))
	assert.Empty(t, BuildQueue([]*domain.CardMemoryState{nil}, now))
	assert.Empty(t, BuildQueue([]*domain.CardMemoryState{queueState(t, uuid.New(), now.Add(time.Hour))}, now))
}
