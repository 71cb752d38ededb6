package srs

import (
	"sort"
	"strings"
	"time"

	"github.com/mnemo-app/mnemo-api/internal/domain"
)

// BuildQueue produces the ordered review queue for one user: every state
// with due <= now, ascending by due with card ID as a deterministic
// tiebreaker. The input is not mutated and no error is possible; an empty
// queue is a valid result.
func BuildQueue(states []*domain.CardMemoryState, now time.Time) []*domain.CardMemoryState {
	queue := make([]*domain.CardMemoryState, 0, len(states))
	for _, st := range states {
		if st == nil {
			continue
		}
		if !st.Due.After(now) {
			queue = append(queue, st)
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if !queue[i].Due.Equal(queue[j].Due) {
			return queue[i].Due.Before(queue[j].Due)
		}
		return strings.Compare(queue[i].CardID.String(), queue[j].CardID.String()) < 0
	})

	return queue
}
