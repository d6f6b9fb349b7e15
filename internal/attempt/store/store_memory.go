package store

import (
	"context"
	"sort"
	"sync"

	"modzero/internal/attempt"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
)

// InMemoryStore keeps attempt records in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts map[id.AttemptID]*attempt.AccessAttempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{attempts: make(map[id.AttemptID]*attempt.AccessAttempt)}
}

func (s *InMemoryStore) Create(_ context.Context, a *attempt.AccessAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.attempts[a.ID] = clone(a)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, attemptID id.AttemptID) (*attempt.AccessAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*attempt.AccessAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*attempt.AccessAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, clone(a))
		}
	}
	return newestFirst(out, limit), nil
}

func (s *InMemoryStore) ListAll(_ context.Context, limit int) ([]*attempt.AccessAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*attempt.AccessAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, clone(a))
	}
	return newestFirst(out, limit), nil
}

// Clear removes all attempts. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = make(map[id.AttemptID]*attempt.AccessAttempt)
}

func clone(a *attempt.AccessAttempt) *attempt.AccessAttempt {
	cloned := *a
	cloned.Details = make([]trust.ScoreDetail, len(a.Details))
	copy(cloned.Details, a.Details)
	return &cloned
}

func newestFirst(attempts []*attempt.AccessAttempt, limit int) []*attempt.AccessAttempt {
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].Timestamp.Equal(attempts[j].Timestamp) {
			return attempts[i].ID.String() > attempts[j].ID.String()
		}
		return attempts[i].Timestamp.After(attempts[j].Timestamp)
	})
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts
}
