package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"modzero/internal/auth"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
)

// InMemoryStore keeps users in maps guarded by a RWMutex, indexed by ID
// and by lowercased email.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]*auth.User
	byEmail map[string]*auth.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]*auth.User),
		byEmail: make(map[string]*auth.User),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return sentinel.ErrConflict
	}
	cloned := *u
	s.byID[u.ID] = &cloned
	s.byEmail[email] = &cloned
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cloned := *u
	return &cloned, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cloned := *u
	return &cloned, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*auth.User, 0, len(s.byID))
	for _, u := range s.byID {
		cloned := *u
		users = append(users, &cloned)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, userID)
	delete(s.byEmail, strings.ToLower(u.Email))
	return nil
}

// Clear removes all users. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[id.UserID]*auth.User)
	s.byEmail = make(map[string]*auth.User)
}
