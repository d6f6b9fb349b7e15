package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"modzero/internal/policy"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
)

// InMemoryStore keeps policies in a map guarded by a RWMutex. Used in tests
// and when the server runs without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[id.PolicyID]*policy.Policy
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{policies: make(map[id.PolicyID]*policy.Policy)}
}

func (s *InMemoryStore) Create(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.policies {
		if strings.EqualFold(existing.Name, p.Name) {
			return sentinel.ErrConflict
		}
	}
	s.policies[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, policyID id.PolicyID) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.policies {
		if strings.EqualFold(p.Name, name) {
			return clone(p), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, clone(p))
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if p.Active {
			out = append(out, clone(p))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.policies[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, policyID id.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[policyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.policies, policyID)
	return nil
}

// Clear removes all policies. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = make(map[id.PolicyID]*policy.Policy)
}

func clone(p *policy.Policy) *policy.Policy {
	cloned := *p
	cloned.Weights = make(map[trust.FactorName]float64, len(p.Weights))
	for name, weight := range p.Weights {
		cloned.Weights[name] = weight
	}
	return &cloned
}

func sortByCreation(policies []*policy.Policy) {
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].CreatedAt.Equal(policies[j].CreatedAt) {
			return policies[i].ID.String() < policies[j].ID.String()
		}
		return policies[i].CreatedAt.Before(policies[j].CreatedAt)
	})
}
