package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL is a single-process revocation list. Expired entries are
// pruned lazily on writes.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   func() time.Time
}

func NewInMemoryTRL() *InMemoryTRL {
	return &InMemoryTRL{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	for key, expiry := range t.revoked {
		if expiry.Before(now) {
			delete(t.revoked, key)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	expiry, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	return t.clock().Before(expiry), nil
}
