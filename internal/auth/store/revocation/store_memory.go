package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL keeps revoked token IDs until their expiry. Expired entries are
// pruned lazily on write.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

// NewInMemoryTRL constructs an in-memory token revocation list.
func NewInMemoryTRL(clock Clock) *InMemoryTRL {
	if clock == nil {
		clock = time.Now
	}
	return &InMemoryTRL{revoked: make(map[string]time.Time), clock: clock}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ok, err := admit(jti, ttl); !ok {
		return err
	}
	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	exp, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	return !t.clock().After(exp), nil
}
