package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by the dev server without a database path.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Identity
	writes int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Identity)}
}

func (s *MemoryStore) FindBySubject(ctx context.Context, subject string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byID[subject]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) Save(ctx context.Context, identity Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[identity.Subject] = identity
	s.writes++
	return nil
}

// Writes returns how many Save calls have succeeded.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
