package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Used when no Redis URL
// is configured; sessions do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expires: make(map[string]time.Time)}
}

func (s *MemoryStore) Save(_ context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	s.mu.Lock()
	s.expires[id] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[id]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.expires, id)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.expires, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
