package checkpoint

import (
	"context"
	"sync"
)

// Store persists, per cluster connection and resource kind, the last
// successfully processed continuation token. An absent token means
// "start from current state". Implementations must be safe for
// concurrent use: sessions for different kinds write independently.
type Store interface {
	Get(ctx context.Context, connectionID, kind string) (string, bool, error)
	Set(ctx context.Context, connectionID, kind, token string) error
	// Clear removes the token for one kind, forcing the next session
	// to resync from current state.
	Clear(ctx context.Context, connectionID, kind string) error
}

type key struct {
	connectionID string
	kind         string
}

// MemoryStore is the in-memory fallback used when no database is
// configured, and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[key]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[key]string)}
}

func (s *MemoryStore) Get(_ context.Context, connectionID, kind string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[key{connectionID, kind}]
	return token, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, connectionID, kind, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key{connectionID, kind}] = token
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, connectionID, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key{connectionID, kind})
	return nil
}
