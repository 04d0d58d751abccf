package sink

import (
	"context"
	"sync"

	"github.com/rootline/clusterwatch/internal/types"
)

// Sink is the write side of the external event store. Writes must be
// idempotent on EventID: writing the same id twice is a no-op, never
// an error. Implementations must be safe for concurrent use, sessions
// for different kinds write through the same sink.
type Sink interface {
	Write(ctx context.Context, event types.ChangeEvent) error
}

// MemorySink keeps events in memory, deduplicated by event id. Used
// in tests and when no database is configured.
type MemorySink struct {
	mu     sync.RWMutex
	byID   map[string]types.ChangeEvent
	order  []string
	writes int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{byID: make(map[string]types.ChangeEvent)}
}

func (s *MemorySink) Write(_ context.Context, event types.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if _, exists := s.byID[event.EventID]; exists {
		return nil
	}
	s.byID[event.EventID] = event
	s.order = append(s.order, event.EventID)
	return nil
}

// Events returns stored events in first-write order.
func (s *MemorySink) Events() []types.ChangeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]types.ChangeEvent, 0, len(s.order))
	for _, id := range s.order {
		events = append(events, s.byID[id])
	}
	return events
}

// Writes counts every Write call, duplicates included.
func (s *MemorySink) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
