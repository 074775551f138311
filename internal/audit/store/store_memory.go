package store

import (
	"context"
	"sync"

	"dhruva/internal/audit"
)

// MemoryStore keeps audit events in memory, append-only.
type MemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByActor(_ context.Context, actor string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, event := range s.events {
		if event.Actor == actor {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns every recorded event; test helper.
func (s *MemoryStore) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...)
}
