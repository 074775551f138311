package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"dhruva/internal/issuance"
	"dhruva/pkg/platform/sentinel"
)

// MemoryStore is the in-memory intent store used in tests and when no
// database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[string]*issuance.Intent
}

func NewMemory() *MemoryStore {
	return &MemoryStore{intents: make(map[string]*issuance.Intent)}
}

func (s *MemoryStore) Create(_ context.Context, intent *issuance.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[intent.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := *intent
	s.intents[intent.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*issuance.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *intent
	return &clone, nil
}

func (s *MemoryStore) Update(_ context.Context, intent *issuance.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[intent.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *intent
	s.intents[intent.ID] = &clone
	return nil
}

func (s *MemoryStore) ListStuck(_ context.Context, cutoff time.Time, maxAttempts int) ([]*issuance.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*issuance.Intent
	for _, intent := range s.intents {
		if intent.Terminal() || intent.Attempts >= maxAttempts || !intent.UpdatedAt.Before(cutoff) {
			continue
		}
		clone := *intent
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
