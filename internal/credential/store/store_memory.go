package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"dhruva/internal/credential"
	"dhruva/pkg/platform/sentinel"
)

// MemoryStore keeps credential records in memory. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*credential.Record
}

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]*credential.Record)}
}

func (s *MemoryStore) Create(_ context.Context, record *credential.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(record.Hash)
	if _, exists := s.records[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *record
	s.records[key] = &clone
	return nil
}

func (s *MemoryStore) FindByHash(_ context.Context, hash string) (*credential.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[strings.ToLower(hash)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryStore) ListByHolder(_ context.Context, address string) ([]*credential.Record, error) {
	return s.listBy(func(r *credential.Record) string { return r.Holder }, address), nil
}

func (s *MemoryStore) ListByIssuer(_ context.Context, address string) ([]*credential.Record, error) {
	return s.listBy(func(r *credential.Record) string { return r.Issuer }, address), nil
}

func (s *MemoryStore) listBy(field func(*credential.Record) string, address string) []*credential.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	address = strings.ToLower(address)
	var out []*credential.Record
	for _, record := range s.records {
		if field(record) == address {
			clone := *record
			out = append(out, &clone)
		}
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out
}

func (s *MemoryStore) FindByHashes(_ context.Context, hashes []string) (map[string]*credential.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*credential.Record, len(hashes))
	for _, hash := range hashes {
		if record, ok := s.records[strings.ToLower(hash)]; ok {
			clone := *record
			out[hash] = &clone
		}
	}
	return out, nil
}
