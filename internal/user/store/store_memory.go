package store

import (
	"context"
	"strings"
	"sync"

	"dhruva/internal/user"
	"dhruva/pkg/platform/sentinel"
)

// MemoryStore is the in-memory account store used in tests and when no
// database is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*user.Account
	byUsername map[string]string // username -> id
	byWallet   map[string]string // lowercase wallet -> id
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*user.Account),
		byUsername: make(map[string]string),
		byWallet:   make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, account *user.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[account.Username]; ok {
		return sentinel.ErrConflict
	}
	wallet := strings.ToLower(account.WalletAddress)
	if wallet != "" {
		if _, ok := s.byWallet[wallet]; ok {
			return sentinel.ErrConflict
		}
	}

	clone := *account
	s.byID[account.ID] = &clone
	s.byUsername[account.Username] = account.ID
	if wallet != "" {
		s.byWallet[wallet] = account.ID
	}
	return nil
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*user.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *MemoryStore) FindByWallet(_ context.Context, wallet string) (*user.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byWallet[strings.ToLower(wallet)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *MemoryStore) Update(_ context.Context, account *user.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[account.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	wallet := strings.ToLower(account.WalletAddress)
	if wallet != "" && wallet != strings.ToLower(existing.WalletAddress) {
		if _, taken := s.byWallet[wallet]; taken {
			return sentinel.ErrConflict
		}
		if old := strings.ToLower(existing.WalletAddress); old != "" {
			delete(s.byWallet, old)
		}
		s.byWallet[wallet] = account.ID
	}

	clone := *account
	s.byID[account.ID] = &clone
	return nil
}
