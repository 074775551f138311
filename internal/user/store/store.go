package store

import (
	"context"

	"dhruva/internal/user"
)

// Store persists accounts. Username and wallet address are unique;
// implementations return sentinel.ErrConflict when either collides and
// sentinel.ErrNotFound on missing lookups.
type Store interface {
	Create(ctx context.Context, account *user.Account) error
	FindByUsername(ctx context.Context, username string) (*user.Account, error)
	FindByWallet(ctx context.Context, wallet string) (*user.Account, error)
	Update(ctx context.Context, account *user.Account) error
}
