package store

import (
	"context"

	"dhruva/internal/credential"
)

// Store persists credential records. Implementations enforce hash
// uniqueness at the storage layer and return sentinel.ErrConflict on a
// duplicate create and sentinel.ErrNotFound on a missing lookup.
type Store interface {
	Create(ctx context.Context, record *credential.Record) error
	FindByHash(ctx context.Context, hash string) (*credential.Record, error)
	ListByHolder(ctx context.Context, address string) ([]*credential.Record, error)
	ListByIssuer(ctx context.Context, address string) ([]*credential.Record, error)
	// FindByHashes returns the subset of records that exist, keyed by hash.
	FindByHashes(ctx context.Context, hashes []string) (map[string]*credential.Record, error)
}
