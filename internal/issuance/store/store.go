package store

import (
	"context"
	"time"

	"dhruva/internal/issuance"
)

// Store persists issuance intents. Get returns sentinel.ErrNotFound on a
// missing intent.
type Store interface {
	Create(ctx context.Context, intent *issuance.Intent) error
	Get(ctx context.Context, id string) (*issuance.Intent, error)
	Update(ctx context.Context, intent *issuance.Intent) error
	// ListStuck returns non-terminal intents last touched before the cutoff
	// that still have attempts left.
	ListStuck(ctx context.Context, cutoff time.Time, maxAttempts int) ([]*issuance.Intent, error)
}
