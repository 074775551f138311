// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware and consumed by services. Keeping this package
// free of net/http dependencies means services import only what they need.
//
// Request-scoped time matters here: credential hashing folds an issuance
// timestamp into the digest, so the whole request must agree on one "now".
// Tests inject a fixed time with WithTime to get deterministic hashes.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	walletKey      struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyWallet      = walletKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Wallet retrieves the authenticated wallet address (lowercase) from the
// context. Empty when the request is unauthenticated.
func Wallet(ctx context.Context) string {
	if addr, ok := ctx.Value(ContextKeyWallet).(string); ok {
		return addr
	}
	return ""
}

// WithWallet injects an authenticated wallet address into the context.
func WithWallet(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, ContextKeyWallet, address)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests that don't care).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
