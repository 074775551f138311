package testutil

import (
	"net/http"
	"strings"
	"time"

	"dhruva/pkg/requestcontext"
)

// WithWallet adds an authenticated wallet address to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithWallet(req *http.Request, address string) *http.Request {
	ctx := requestcontext.WithWallet(req.Context(), strings.ToLower(address))
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped time, which in turn pins credential
// hashes and expiry comparisons.
func WithTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}
