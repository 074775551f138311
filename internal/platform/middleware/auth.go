package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"dhruva/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the wallet address it
// was issued for. Implemented by the user token service.
type TokenValidator interface {
	WalletFromToken(tokenString string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated wallet address in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}
			wallet, err := validator.WalletFromToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w)
				return
			}
			ctx := requestcontext.WithWallet(r.Context(), strings.ToLower(wallet))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"invalid or expired token","code":"unauthorized"}`))
}
