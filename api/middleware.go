package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"chathub/contract"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticated validates the bearer token and stores the caller's identity
// in the request context. The history surface shares the token format with
// the WebSocket handshake.
func Authenticated(log *slog.Logger, auth contract.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			identity, err := auth.Authenticate(token)
			if err != nil {
				log.Debug("Rejected API request", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerIdentity returns the identity the middleware attached.
func CallerIdentity(r *http.Request) (contract.Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(contract.Identity)
	return identity, ok
}
