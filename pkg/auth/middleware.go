// Package auth guards the streamable HTTP transport with static API keys.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/frousselet/unifi-mcp/pkg/httperr"
)

type contextKey string

const callerKey contextKey = "caller"

// Caller used when no API key identified the peer (stdio, or HTTP without keys).
const Anonymous = "anonymous"

// CallerFromContext returns the authenticated caller, or Anonymous.
func CallerFromContext(ctx context.Context) string {
	if v, _ := ctx.Value(callerKey).(string); v != "" {
		return v
	}
	return Anonymous
}

// WithCaller returns a context carrying caller.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// APIKeyAuth returns middleware that validates API keys and records the
// caller in the request context. Probe endpoints are not guarded.
func APIKeyAuth(keys *KeyStore) func(http.Handler) http.Handler {
	skipPaths := map[string]bool{
		"/healthz": true,
		"/readyz":  true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
					apiKey = bearer
				}
			}
			if apiKey == "" {
				httperr.Unauthorized("missing API key").WriteJSON(w)
				return
			}

			caller, ok := keys.Lookup(apiKey)
			if !ok {
				httperr.Unauthorized("invalid API key").WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
