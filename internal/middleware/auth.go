// Package middleware provides the HTTP cross-cutting layers: token
// authentication, request logging, CORS and Prometheus instrumentation.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/auth"
	"github.com/enerconnect/portal/internal/errors"
)

type contextKey string

const identityKey contextKey = "identity"

// GetIdentity returns the authenticated identity stored on the request
// context. The second return is false on unauthenticated requests.
func GetIdentity(ctx context.Context) (policy.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(policy.Identity)
	return identity, ok
}

// WithIdentity returns a context carrying identity. Exposed for handler
// tests.
func WithIdentity(ctx context.Context, identity policy.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Authenticate verifies the Bearer token on every request and injects the
// resulting identity into the context. Requests without a valid token are
// rejected.
func Authenticate(tokens *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, errors.Unauthorized("Authentication token required."))
				return
			}

			identity, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	svcErr := errors.GetServiceError(err)
	if svcErr == nil {
		svcErr = errors.Unauthorized("Invalid or expired token.")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcErr.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]any{"error": svcErr})
}
