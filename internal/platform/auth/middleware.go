package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vintora/catalog-api/internal/platform/httpx"
)

const bearerPrefix = "Bearer "

// RequireSession verifies the Authorization bearer token and stores the
// resulting session on the request context. Requests without a valid session
// are rejected before any handler logic runs.
func RequireSession(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if verifier == nil {
				httpx.WriteError(ctx, w, http.StatusServiceUnavailable, "authentication unavailable")
				return
			}

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" || !strings.HasPrefix(header, bearerPrefix) {
				httpx.WriteError(ctx, w, http.StatusUnauthorized, "authentication required")
				return
			}

			session, err := verifier.Verify(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					httpx.WriteError(ctx, w, http.StatusUnauthorized, "session expired")
					return
				}
				httpx.WriteError(ctx, w, http.StatusUnauthorized, "invalid session token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
		})
	}
}
