package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/agus-dev/shortlink-api/internal/platform/auth/introspect"
)

// TokenIntrospector resolves a bearer Authorization header value to the
// authenticated principal's email.
type TokenIntrospector interface {
	Introspect(ctx context.Context, header string) (string, error)
}

// NewAuthMiddleware is the single enforcement point for protected routes.
//
// It rejects requests without an Authorization header before the verifier is
// ever invoked, maps a rejected credential to 401, and maps anything else
// (provider unreachable, cache pool exhausted) to an opaque 500 rather than
// 401. On success the Principal is stored in the request context.
func NewAuthMiddleware(v TokenIntrospector, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.TrimSpace(header) == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}

			email, err := v.Introspect(r.Context(), header)
			if err != nil {
				if errors.Is(err, introspect.ErrUnauthorized) {
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
					return
				}
				logger.Error("token introspection failed", "error", err)
				writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Email: email})))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It accepts an explicit principal email via X-Debug-Email and stores it in
// request context, falling back to defaultEmail when the header is absent.
// Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultEmail string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := strings.TrimSpace(r.Header.Get("X-Debug-Email"))
			if email == "" {
				email = strings.TrimSpace(defaultEmail)
			}
			if email == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal (set X-Debug-Email)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), Principal{Email: email})))
		})
	}
}
