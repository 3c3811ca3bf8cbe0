package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	// AuthMiddleware guards every route except health, the OAuth callback and
	// public redirect resolution.
	AuthMiddleware func(http.Handler) http.Handler

	AllowedOrigins []string
}

// NewRouter wires routes and middleware around the Server.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	// Health endpoint is deliberately unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Public surface: code exchange and redirect resolution.
	r.Post("/auth/callback", s.handleAuthCallback)
	r.Get("/r/{key}", s.handleResolve)

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Get("/me", s.handleMe)
		r.Route("/urls", func(r chi.Router) {
			r.Get("/", s.handleListURLs)
			r.Post("/", s.handleCreateURL)
			r.Get("/{id}", s.handleGetURL)
			r.Patch("/{id}", s.handleUpdateURL)
			r.Delete("/{id}", s.handleDeleteURL)
		})
	})

	return r
}
