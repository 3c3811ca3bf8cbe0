package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agus-dev/shortlink-api/internal/app/redirects"
	"github.com/agus-dev/shortlink-api/internal/domain"
	"github.com/agus-dev/shortlink-api/internal/platform/auth/introspect"
)

// Server is the HTTP adapter over the redirect service and the auth verifier.
type Server struct {
	redirects *redirects.Service
	auth      *introspect.Verifier
	logger    *slog.Logger
}

func NewServer(redirectsSvc *redirects.Service, auth *introspect.Verifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		redirects: redirectsSvc,
		auth:      auth,
		logger:    logger,
	}
}

type redirectResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type pagedResponse struct {
	Data []redirectResponse `json:"data"`
	// Last is the key of the final entry, usable as the next `after` cursor.
	Last *string `json:"last"`
}

// urlRequest is the create/update body. Both fields are required; pointers
// distinguish an absent field from an empty one.
type urlRequest struct {
	Key    *string `json:"key"`
	Target *string `json:"target"`
}

type authCallbackRequest struct {
	AuthorizationCode string `json:"authorization_code"`
}

type authCallbackResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type meResponse struct {
	Email string `json:"email"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Email: p.Email})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req authCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuthorizationCode == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "authorization_code is required", nil)
		return
	}

	token, err := s.auth.ExchangeToken(r.Context(), req.AuthorizationCode)
	if err != nil {
		if errors.Is(err, introspect.ErrUnauthorized) {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authorization code rejected", nil)
			return
		}
		s.logger.Error("token exchange failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
		return
	}
	writeJSON(w, http.StatusOK, authCallbackResponse{AccessToken: token.AccessToken, TokenType: token.TokenType})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	rec, err := s.redirects.Resolve(r.Context(), key)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	http.Redirect(w, r, rec.Target, http.StatusPermanentRedirect)
}

func (s *Server) handleListURLs(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid limit", map[string]any{"limit": "must be an integer"})
			return
		}
		limit = n
	}
	after := r.URL.Query().Get("after")

	recs, err := s.redirects.ListRedirects(r.Context(), p.Email, after, limit)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}

	out := pagedResponse{Data: make([]redirectResponse, 0, len(recs))}
	for _, rec := range recs {
		out.Data = append(out.Data, toResponse(rec))
	}
	if len(out.Data) > 0 {
		last := out.Data[len(out.Data)-1].Key
		out.Last = &last
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateURL(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}
	in, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	rec, err := s.redirects.CreateRedirect(r.Context(), p.Email, in)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(rec))
}

func (s *Server) handleGetURL(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}

	rec, err := s.redirects.GetRedirect(r.Context(), p.Email, domain.RedirectID(chi.URLParam(r, "id")))
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec))
}

func (s *Server) handleUpdateURL(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}
	in, ok := decodeURLRequest(w, r)
	if !ok {
		return
	}

	rec, err := s.redirects.UpdateRedirect(r.Context(), p.Email, domain.RedirectID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec))
}

func (s *Server) handleDeleteURL(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal", nil)
		return
	}

	rec, err := s.redirects.DeleteRedirect(r.Context(), p.Email, domain.RedirectID(chi.URLParam(r, "id")))
	if err != nil {
		writeAppError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec))
}

func decodeURLRequest(w http.ResponseWriter, r *http.Request) (redirects.RedirectInput, bool) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", nil)
		return redirects.RedirectInput{}, false
	}
	if req.Key == nil || req.Target == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "key and target are required", nil)
		return redirects.RedirectInput{}, false
	}
	return redirects.RedirectInput{Key: *req.Key, Target: *req.Target}, true
}

func toResponse(rec domain.Redirect) redirectResponse {
	return redirectResponse{
		ID:        string(rec.ID),
		Key:       string(rec.Key),
		Target:    rec.Target,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
