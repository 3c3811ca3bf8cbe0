package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/agus-dev/shortlink-api/internal/app/redirects"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	body := errorResponse{Error: errorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeAppError maps an application error to its HTTP response. Anything that
// is not a typed *redirects.Error is logged with full detail and flattened to
// an opaque 500 so store internals never cross the boundary.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ae := (*redirects.Error)(nil)
	if errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	logger.Error("internal server error", "error", err, "path", r.URL.Path)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
