package web

// respondError is the single exit for failed requests. The technical error
// is logged with the request ID; the client gets core.MapError's message in
// the format it asked for (HTMX fragment, JSON or plain text).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dsimport/internal/client"
	"github.com/JonMunkholm/dsimport/internal/core"
	"github.com/JonMunkholm/dsimport/internal/history"
	"github.com/JonMunkholm/dsimport/internal/logging"
	"github.com/JonMunkholm/dsimport/internal/settings"
	"github.com/JonMunkholm/dsimport/internal/web/templates"
	"github.com/JonMunkholm/dsimport/internal/wizard"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// statusFor picks the HTTP status for a domain error.
func statusFor(err error) int {
	var (
		se *client.StatusError
		re *requestError
	)
	switch {
	case errors.As(err, &re):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrSessionNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, core.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrEmptyContent),
		errors.Is(err, core.ErrInvalidMapping),
		errors.Is(err, core.ErrInvalidPreset),
		errors.Is(err, settings.ErrInvalidPreferences):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrInvalidTransition),
		errors.Is(err, core.ErrDatasetBusy),
		errors.Is(err, core.ErrPresetExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &se):
		if se.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status statusFor chooses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= 500 {
		logger.Error("request error", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		resp := ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		}
		// Validation details help the client fix its request.
		if status == http.StatusUnprocessableEntity {
			resp.Detail = err.Error()
		}
		writeJSON(w, status, resp)
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
