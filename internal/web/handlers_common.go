package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dsimport/internal/client"
	"github.com/JonMunkholm/dsimport/internal/core"
	"github.com/JonMunkholm/dsimport/internal/wizard"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// requestError is a malformed request; it maps to 400.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "invalid request: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{err: fmt.Errorf(format, args...)}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("decode body: %w", err)
	}
	return nil
}

func (s *Server) session(r *http.Request) (*wizard.Session, error) {
	return s.sessions.Get(chi.URLParam(r, "sessionID"))
}

// listOptions reads page, limit and search. limit defaults to the saved
// page size preference.
func (s *Server) listOptions(r *http.Request) (client.ListOptions, error) {
	q := r.URL.Query()
	opts := client.ListOptions{Page: 1, Search: q.Get("search")}
	if s.settings != nil {
		opts.Limit = s.settings.Current().PageSize
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, badRequest("page must be a positive integer")
		}
		opts.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, badRequest("limit must be a positive integer")
		}
		opts.Limit = n
	}
	return opts, nil
}

// intQuery parses an optional non-negative integer parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Sessions int `json:"sessions"`
	Imports  core.ImportLimiterStatus `json:"imports"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Sessions: s.sessions.Len(),
		Imports:  s.datasets.Limiter().Status(),
	})
}
