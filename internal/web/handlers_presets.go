package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dsimport/internal/core"
	"github.com/JonMunkholm/dsimport/internal/logging"
)

var errNoPresets = errors.New("presets are not configured")

// presetRequest creates or updates a preset. With SessionID set, headers
// and mapping default to the session's file and current mapping.
type presetRequest struct {
	Name      string              `json:"name"`
	SessionID string              `json:"session_id,omitempty"`
	Mapping   *core.ColumnMapping `json:"mapping,omitempty"`
	Headers   []string            `json:"headers,omitempty"`
}

func (s *Server) decodePreset(w http.ResponseWriter, r *http.Request) (presetRequest, error) {
	var req presetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, err
	}
	if req.SessionID == "" {
		if req.Mapping == nil {
			return req, badRequest("mapping or session_id is required")
		}
		return req, nil
	}

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return req, err
	}
	view := sess.View()
	if view.Preview == nil {
		return req, badRequest("session %s has no file loaded", req.SessionID)
	}
	if req.Headers == nil {
		req.Headers = view.Preview.Headers
	}
	if req.Mapping == nil {
		m := view.Mapping
		req.Mapping = &m
	}
	return req, nil
}

// requirePresets writes a 404 and returns false when presets are disabled.
func (s *Server) requirePresets(w http.ResponseWriter, r *http.Request) bool {
	if s.presets == nil {
		s.respondError(w, r, errNoPresets, http.StatusNotFound)
		return false
	}
	return true
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	presets, err := s.presets.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": presets})
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	req, err := s.decodePreset(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	preset, err := s.presets.Create(r.Context(), req.Name, *req.Mapping, req.Headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("mapping preset saved", "preset_id", preset.ID, "name", preset.Name)
	writeJSON(w, http.StatusCreated, preset)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	preset, err := s.presets.Get(r.Context(), chi.URLParam(r, "presetID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	req, err := s.decodePreset(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	preset, err := s.presets.Update(r.Context(), chi.URLParam(r, "presetID"), req.Name, *req.Mapping, req.Headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	if err := s.presets.Delete(r.Context(), chi.URLParam(r, "presetID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatchPresets suggests presets for the session's file.
func (s *Server) handleMatchPresets(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	matches := []core.PresetMatch{}
	if view := sess.View(); view.Preview != nil {
		matches, err = s.presets.Match(r.Context(), view.Preview.Headers)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": matches})
}

// handleApplyPreset sets the session's mapping from a preset.
func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	if !s.requirePresets(w, r) {
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	preset, err := s.presets.Get(r.Context(), chi.URLParam(r, "presetID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := sess.SetMapping(preset.Mapping); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}
