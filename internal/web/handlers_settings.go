package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/dsimport/internal/settings"
)

var errNoSettings = errors.New("preferences are not configured")

// preferencesPatch updates only the fields that are present.
type preferencesPatch struct {
	RowHeight   *settings.RowHeight `json:"rowHeight,omitempty"`
	PageSize    *int                `json:"pageSize,omitempty"`
	HasHeader   *bool               `json:"hasHeader,omitempty"`
	Deduplicate *bool               `json:"deduplicate,omitempty"`
}

func (p preferencesPatch) apply(prefs *settings.Preferences) {
	if p.RowHeight != nil {
		prefs.RowHeight = *p.RowHeight
	}
	if p.PageSize != nil {
		prefs.PageSize = *p.PageSize
	}
	if p.HasHeader != nil {
		prefs.HasHeader = *p.HasHeader
	}
	if p.Deduplicate != nil {
		prefs.Deduplicate = *p.Deduplicate
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		s.respondError(w, r, errNoSettings, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.settings.Current())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		s.respondError(w, r, errNoSettings, http.StatusNotFound)
		return
	}

	var patch preferencesPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}

	prefs, err := s.settings.Update(r.Context(), patch.apply)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
