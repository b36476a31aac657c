package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dsimport/internal/history"
)

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	opts, err := s.listOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.datasets.ListDatasets(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.datasets.GetDataset(r.Context(), chi.URLParam(r, "datasetID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameDataset(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.fail(w, r, badRequest("name is required"))
		return
	}

	ds, err := s.datasets.RenameDataset(r.Context(), chi.URLParam(r, "datasetID"), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.datasets.DeleteDataset(r.Context(), chi.URLParam(r, "datasetID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	opts, err := s.listOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.datasets.ListItems(r.Context(), chi.URLParam(r, "datasetID"), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", history.DefaultListLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	runs, err := s.datasets.Imports(r.Context(), chi.URLParam(r, "datasetID"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": runs})
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	run, err := s.datasets.History().Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
