package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dsimport/internal/core"
	"github.com/JonMunkholm/dsimport/internal/datasets"
	"github.com/JonMunkholm/dsimport/internal/logging"
	"github.com/JonMunkholm/dsimport/internal/web/templates"
	"github.com/JonMunkholm/dsimport/internal/wizard"
)

// maxListedErrors caps the error list in the HTML summary.
const maxListedErrors = 20

// multipartMemory is how much of a multipart form is held in memory.
const multipartMemory = 32 << 20

// handleCreateSession accepts a CSV file and returns the preview with a
// suggested mapping. The file arrives as a multipart "file" field or as a
// raw text/csv body with ?name=.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	name, content, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	hasHeader, deduplicate := true, true
	if s.settings != nil {
		hasHeader, deduplicate = s.settings.ImportDefaults()
	}
	if v := formValue(r, "has_header"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(w, r, badRequest("has_header must be a boolean"))
			return
		}
		hasHeader = b
	}

	sess := s.sessions.Create()
	if _, err := sess.Load(name, content, hasHeader); err != nil {
		_ = s.sessions.Delete(sess.ID)
		s.fail(w, r, err)
		return
	}
	_ = sess.SetOptions(wizard.Options{Deduplicate: deduplicate})

	logging.FromContext(r.Context()).Info("import session created",
		"session_id", sess.ID,
		"file", name,
		"bytes", len(content),
	)
	writeJSON(w, http.StatusCreated, sess.View())
}

func formValue(r *http.Request, key string) string {
	if r.MultipartForm != nil {
		if v := r.MultipartForm.Value[key]; len(v) > 0 {
			return v[0]
		}
	}
	return r.URL.Query().Get(key)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, string, error) {
	maxSize := s.cfg.Import.MaxFileSize

	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
		content, err := core.ReadContent(r.Body, maxSize)
		return path.Base(name), content, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", "", fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return "", "", badRequest("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", badRequest("no file provided")
	}
	defer file.Close()

	content, err := core.ReadContent(file, maxSize)
	if err != nil {
		return "", "", err
	}
	return path.Base(header.Filename), content, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := sess.View()
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportProgress(view.Progress).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var m core.ColumnMapping
	if err := decodeJSON(w, r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := sess.SetMapping(m); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type startImportRequest struct {
	DatasetID   string              `json:"dataset_id"`
	Deduplicate *bool               `json:"deduplicate,omitempty"`
	Mapping     *core.ColumnMapping `json:"column_mapping,omitempty"`
}

// handleStartImport starts the chunked upload in the background and returns
// 202. Progress is read from /progress, the outcome from /result.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req startImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.DatasetID) == "" {
		s.fail(w, r, badRequest("dataset_id is required"))
		return
	}
	if s.datasets.Limiter().Busy(req.DatasetID) {
		s.fail(w, r, core.ErrDatasetBusy)
		return
	}

	if req.Mapping != nil {
		if err := sess.SetMapping(*req.Mapping); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	opts := sess.View().Options
	opts.DatasetID = req.DatasetID
	if req.Deduplicate != nil {
		opts.Deduplicate = *req.Deduplicate
	}
	if err := sess.SetOptions(opts); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := sess.Start(s.baseCtx, s.runImport); err != nil {
		s.fail(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import started",
		"session_id", sess.ID,
		"dataset_id", req.DatasetID,
	)
	writeJSON(w, http.StatusAccepted, sess.View())
}

func (s *Server) runImport(ctx context.Context, job wizard.Job) (*core.ImportResult, error) {
	return s.datasets.ImportCSV(ctx, datasets.ImportRequest{
		DatasetID: job.DatasetID,
		FileName:  job.FileName,
		Content:   job.Content,
		Options:   job.Options,
	})
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := sess.Cancel(); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.View())
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := sess.Reset(); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type resultResponse struct {
	Step   wizard.Step        `json:"step"`
	Result *core.ImportResult `json:"result,omitempty"`
	Error  *core.UserMessage  `json:"error,omitempty"`
}

// handleSessionResult returns the outcome of a finished import. HTMX
// requests get the summary fragment.
func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	step := sess.Step()
	if step != wizard.StepDone && step != wizard.StepFailed {
		s.fail(w, r, fmt.Errorf("%w: result not ready during %s", wizard.ErrInvalidTransition, step))
		return
	}

	res, failure := sess.Result()
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if failure != nil {
			msg := core.MapError(failure)
			templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
			return
		}
		templates.ImportSummary(res, maxListedErrors).Render(r.Context(), w)
		return
	}

	resp := resultResponse{Step: step, Result: res}
	if failure != nil {
		msg := core.MapError(failure)
		resp.Error = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSessionProgress streams progress as server-sent events. The event
// ID is the completion percentage; a reconnecting client sending
// Last-Event-ID skips updates it has already seen. A final "complete" event
// carries the session view.
func (s *Server) handleSessionProgress(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	resumeFrom := -1
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		resumeFrom, _ = strconv.Atoi(v)
	} else if v := r.URL.Query().Get("lastEventId"); v != "" {
		resumeFrom, _ = strconv.Atoi(v)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates := sess.Subscribe()
	for {
		select {
		case p, ok := <-updates:
			if !ok {
				data, _ := json.Marshal(sess.View())
				writeEvent(w, "complete", "", data)
				flusher.Flush()
				return
			}
			pct := p.Percent()
			if pct <= resumeFrom && !p.Done {
				continue
			}
			data, _ := json.Marshal(p)
			writeEvent(w, "progress", strconv.Itoa(pct), data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w io.Writer, event, id string, data []byte) {
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
