// Package wizard models one CSV import as an explicit state machine:
// upload -> mapping -> importing -> done | failed.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// Step is the wizard position.
type Step string

const (
	StepUpload    Step = "upload"
	StepMapping   Step = "mapping"
	StepImporting Step = "importing"
	StepDone      Step = "done"
	StepFailed    Step = "failed"
)

// ErrInvalidTransition is returned when an action is not allowed in the
// current step.
var ErrInvalidTransition = errors.New("invalid transition")

// DefaultPreviewRows is how many rows a preview shows when unset.
const DefaultPreviewRows = 10

// Preview is what the mapping step shows about the loaded file.
type Preview struct {
	FileName        string               `json:"fileName"`
	Headers         []string             `json:"headers"`
	Rows            [][]string           `json:"rows"`
	RowCount        int                  `json:"rowCount"`
	ByteSize        int                  `json:"byteSize"`
	Profiles        []core.ColumnProfile `json:"profiles"`
	EstimatedChunks int                  `json:"estimatedChunks"`
}

// Options are the import choices made before starting.
type Options struct {
	DatasetID   string `json:"datasetId"`
	Deduplicate bool   `json:"deduplicate"`
}

// Job is everything an import run needs, captured when the import begins.
type Job struct {
	SessionID string
	DatasetID string
	FileName  string
	Content   string
	Options   core.ImportOptions
}

// ImportFunc performs the import for a job, publishing progress through
// job.Options.OnProgress.
type ImportFunc func(ctx context.Context, job Job) (*core.ImportResult, error)

// View is a read-only snapshot of a session.
type View struct {
	ID        string              `json:"id"`
	Step      Step                `json:"step"`
	HasHeader bool                `json:"hasHeader"`
	Preview   *Preview            `json:"preview,omitempty"`
	Mapping   core.ColumnMapping  `json:"mapping"`
	Options   Options             `json:"options"`
	Progress  core.ImportProgress `json:"progress"`
	Result    *core.ImportResult  `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Session is one user's pass through the wizard. It is safe for concurrent
// use; the import goroutine and HTTP handlers share it.
type Session struct {
	ID string

	previewRows    int
	maxPayloadSize int

	mu        sync.RWMutex
	step      Step
	fileName  string
	content   string
	hasHeader bool
	preview   *Preview
	mapping   core.ColumnMapping
	options   Options
	progress  core.ImportProgress
	result    *core.ImportResult
	failure   error
	cancel    context.CancelFunc
	done      chan struct{}
	updatedAt time.Time

	listenerMu sync.Mutex
	listeners  []chan core.ImportProgress
}

// NewSession creates a session in the upload step. maxPayloadSize is used
// for the chunk estimate and passed to the importer.
func NewSession(id string, previewRows, maxPayloadSize int) *Session {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	if maxPayloadSize <= 0 {
		maxPayloadSize = core.DefaultMaxPayloadSize
	}
	return &Session{
		ID:             id,
		previewRows:    previewRows,
		maxPayloadSize: maxPayloadSize,
		step:           StepUpload,
		updatedAt:      time.Now(),
	}
}

func (s *Session) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s during %s", ErrInvalidTransition, action, s.step)
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

// Load parses the file, profiles its columns and suggests a mapping, moving
// to the mapping step. A file may be replaced while still mapping.
func (s *Session) Load(fileName, content string, hasHeader bool) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepUpload && s.step != StepMapping {
		return nil, s.invalid("load a file")
	}

	table := core.Parse(content, hasHeader)
	if table == nil || table.RowCount == 0 {
		return nil, core.ErrEmptyContent
	}

	rows := table.Rows
	if len(rows) > s.previewRows {
		rows = rows[:s.previewRows]
	}
	profiles := core.ProfileColumns(table)

	s.fileName = fileName
	s.content = content
	s.hasHeader = hasHeader
	s.preview = &Preview{
		FileName:        fileName,
		Headers:         table.Headers,
		Rows:            rows,
		RowCount:        table.RowCount,
		ByteSize:        table.EstimatedByteSize,
		Profiles:        profiles,
		EstimatedChunks: estimateChunks(table.EstimatedByteSize, s.maxPayloadSize),
	}
	s.mapping = core.AutoDetect(profiles)
	s.step = StepMapping
	s.touch()

	return s.preview, nil
}

// estimateChunks is a size-only guess shown before the real split.
func estimateChunks(size, maxPayload int) int {
	if size <= maxPayload {
		return 1
	}
	return (size + maxPayload - 1) / maxPayload
}

// SetMapping replaces the suggested mapping after validating it against the
// file's headers.
func (s *Session) SetMapping(m core.ColumnMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMapping {
		return s.invalid("change the mapping")
	}
	if err := m.Validate(s.preview.Headers); err != nil {
		return err
	}
	if m.MetadataColumns == nil {
		m.MetadataColumns = []string{}
	}
	s.mapping = m
	s.touch()
	return nil
}

// SetOptions records the target dataset and dedupe flag.
func (s *Session) SetOptions(o Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMapping {
		return s.invalid("change options")
	}
	s.options = o
	s.touch()
	return nil
}

// Begin moves to the importing step and returns the job to run. cancel is
// kept so Cancel can stop the import between chunks.
func (s *Session) Begin(cancel context.CancelFunc) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepMapping {
		return Job{}, s.invalid("start an import")
	}
	if s.options.DatasetID == "" {
		return Job{}, fmt.Errorf("%w: no dataset selected", ErrInvalidTransition)
	}
	if err := s.mapping.Validate(s.preview.Headers); err != nil {
		return Job{}, err
	}

	s.step = StepImporting
	s.cancel = cancel
	s.done = make(chan struct{})
	s.result = nil
	s.failure = nil
	s.progress = core.ImportProgress{
		TotalChunks:  s.preview.EstimatedChunks,
		Errors:       []string{},
		FailedChunks: []int{},
	}
	s.touch()

	return Job{
		SessionID: s.ID,
		DatasetID: s.options.DatasetID,
		FileName:  s.fileName,
		Content:   s.content,
		Options: core.ImportOptions{
			ColumnMapping:  s.mapping,
			HasHeader:      s.hasHeader,
			Deduplicate:    s.options.Deduplicate,
			MaxPayloadSize: s.maxPayloadSize,
			OnProgress:     s.Progress,
		},
	}, nil
}

// Start begins the import and runs it in a goroutine. The run context is
// derived from base, not from a request, so it outlives the caller.
func (s *Session) Start(base context.Context, run ImportFunc) error {
	ctx, cancel := context.WithCancel(base)
	job, err := s.Begin(cancel)
	if err != nil {
		cancel()
		return err
	}

	go func() {
		defer cancel()
		res, err := run(ctx, job)
		if err != nil {
			s.Fail(err)
			return
		}
		s.Finish(res)
	}()
	return nil
}

// Progress records an importer update and fans it out to subscribers.
// Updates outside the importing step are ignored.
func (s *Session) Progress(p core.ImportProgress) {
	s.mu.Lock()
	if s.step != StepImporting {
		s.mu.Unlock()
		return
	}
	s.progress = p
	s.touch()
	s.mu.Unlock()

	s.notify(p)
}

// Finish moves to done with the import result.
func (s *Session) Finish(res *core.ImportResult) error {
	s.mu.Lock()
	if s.step != StepImporting {
		err := s.invalid("finish")
		s.mu.Unlock()
		return err
	}
	s.step = StepDone
	s.result = res
	s.progress.Done = true
	if res != nil {
		s.progress.Cancelled = res.Cancelled
	}
	s.cancel = nil
	s.touch()
	final := s.progress
	close(s.done)
	s.mu.Unlock()

	s.notify(final)
	s.closeListeners()
	return nil
}

// Fail moves to failed. Used for errors that stop an import before any
// chunk is sent, such as a busy dataset.
func (s *Session) Fail(err error) error {
	s.mu.Lock()
	if s.step != StepImporting {
		terr := s.invalid("fail")
		s.mu.Unlock()
		return terr
	}
	s.step = StepFailed
	s.failure = err
	s.cancel = nil
	s.progress.Done = true
	s.touch()
	final := s.progress
	close(s.done)
	s.mu.Unlock()

	s.notify(final)
	s.closeListeners()
	return nil
}

// Cancel asks a running import to stop after the current chunk.
func (s *Session) Cancel() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.step != StepImporting || s.cancel == nil {
		return s.invalid("cancel")
	}
	s.cancel()
	return nil
}

// Reset returns to the upload step, discarding the file. Not allowed while
// importing.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step == StepImporting {
		return s.invalid("reset")
	}
	s.step = StepUpload
	s.fileName = ""
	s.content = ""
	s.preview = nil
	s.mapping = core.ColumnMapping{}
	s.options = Options{}
	s.progress = core.ImportProgress{}
	s.result = nil
	s.failure = nil
	s.done = nil
	s.touch()
	return nil
}

// Wait blocks until a started import finishes or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done == nil {
		return s.invalid("wait")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the import result and failure, if any.
func (s *Session) Result() (*core.ImportResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.failure
}

// View returns a snapshot for rendering.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		ID:        s.ID,
		Step:      s.step,
		HasHeader: s.hasHeader,
		Preview:   s.preview,
		Mapping:   s.mapping,
		Options:   s.options,
		Progress:  s.progress,
		Result:    s.result,
		UpdatedAt: s.updatedAt,
	}
	if s.failure != nil {
		v.Error = s.failure.Error()
	}
	return v
}

// Idle reports whether the session was untouched for ttl and is not
// importing.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step != StepImporting && now.Sub(s.updatedAt) > ttl
}

// Subscribe returns a channel of progress updates. The current progress is
// sent first. The channel is closed when the import ends; for a finished
// import it is closed right after the first value.
func (s *Session) Subscribe() <-chan core.ImportProgress {
	ch := make(chan core.ImportProgress, 10)

	s.mu.RLock()
	current := s.progress
	importing := s.step == StepImporting
	s.mu.RUnlock()

	ch <- current
	if !importing {
		close(ch)
		return ch
	}

	s.listenerMu.Lock()
	s.listeners = append(s.listeners, ch)
	s.listenerMu.Unlock()

	// The import may have ended between the snapshot and registration.
	s.mu.RLock()
	ended := s.step != StepImporting
	s.mu.RUnlock()
	if ended {
		s.closeListeners()
	}
	return ch
}

func (s *Session) notify(p core.ImportProgress) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- p:
		default:
			// Slow listener, drop this update.
		}
	}
}

func (s *Session) closeListeners() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for _, ch := range s.listeners {
		close(ch)
	}
	s.listeners = nil
}
