// Package history records the outcome of every CSV import.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// DefaultListLimit applies when List is called with limit <= 0.
const DefaultListLimit = 50

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("import run not found")

// Run is one finished import.
type Run struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	DatasetID    string    `json:"datasetId"`
	FileName     string    `json:"fileName"`
	Created      int       `json:"created"`
	Skipped      int       `json:"skipped"`
	Errors       []string  `json:"errors"`
	FailedChunks []int     `json:"failedChunks"`
	TotalChunks  int       `json:"totalChunks"`
	Cancelled    bool      `json:"cancelled"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Duration is how long the import took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Partial reports whether some chunks failed while others were applied.
func (r Run) Partial() bool {
	return len(r.FailedChunks) > 0 && len(r.FailedChunks) < r.TotalChunks
}

// NewRun builds a Run from an importer result.
func NewRun(target core.ImportTarget, fileName string, res *core.ImportResult, started, finished time.Time) Run {
	run := Run{
		ID:         uuid.NewString(),
		ProjectID:  target.ProjectID,
		DatasetID:  target.DatasetID,
		FileName:   fileName,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if res != nil {
		run.Created = res.Created
		run.Skipped = res.Skipped
		run.Errors = append([]string{}, res.Errors...)
		run.FailedChunks = append([]int{}, res.FailedChunks...)
		run.TotalChunks = res.TotalChunks
		run.Cancelled = res.Cancelled
	}
	return run
}

// Store persists import runs.
type Store interface {
	Record(ctx context.Context, run Run) error
	List(ctx context.Context, datasetID string, limit int) ([]Run, error)
	Get(ctx context.Context, id string) (*Run, error)
}

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs []Run
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Record(_ context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.runs = append(m.runs, run)
	m.mu.Unlock()
	return nil
}

// List returns runs for datasetID, newest first. An empty datasetID lists
// every dataset.
func (m *MemoryStore) List(_ context.Context, datasetID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		if datasetID == "" || r.DatasetID == datasetID {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runs {
		if r.ID == id {
			run := r
			return &run, nil
		}
	}
	return nil, ErrNotFound
}
