package core

// import_limiter.go bounds how many imports run at once. A semaphore caps the
// total, and a per-dataset claim keeps two imports from writing into the
// same dataset concurrently. WaitForDrain supports graceful shutdown.

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTooManyImports is returned when every slot stays occupied for the
	// whole wait timeout.
	ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

	// ErrDatasetBusy is returned when the dataset already has an import running.
	ErrDatasetBusy = errors.New("dataset is already importing")
)

const (
	DefaultMaxConcurrentImports = 4
	DefaultMaxWaitTime          = 30 * time.Second
)

// ImportLimiter controls concurrent imports.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu       sync.Mutex
	active   int
	datasets map[string]struct{}
}

// NewImportLimiter allows at most maxConcurrent simultaneous imports.
// Acquire waits up to maxWait for a slot.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		datasets:  make(map[string]struct{}),
	}
}

// Acquire claims datasetID and a slot. The dataset claim is checked first so
// a second import into a busy dataset fails fast with ErrDatasetBusy. The
// caller must call Release(datasetID) after a nil return.
func (l *ImportLimiter) Acquire(ctx context.Context, datasetID string) error {
	if err := l.claim(datasetID); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		l.unclaim(datasetID)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// Release frees the slot and the dataset claim taken by Acquire.
func (l *ImportLimiter) Release(datasetID string) {
	l.mu.Lock()
	l.active--
	delete(l.datasets, datasetID)
	l.mu.Unlock()

	<-l.semaphore
}

func (l *ImportLimiter) claim(datasetID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.datasets[datasetID]; busy {
		return ErrDatasetBusy
	}
	l.datasets[datasetID] = struct{}{}
	return nil
}

func (l *ImportLimiter) unclaim(datasetID string) {
	l.mu.Lock()
	delete(l.datasets, datasetID)
	l.mu.Unlock()
}

// Busy reports whether datasetID has an import in flight.
func (l *ImportLimiter) Busy(datasetID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.datasets[datasetID]
	return ok
}

// ActiveCount returns the number of running imports.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// WaitForDrain blocks until no import is running or ctx ends.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ImportLimiterStatus is a snapshot for the status endpoint.
type ImportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *ImportLimiter) Status() ImportLimiterStatus {
	l.mu.Lock()
	active := l.active
	l.mu.Unlock()

	return ImportLimiterStatus{
		Active:        active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
