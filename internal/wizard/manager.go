package wizard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Manager tracks wizard sessions and expires idle ones.
type Manager struct {
	previewRows    int
	maxPayloadSize int
	ttl            time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Sessions it creates share previewRows and
// maxPayloadSize.
func NewManager(previewRows, maxPayloadSize int, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		previewRows:    previewRows,
		maxPayloadSize: maxPayloadSize,
		ttl:            ttl,
		sessions:       make(map[string]*Session),
	}
}

// Create starts a new session in the upload step.
func (m *Manager) Create() *Session {
	s := NewSession(uuid.NewString(), m.previewRows, m.maxPayloadSize)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete cancels any running import and forgets the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	_ = s.Cancel()
	return nil
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. Importing sessions are never removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.Idle(now, m.ttl) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				slog.Debug("expired import sessions", "count", n)
			}
		}
	}
}
