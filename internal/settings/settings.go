// Package settings holds user preferences for the import UI and persists
// them through a Store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// RowHeight controls table density in the item grid.
type RowHeight string

const (
	RowHeightCompact  RowHeight = "compact"
	RowHeightNormal   RowHeight = "normal"
	RowHeightExpanded RowHeight = "expanded"
)

// Page size bounds.
const (
	DefaultPageSize = 50
	MinPageSize     = 10
	MaxPageSize     = 500
)

// ErrInvalidPreferences wraps every validation failure.
var ErrInvalidPreferences = errors.New("invalid preferences")

// Preferences are the persisted UI choices.
type Preferences struct {
	RowHeight   RowHeight `json:"rowHeight"`
	PageSize    int       `json:"pageSize"`
	HasHeader   bool      `json:"hasHeader"`
	Deduplicate bool      `json:"deduplicate"`
}

// Defaults returns the preferences used before anything is saved.
func Defaults() Preferences {
	return Preferences{
		RowHeight:   RowHeightNormal,
		PageSize:    DefaultPageSize,
		HasHeader:   true,
		Deduplicate: true,
	}
}

// Validate reports every invalid field at once.
func (p Preferences) Validate() error {
	var problems []string
	switch p.RowHeight {
	case RowHeightCompact, RowHeightNormal, RowHeightExpanded:
	default:
		problems = append(problems, fmt.Sprintf("rowHeight %q must be compact, normal or expanded", p.RowHeight))
	}
	if p.PageSize < MinPageSize || p.PageSize > MaxPageSize {
		problems = append(problems, fmt.Sprintf("pageSize %d must be between %d and %d", p.PageSize, MinPageSize, MaxPageSize))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPreferences, strings.Join(problems, "; "))
	}
	return nil
}

// Store is the persistence port for preferences.
type Store interface {
	Load(ctx context.Context) (Preferences, bool, error)
	Save(ctx context.Context, p Preferences) error
}

// Settings owns the current preferences. Updates are visible immediately
// and rolled back when saving fails.
type Settings struct {
	mu      sync.RWMutex
	current Preferences
	store   Store
}

// New loads preferences from store, falling back to Defaults when nothing
// was saved yet.
func New(ctx context.Context, store Store) (*Settings, error) {
	p, ok, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if !ok {
		p = Defaults()
	}
	return &Settings{current: p, store: store}, nil
}

// Current returns a copy of the current preferences.
func (s *Settings) Current() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to a copy of the preferences, validates the result and
// saves it. On a save error the previous preferences are restored.
func (s *Settings) Update(ctx context.Context, fn func(*Preferences)) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.current, err
	}

	err := core.Optimistic(
		func() Preferences { return s.current },
		func(p Preferences) { s.current = p },
		func() { s.current = next },
		func() error { return s.store.Save(ctx, next) },
	)
	if err != nil {
		return s.current, fmt.Errorf("save preferences: %w", err)
	}
	return s.current, nil
}

// ImportDefaults returns the import toggles a new wizard session starts with.
func (s *Settings) ImportDefaults() (hasHeader, deduplicate bool) {
	p := s.Current()
	return p.HasHeader, p.Deduplicate
}
