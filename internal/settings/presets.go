package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// PresetStore is the persistence port for mapping presets.
type PresetStore interface {
	ListPresets(ctx context.Context) ([]core.MappingPreset, error)
	PutPreset(ctx context.Context, p core.MappingPreset) error
	DeletePreset(ctx context.Context, id string) error
}

// Presets manages saved column mappings. Names are unique ignoring case.
type Presets struct {
	mu    sync.Mutex
	store PresetStore
	now   func() time.Time
}

// NewPresets creates a Presets backed by store.
func NewPresets(store PresetStore) *Presets {
	return &Presets{store: store, now: time.Now}
}

// List returns all presets ordered by name.
func (p *Presets) List(ctx context.Context) ([]core.MappingPreset, error) {
	presets, err := p.store.ListPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return presets, nil
}

// Get returns the preset with id.
func (p *Presets) Get(ctx context.Context, id string) (*core.MappingPreset, error) {
	presets, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range presets {
		if presets[i].ID == id {
			return &presets[i], nil
		}
	}
	return nil, core.ErrPresetNotFound
}

// Create saves a new preset for a file with the given headers.
func (p *Presets) Create(ctx context.Context, name string, mapping core.ColumnMapping, headers []string) (*core.MappingPreset, error) {
	now := p.now().UTC()
	preset := core.MappingPreset{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Mapping:   mapping,
		Headers:   headers,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := preset.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkName(ctx, preset.ID, preset.Name); err != nil {
		return nil, err
	}
	if err := p.store.PutPreset(ctx, preset); err != nil {
		return nil, fmt.Errorf("save preset: %w", err)
	}
	return &preset, nil
}

// Update replaces the name, mapping and headers of an existing preset.
func (p *Presets) Update(ctx context.Context, id, name string, mapping core.ColumnMapping, headers []string) (*core.MappingPreset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	preset := *existing
	preset.Name = strings.TrimSpace(name)
	preset.Mapping = mapping
	preset.Headers = headers
	preset.UpdatedAt = p.now().UTC()
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	if err := p.checkName(ctx, id, preset.Name); err != nil {
		return nil, err
	}
	if err := p.store.PutPreset(ctx, preset); err != nil {
		return nil, fmt.Errorf("save preset: %w", err)
	}
	return &preset, nil
}

// Delete removes a preset.
func (p *Presets) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.DeletePreset(ctx, id)
}

// Match returns presets that fit a file with the given headers, best first.
func (p *Presets) Match(ctx context.Context, headers []string) ([]core.PresetMatch, error) {
	presets, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	return core.MatchPresets(headers, presets), nil
}

// checkName fails when another preset already uses name. Callers hold p.mu.
func (p *Presets) checkName(ctx context.Context, id, name string) error {
	presets, err := p.store.ListPresets(ctx)
	if err != nil {
		return fmt.Errorf("list presets: %w", err)
	}
	for _, other := range presets {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return fmt.Errorf("%w: %q", core.ErrPresetExists, name)
		}
	}
	return nil
}
