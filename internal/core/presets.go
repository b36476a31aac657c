package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PresetMatchThreshold is the minimum score for a preset to be suggested.
const PresetMatchThreshold = 0.7

// Preset errors.
var (
	ErrInvalidPreset  = errors.New("invalid preset")
	ErrPresetNotFound = errors.New("preset not found")
	ErrPresetExists   = errors.New("preset already exists")
)

// MappingPreset is a saved column mapping together with the headers of the
// file it was made for.
type MappingPreset struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Mapping   ColumnMapping `json:"mapping"`
	Headers   []string      `json:"headers"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PresetMatch is a preset suggested for a file.
type PresetMatch struct {
	Preset MappingPreset `json:"preset"`
	Score  float64       `json:"score"`
}

// Validate checks the name and that the mapping fits the saved headers.
func (p MappingPreset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPreset)
	}
	if len(p.Headers) == 0 {
		return fmt.Errorf("%w: headers are required", ErrInvalidPreset)
	}
	if err := p.Mapping.Validate(p.Headers); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}
	return nil
}

// AppliesTo reports whether every column the preset maps exists in headers.
func (p MappingPreset) AppliesTo(headers []string) bool {
	return p.Mapping.Validate(headers) == nil
}

// MatchPresets scores presets against a file's headers and returns those at
// or above PresetMatchThreshold whose mapping can be applied, best first.
func MatchPresets(headers []string, presets []MappingPreset) []PresetMatch {
	matches := []PresetMatch{}
	for _, p := range presets {
		score := matchHeaders(headers, p.Headers)
		if score >= PresetMatchThreshold && p.AppliesTo(headers) {
			matches = append(matches, PresetMatch{Preset: p, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// matchHeaders returns the share of preset headers present in the file,
// compared case-insensitively.
func matchHeaders(csvHeaders, presetHeaders []string) float64 {
	if len(presetHeaders) == 0 {
		return 0
	}

	csvSet := make(map[string]bool, len(csvHeaders))
	for _, h := range csvHeaders {
		csvSet[strings.ToLower(strings.TrimSpace(h))] = true
	}

	matched := 0
	for _, h := range presetHeaders {
		if csvSet[strings.ToLower(strings.TrimSpace(h))] {
			matched++
		}
	}

	return float64(matched) / float64(len(presetHeaders))
}
