package core

import (
	"errors"
	"testing"
)

func TestMatchHeaders(t *testing.T) {
	tests := []struct {
		name   string
		csv    []string
		preset []string
		want   float64
	}{
		{"exact", []string{"question", "answer"}, []string{"question", "answer"}, 1},
		{"case and space", []string{" Question", "ANSWER "}, []string{"question", "answer"}, 1},
		{"half", []string{"question"}, []string{"question", "answer"}, 0.5},
		{"extra file columns", []string{"question", "answer", "id"}, []string{"question", "answer"}, 1},
		{"empty preset", []string{"question"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchHeaders(tt.csv, tt.preset); got != tt.want {
				t.Errorf("matchHeaders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchPresets(t *testing.T) {
	presets := []MappingPreset{
		{
			ID:      "partial",
			Name:    "partial",
			Mapping: ColumnMapping{InputColumn: "question"},
			Headers: []string{"question", "answer", "source", "lang"},
		},
		{
			ID:      "exact",
			Name:    "exact",
			Mapping: ColumnMapping{InputColumn: "question", ExpectedColumn: "answer"},
			Headers: []string{"question", "answer", "source"},
		},
		{
			ID:      "unrelated",
			Name:    "unrelated",
			Mapping: ColumnMapping{InputColumn: "prompt"},
			Headers: []string{"prompt", "completion"},
		},
		{
			ID:      "missing-column",
			Name:    "missing column",
			Mapping: ColumnMapping{InputColumn: "question", ExpectedColumn: "Answer"},
			Headers: []string{"question", "Answer", "source"},
		},
	}

	got := MatchPresets([]string{"question", "answer", "source"}, presets)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	if got[0].Preset.ID != "exact" || got[0].Score != 1 {
		t.Errorf("first match = %s (%v), want exact (1)", got[0].Preset.ID, got[0].Score)
	}
	if got[1].Preset.ID != "partial" || got[1].Score != 0.75 {
		t.Errorf("second match = %s (%v), want partial (0.75)", got[1].Preset.ID, got[1].Score)
	}
}

func TestMatchPresetsNone(t *testing.T) {
	got := MatchPresets([]string{"a"}, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("MatchPresets() = %v, want empty slice", got)
	}
}

func TestMappingPresetValidate(t *testing.T) {
	valid := MappingPreset{
		Name:    "qa",
		Mapping: ColumnMapping{InputColumn: "q", ExpectedColumn: "a"},
		Headers: []string{"q", "a"},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	tests := []struct {
		name   string
		modify func(*MappingPreset)
	}{
		{"blank name", func(p *MappingPreset) { p.Name = "  " }},
		{"no headers", func(p *MappingPreset) { p.Headers = nil }},
		{"bad mapping", func(p *MappingPreset) { p.Mapping.InputColumn = "missing" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.modify(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidPreset) {
				t.Errorf("Validate() = %v, want ErrInvalidPreset", err)
			}
		})
	}
}
