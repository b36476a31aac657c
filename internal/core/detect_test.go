package core

import (
	"reflect"
	"testing"
)

func TestAutoDetectHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    ColumnMapping
	}{
		{
			name:    "prompt response category",
			headers: []string{"prompt", "response", "category"},
			want: ColumnMapping{
				InputColumn:     "prompt",
				ExpectedColumn:  "response",
				MetadataColumns: []string{"category"},
			},
		},
		{
			name:    "case insensitive substrings",
			headers: []string{"ID", "User_Question", "Ground_Truth", "Tags"},
			want: ColumnMapping{
				InputColumn:     "User_Question",
				ExpectedColumn:  "Ground_Truth",
				MetadataColumns: []string{"Tags"},
			},
		},
		{
			name:    "expected before input",
			headers: []string{"answer", "query"},
			want: ColumnMapping{
				InputColumn:     "query",
				ExpectedColumn:  "answer",
				MetadataColumns: []string{},
			},
		},
		{
			name:    "metadata wins over input keywords",
			headers: []string{"content_type", "message"},
			want: ColumnMapping{
				InputColumn:     "message",
				MetadataColumns: []string{"content_type"},
			},
		},
		{
			name:    "first input match wins",
			headers: []string{"input", "text", "output"},
			want: ColumnMapping{
				InputColumn:     "input",
				ExpectedColumn:  "output",
				MetadataColumns: []string{},
			},
		},
		{
			name:    "falls back to first column",
			headers: []string{"foo", "bar"},
			want: ColumnMapping{
				InputColumn:     "foo",
				MetadataColumns: []string{},
			},
		},
		{
			name:    "fallback keeps roles disjoint",
			headers: []string{"category", "foo"},
			want: ColumnMapping{
				InputColumn:     "category",
				MetadataColumns: []string{},
			},
		},
		{
			name:    "no columns",
			headers: nil,
			want:    ColumnMapping{MetadataColumns: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoDetectHeaders(tt.headers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AutoDetectHeaders(%q) = %+v, want %+v", tt.headers, got, tt.want)
			}
			if len(tt.headers) > 0 {
				if err := got.Validate(tt.headers); err != nil {
					t.Errorf("suggested mapping is invalid: %v", err)
				}
			}
		})
	}
}
