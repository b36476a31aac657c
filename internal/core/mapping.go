package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors reported before an import starts.
var (
	ErrEmptyContent   = errors.New("empty file: nothing to import")
	ErrInvalidMapping = errors.New("invalid column mapping")
)

// Validate checks the mapping against the table headers. The input column is
// required, every referenced column must exist, and the three roles must not
// share a column.
func (m ColumnMapping) Validate(headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	var problems []string

	if m.InputColumn == "" {
		problems = append(problems, "input column is required")
	} else if !known[m.InputColumn] {
		problems = append(problems, fmt.Sprintf("column not found: %q", m.InputColumn))
	}

	if m.ExpectedColumn != "" {
		if !known[m.ExpectedColumn] {
			problems = append(problems, fmt.Sprintf("column not found: %q", m.ExpectedColumn))
		}
		if m.ExpectedColumn == m.InputColumn {
			problems = append(problems, fmt.Sprintf("column %q is both input and expected", m.InputColumn))
		}
	}

	seen := make(map[string]bool, len(m.MetadataColumns))
	for _, c := range m.MetadataColumns {
		switch {
		case !known[c]:
			problems = append(problems, fmt.Sprintf("column not found: %q", c))
		case seen[c]:
			problems = append(problems, fmt.Sprintf("metadata column %q listed twice", c))
		case c == m.InputColumn:
			problems = append(problems, fmt.Sprintf("column %q is both input and metadata", c))
		case c == m.ExpectedColumn:
			problems = append(problems, fmt.Sprintf("column %q is both expected and metadata", c))
		}
		seen[c] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMapping, strings.Join(problems, "; "))
	}
	return nil
}
