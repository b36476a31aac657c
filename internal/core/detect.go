package core

import "strings"

// Keyword lists for role detection, matched as case-insensitive substrings
// of the column name.
var (
	inputKeywords    = []string{"input", "prompt", "question", "query", "text", "message", "content"}
	expectedKeywords = []string{"expected", "output", "answer", "response", "completion", "result", "ground_truth", "label"}
	metadataKeywords = []string{"metadata", "meta", "tags", "category", "type"}
)

// AutoDetect suggests a column mapping from column names.
//
// Metadata matches always go to MetadataColumns. Otherwise the first
// remaining input-like column becomes the input and the first remaining
// expected-like column becomes the expected output. When no column looks like an input,
// the first column is proposed and removed from the other roles so the
// suggestion passes ColumnMapping.Validate.
func AutoDetect(columns []ColumnProfile) ColumnMapping {
	var m ColumnMapping
	m.MetadataColumns = []string{}

	for _, col := range columns {
		name := strings.ToLower(col.Name)
		switch {
		case matchesAny(name, metadataKeywords):
			m.MetadataColumns = append(m.MetadataColumns, col.Name)
		case m.InputColumn == "" && matchesAny(name, inputKeywords):
			m.InputColumn = col.Name
		case m.ExpectedColumn == "" && matchesAny(name, expectedKeywords):
			m.ExpectedColumn = col.Name
		}
	}

	if m.InputColumn == "" && len(columns) > 0 {
		first := columns[0].Name
		m.InputColumn = first
		if m.ExpectedColumn == first {
			m.ExpectedColumn = ""
		}
		m.MetadataColumns = removeString(m.MetadataColumns, first)
	}

	return m
}

// AutoDetectHeaders is AutoDetect for callers holding only header names.
func AutoDetectHeaders(headers []string) ColumnMapping {
	cols := make([]ColumnProfile, len(headers))
	for i, h := range headers {
		cols[i] = ColumnProfile{Name: h}
	}
	return AutoDetect(cols)
}

func matchesAny(name string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
