package core

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Sampling limits for column profiling.
const (
	MaxTypeSamples    = 100
	MaxProfileSamples = 5
)

var numberPattern = regexp.MustCompile(`^(-?\d+(\.\d+)?|-?\.\d+)$`)

// detectValueType classifies a single cell value.
func detectValueType(v string) ColumnType {
	if v == "" {
		return TypeNull
	}
	if strings.EqualFold(v, "true") || strings.EqualFold(v, "false") {
		return TypeBoolean
	}
	if numberPattern.MatchString(v) {
		return TypeNumber
	}
	if strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") && json.Valid([]byte(v)) {
		return TypeJSON
	}
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") && json.Valid([]byte(v)) {
		return TypeArray
	}
	return TypeString
}

// InferType returns the column-level type for a sample of values.
//
// Empty values are ignored. A sample that is only JSON objects and arrays is
// json; any other combination of two or more types is mixed.
func InferType(values []string) ColumnType {
	seen := make(map[ColumnType]bool, 4)
	for _, v := range values {
		t := detectValueType(v)
		if t == TypeNull {
			continue
		}
		seen[t] = true
	}

	switch len(seen) {
	case 0:
		return TypeNull
	case 1:
		for t := range seen {
			return t
		}
	case 2:
		if seen[TypeJSON] && seen[TypeArray] {
			return TypeJSON
		}
	}
	return TypeMixed
}

// ProfileColumns builds a profile for every column of the table. The type is
// inferred from the first MaxTypeSamples non-empty values; null and unique
// counts cover the whole column.
func ProfileColumns(t *ParsedTable) []ColumnProfile {
	if t == nil {
		return nil
	}

	profiles := make([]ColumnProfile, len(t.Headers))
	for i, name := range t.Headers {
		var (
			samples []string
			nulls   int
			unique  = make(map[string]struct{})
		)

		for _, row := range t.Rows {
			v := row[i]
			if v == "" {
				nulls++
				continue
			}
			unique[v] = struct{}{}
			if len(samples) < MaxTypeSamples {
				samples = append(samples, v)
			}
		}

		shown := samples
		if len(shown) > MaxProfileSamples {
			shown = shown[:MaxProfileSamples]
		}

		profiles[i] = ColumnProfile{
			Name:         name,
			Type:         InferType(samples),
			SampleValues: append([]string{}, shown...),
			NullCount:    nulls,
			UniqueCount:  len(unique),
		}
	}

	return profiles
}
