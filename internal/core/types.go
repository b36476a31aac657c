package core

import (
	"context"
	"time"
)

// ColumnType is the semantic type inferred for a CSV column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeJSON    ColumnType = "json"
	TypeArray   ColumnType = "array"
	TypeNull    ColumnType = "null"
	TypeMixed   ColumnType = "mixed"
)

// Structured reports whether values of this type can be decoded as JSON.
// Mixed columns must be rendered as plain text.
func (t ColumnType) Structured() bool {
	return t == TypeJSON || t == TypeArray
}

// ParsedTable is the output of Parse. Every row has exactly len(Headers) cells.
// A ParsedTable is never modified after Parse returns it.
type ParsedTable struct {
	Headers           []string   `json:"headers"`
	Rows              [][]string `json:"rows"`
	RowCount          int        `json:"rowCount"`
	EstimatedByteSize int        `json:"estimatedByteSize"`
}

// Column returns the values of column i across all rows.
func (t *ParsedTable) Column(i int) []string {
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values
}

// ColumnProfile describes one column for preview and role detection.
type ColumnProfile struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	SampleValues []string   `json:"sampleValues"`
	NullCount    int        `json:"nullCount"`
	UniqueCount  int        `json:"uniqueCount"`
}

// ColumnMapping assigns CSV columns to dataset item roles.
type ColumnMapping struct {
	InputColumn     string   `json:"input_column"`
	ExpectedColumn  string   `json:"expected_column,omitempty"`
	MetadataColumns []string `json:"metadata_columns,omitempty"`
}

// ImportTarget identifies the dataset receiving an import.
type ImportTarget struct {
	ProjectID string `json:"projectId"`
	DatasetID string `json:"datasetId"`
}

// ImportRequest is the body of a single import-csv call. Content is one chunk.
type ImportRequest struct {
	Content       string        `json:"content"`
	ColumnMapping ColumnMapping `json:"column_mapping"`
	HasHeader     bool          `json:"has_header"`
	Deduplicate   bool          `json:"deduplicate"`
}

// BulkImportResult is the server response for one chunk and the aggregate
// result of a whole import.
type BulkImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Transport sends one chunk to the backend. A returned error means the chunk
// was not applied and may be retried.
type Transport interface {
	ImportCSV(ctx context.Context, target ImportTarget, req ImportRequest) (*BulkImportResult, error)
}

// ImportProgress is the observable state of an import. CurrentChunk is
// 1-indexed; the import is finished once CurrentChunk == TotalChunks and
// Done is set.
type ImportProgress struct {
	CurrentChunk int      `json:"currentChunk"`
	TotalChunks  int      `json:"totalChunks"`
	ItemsCreated int      `json:"itemsCreated"`
	ItemsSkipped int      `json:"itemsSkipped"`
	Errors       []string `json:"errors"`
	FailedChunks []int    `json:"failedChunks"`
	Done         bool     `json:"done"`
	Cancelled    bool     `json:"cancelled,omitempty"`
}

// Percent returns the share of chunks already finished (0-100). CurrentChunk
// is the chunk being uploaded, so it only counts once Done is set.
func (p ImportProgress) Percent() int {
	if p.TotalChunks <= 0 {
		return 0
	}
	completed := p.CurrentChunk
	if !p.Done && completed > 0 {
		completed--
	}
	return completed * 100 / p.TotalChunks
}

// clone returns a copy safe to hand to listeners.
func (p ImportProgress) clone() ImportProgress {
	out := p
	out.Errors = append([]string{}, p.Errors...)
	out.FailedChunks = append([]int{}, p.FailedChunks...)
	return out
}

// ProgressCallback is invoked at every chunk boundary.
type ProgressCallback func(ImportProgress)

// ImportOptions configures one import run. Zero values select the defaults.
type ImportOptions struct {
	ColumnMapping      ColumnMapping
	HasHeader          bool
	Deduplicate        bool
	MaxPayloadSize     int
	DelayBetweenChunks time.Duration
	OnProgress         ProgressCallback
}

// Defaults for the configuration surface of an import.
const (
	DefaultMaxPayloadSize     = 500 * 1024
	DefaultDelayBetweenChunks = 100 * time.Millisecond
	DefaultMaxRetries         = 3
	DefaultInitialBackoff     = 100 * time.Millisecond
)
