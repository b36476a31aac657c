package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ImportResult is the aggregate of a whole import. Errors are in chunk order:
// server-reported item errors for chunks that were applied and one
// "Chunk <n>: ..." entry for each chunk that exhausted its retries.
type ImportResult struct {
	BulkImportResult
	TotalChunks  int   `json:"totalChunks"`
	FailedChunks []int `json:"failedChunks,omitempty"`
	Cancelled    bool  `json:"cancelled,omitempty"`
}

// Importer uploads CSV content to a dataset in size-bounded chunks.
type Importer struct {
	transport Transport
	retry     RetryPolicy
	logger    *slog.Logger
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithRetryPolicy replaces the default per-chunk retry policy.
func WithRetryPolicy(p RetryPolicy) ImporterOption {
	return func(imp *Importer) { imp.retry = p }
}

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) ImporterOption {
	return func(imp *Importer) { imp.logger = l }
}

// NewImporter creates an Importer sending chunks through t.
func NewImporter(t Transport, opts ...ImporterOption) *Importer {
	imp := &Importer{
		transport: t,
		retry:     DefaultRetryPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	if imp.retry.Sleep == nil {
		imp.retry.Sleep = sleepWithCtx
	}
	return imp
}

// Import splits content into chunks and uploads them one at a time.
//
// Only problems found before the first upload are returned as errors
// (ErrEmptyContent, ErrInvalidMapping). Chunk failures are recorded in the
// result and the import moves on to the next chunk. Cancelling ctx stops
// the import between chunks; the chunk in flight, including its retries,
// always runs to completion so totals stay consistent.
func (imp *Importer) Import(ctx context.Context, target ImportTarget, content string, opts ImportOptions) (*ImportResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	table := Parse(content, opts.HasHeader)
	if table == nil || table.RowCount == 0 {
		return nil, ErrEmptyContent
	}
	if err := opts.ColumnMapping.Validate(table.Headers); err != nil {
		return nil, err
	}

	maxSize := opts.MaxPayloadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPayloadSize
	}
	delay := opts.DelayBetweenChunks
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = DefaultDelayBetweenChunks
	}

	chunks := Chunk(content, opts.HasHeader, maxSize)

	logger := imp.logger.With(
		"project_id", target.ProjectID,
		"dataset_id", target.DatasetID,
		"chunks", len(chunks),
	)
	logger.Info("import started", "rows", table.RowCount, "bytes", table.EstimatedByteSize)
	started := time.Now()

	progress := ImportProgress{
		TotalChunks:  len(chunks),
		Errors:       []string{},
		FailedChunks: []int{},
	}
	publish := func() {
		if opts.OnProgress != nil {
			opts.OnProgress(progress.clone())
		}
	}

	result := &ImportResult{TotalChunks: len(chunks)}
	result.Errors = []string{}

	for i, chunk := range chunks {
		n := i + 1

		if i > 0 {
			if ctx.Err() != nil {
				result.Cancelled = true
				break
			}
			if err := imp.retry.Sleep(ctx, delay); err != nil {
				result.Cancelled = true
				break
			}
		}

		progress.CurrentChunk = n
		publish()

		res, err := imp.uploadChunk(ctx, logger, n, target, ImportRequest{
			Content:       chunk,
			ColumnMapping: opts.ColumnMapping,
			HasHeader:     opts.HasHeader,
			Deduplicate:   opts.Deduplicate,
		})
		if err != nil {
			msg := fmt.Sprintf("Chunk %d: %s", n, err.Error())
			logger.Error("chunk failed", "chunk", n, "error", err)
			result.Errors = append(result.Errors, msg)
			result.FailedChunks = append(result.FailedChunks, n)
			progress.Errors = append(progress.Errors, msg)
			progress.FailedChunks = append(progress.FailedChunks, n)
			publish()
			continue
		}

		result.Created += res.Created
		result.Skipped += res.Skipped
		result.Errors = append(result.Errors, res.Errors...)
		progress.ItemsCreated = result.Created
		progress.ItemsSkipped = result.Skipped
		progress.Errors = append(progress.Errors, res.Errors...)
		publish()
	}

	progress.Done = true
	progress.Cancelled = result.Cancelled
	publish()

	logger.Info("import finished",
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"failed_chunks", len(result.FailedChunks),
		"cancelled", result.Cancelled,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return result, nil
}

// uploadChunk sends one chunk with retries. The caller's cancellation does
// not interrupt it.
func (imp *Importer) uploadChunk(ctx context.Context, logger *slog.Logger, n int, target ImportTarget, req ImportRequest) (*BulkImportResult, error) {
	policy := imp.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("chunk upload failed, retrying",
			"chunk", n,
			"attempt", attempt,
			"backoff_ms", delay.Milliseconds(),
			"error", err,
		)
		if imp.retry.OnRetry != nil {
			imp.retry.OnRetry(attempt, delay, err)
		}
	}

	res, err := RetryWithBackoff(context.WithoutCancel(ctx), policy, func(ctx context.Context) (*BulkImportResult, error) {
		return imp.transport.ImportCSV(ctx, target, req)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &BulkImportResult{}
	}
	return res, nil
}
