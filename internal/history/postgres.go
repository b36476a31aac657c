package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by PostgresStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS import_runs (
	id            UUID PRIMARY KEY,
	project_id    TEXT NOT NULL DEFAULT '',
	dataset_id    TEXT NOT NULL,
	file_name     TEXT NOT NULL DEFAULT '',
	created       INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	errors        JSONB NOT NULL DEFAULT '[]',
	failed_chunks INTEGER[] NOT NULL DEFAULT '{}',
	total_chunks  INTEGER NOT NULL DEFAULT 0,
	cancelled     BOOLEAN NOT NULL DEFAULT FALSE,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS import_runs_dataset_started_idx
	ON import_runs (dataset_id, started_at DESC);
`

const selectColumns = `id, project_id, dataset_id, file_name, created, skipped,
	errors, failed_chunks, total_chunks, cancelled, started_at, finished_at`

// PostgresStore keeps runs in the import_runs table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps a pool or transaction.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the table and index if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create import_runs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, run Run) error {
	id, err := parseUUID(run.ID)
	if err != nil {
		return err
	}
	errs, err := json.Marshal(nonNil(run.Errors))
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}
	chunks := make([]int32, len(run.FailedChunks))
	for i, c := range run.FailedChunks {
		chunks[i] = int32(c)
	}

	_, err = s.db.Exec(ctx, `INSERT INTO import_runs (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, run.ProjectID, run.DatasetID, run.FileName,
		int32(run.Created), int32(run.Skipped), errs, chunks,
		int32(run.TotalChunks), run.Cancelled,
		pgtype.Timestamptz{Time: run.StartedAt, Valid: true},
		pgtype.Timestamptz{Time: run.FinishedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, datasetID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if datasetID == "" {
		rows, err = s.db.Query(ctx, `SELECT `+selectColumns+` FROM import_runs
			ORDER BY started_at DESC LIMIT $1`, limit)
	} else {
		rows, err = s.db.Query(ctx, `SELECT `+selectColumns+` FROM import_runs
			WHERE dataset_id = $1 ORDER BY started_at DESC LIMIT $2`, datasetID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Run, error) {
	pgID, err := parseUUID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM import_runs WHERE id = $1`, pgID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		id         pgtype.UUID
		run        Run
		created    int32
		skipped    int32
		total      int32
		errs       []byte
		chunks     []int32
		startedAt  pgtype.Timestamptz
		finishedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &run.ProjectID, &run.DatasetID, &run.FileName, &created, &skipped,
		&errs, &chunks, &total, &run.Cancelled, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if id.Valid {
		run.ID = uuid.UUID(id.Bytes).String()
	}
	run.Created = int(created)
	run.Skipped = int(skipped)
	run.TotalChunks = int(total)
	run.StartedAt = startedAt.Time
	run.FinishedAt = finishedAt.Time
	run.Errors = []string{}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &run.Errors); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
	}
	run.FailedChunks = make([]int, len(chunks))
	for i, c := range chunks {
		run.FailedChunks[i] = int(c)
	}
	return &run, nil
}

func parseUUID(s string) (pgtype.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
