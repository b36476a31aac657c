package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/JonMunkholm/dsimport/internal/core"
)

const sampleCSV = "prompt,completion,tags\nSay hi,hi,greeting\nSay bye,bye,farewell\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evals.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// backend serves the import endpoint and counts calls. status overrides
// the response code when non-zero.
func backend(t *testing.T, status int, calls *atomic.Int32, got *core.ImportRequest) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/items/import-csv"):
			calls.Add(1)
			if status != 0 {
				w.WriteHeader(status)
				w.Write([]byte(`{"error":"backend down"}`))
				return
			}
			var req core.ImportRequest
			json.NewDecoder(r.Body).Decode(&req)
			if got != nil {
				*got = req
			}
			rows := core.Parse(req.Content, req.HasHeader).RowCount
			json.NewEncoder(w).Encode(core.BulkImportResult{Created: rows})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/datasets"):
			w.Write([]byte(`{"data":[{"id":"ds1","name":"Greetings","itemCount":2}],` +
				`"pagination":{"page":1,"limit":50,"total":1,"totalPages":1}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("BACKEND_URL", srv.URL)
	t.Setenv("BACKEND_API_KEY", "test-key")
	t.Setenv("BACKEND_PROJECT_ID", "proj")
	t.Setenv("IMPORT_MAX_RETRIES", "1")
	t.Setenv("IMPORT_INITIAL_BACKOFF", "1ms")
	t.Setenv("IMPORT_DELAY_BETWEEN_CHUNKS", "1ms")
}

func TestPreview(t *testing.T) {
	out, _, err := execute(t, "preview", writeCSV(t, sampleCSV))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	if !strings.Contains(out, "2 rows, 3 columns") {
		t.Errorf("summary line missing:\n%s", out)
	}
	for _, want := range []string{"prompt", "input", "completion", "expected", "tags", "metadata"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPreview_EmptyFile(t *testing.T) {
	_, _, err := execute(t, "preview", writeCSV(t, "prompt,completion\n"))
	if !errors.Is(err, core.ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestImport(t *testing.T) {
	var (
		calls atomic.Int32
		got   core.ImportRequest
	)
	backend(t, 0, &calls, &got)

	out, _, err := execute(t, "import", writeCSV(t, sampleCSV), "--dataset", "ds1", "--no-dedupe")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", calls.Load())
	}
	if got.ColumnMapping.InputColumn != "prompt" || got.ColumnMapping.ExpectedColumn != "completion" {
		t.Errorf("mapping = %+v", got.ColumnMapping)
	}
	if got.Deduplicate {
		t.Error("--no-dedupe was ignored")
	}
	if !strings.Contains(out, "created 2, skipped 0") {
		t.Errorf("result line missing:\n%s", out)
	}
}

func TestImport_ExplicitMapping(t *testing.T) {
	var (
		calls atomic.Int32
		got   core.ImportRequest
	)
	backend(t, 0, &calls, &got)

	_, _, err := execute(t, "import", writeCSV(t, sampleCSV), "-d", "ds1",
		"--input", "completion", "--metadata", "prompt,tags")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.ColumnMapping.InputColumn != "completion" || len(got.ColumnMapping.MetadataColumns) != 2 {
		t.Errorf("mapping = %+v", got.ColumnMapping)
	}
	if got.ColumnMapping.ExpectedColumn != "" {
		t.Errorf("expected column = %q, want it cleared once --input took it", got.ColumnMapping.ExpectedColumn)
	}
}

func TestImport_PartialMappingFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		input    string
		expected string
		metadata []string
	}{
		{
			name:     "expected and metadata without input",
			args:     []string{"--expected", "tags", "--metadata", "completion"},
			input:    "prompt",
			expected: "tags",
			metadata: []string{"completion"},
		},
		{
			name:     "expected only",
			args:     []string{"--expected", "tags"},
			input:    "prompt",
			expected: "tags",
			metadata: []string{},
		},
		{
			name:     "metadata only",
			args:     []string{"--metadata", "tags,completion"},
			input:    "prompt",
			expected: "",
			metadata: []string{"tags", "completion"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				calls atomic.Int32
				got   core.ImportRequest
			)
			backend(t, 0, &calls, &got)

			args := append([]string{"import", writeCSV(t, sampleCSV), "-d", "ds1"}, tt.args...)
			if _, _, err := execute(t, args...); err != nil {
				t.Fatalf("import: %v", err)
			}

			m := got.ColumnMapping
			if m.InputColumn != tt.input || m.ExpectedColumn != tt.expected {
				t.Errorf("input/expected = %q/%q, want %q/%q", m.InputColumn, m.ExpectedColumn, tt.input, tt.expected)
			}
			if strings.Join(m.MetadataColumns, ",") != strings.Join(tt.metadata, ",") {
				t.Errorf("metadata = %v, want %v", m.MetadataColumns, tt.metadata)
			}
		})
	}
}

func TestImport_InvalidMapping(t *testing.T) {
	var calls atomic.Int32
	backend(t, 0, &calls, nil)

	_, _, err := execute(t, "import", writeCSV(t, sampleCSV), "-d", "ds1", "--input", "missing")
	if !errors.Is(err, core.ErrInvalidMapping) {
		t.Errorf("err = %v, want ErrInvalidMapping", err)
	}
	if calls.Load() != 0 {
		t.Errorf("backend called %d times for an invalid mapping", calls.Load())
	}
}

func TestImport_DryRun(t *testing.T) {
	var calls atomic.Int32
	backend(t, 0, &calls, nil)

	out, _, err := execute(t, "import", writeCSV(t, sampleCSV), "-d", "ds1", "--dry-run")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("dry run made %d backend calls", calls.Load())
	}
	if !strings.Contains(out, "2 rows in 1 chunk(s)") {
		t.Errorf("plan missing:\n%s", out)
	}
}

func TestImport_FailedChunks(t *testing.T) {
	var calls atomic.Int32
	backend(t, http.StatusInternalServerError, &calls, nil)

	out, _, err := execute(t, "import", writeCSV(t, sampleCSV), "-d", "ds1")
	if !errors.Is(err, errPartialImport) {
		t.Fatalf("err = %v, want errPartialImport", err)
	}
	if calls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2 (one retry)", calls.Load())
	}
	if !strings.Contains(out, "Chunk 1: status 500") {
		t.Errorf("chunk error missing:\n%s", out)
	}
}

func TestDatasetsList(t *testing.T) {
	var calls atomic.Int32
	backend(t, 0, &calls, nil)

	out, _, err := execute(t, "datasets", "list")
	if err != nil {
		t.Fatalf("datasets list: %v", err)
	}
	if !strings.Contains(out, "ds1") || !strings.Contains(out, "Greetings") {
		t.Errorf("dataset row missing:\n%s", out)
	}
	if !strings.Contains(out, "page 1 of 1 (1 total)") {
		t.Errorf("pagination line missing:\n%s", out)
	}
}

func TestProgressPrinter_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	p.Update(core.ImportProgress{CurrentChunk: 1, TotalChunks: 2})
	p.Update(core.ImportProgress{CurrentChunk: 1, TotalChunks: 2, ItemsCreated: 5})
	p.Update(core.ImportProgress{CurrentChunk: 2, TotalChunks: 2, ItemsCreated: 5})
	p.Update(core.ImportProgress{CurrentChunk: 2, TotalChunks: 2, ItemsCreated: 9, Done: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[  0%] chunk 1/2") {
		t.Errorf("first line = %q, want 0%% while chunk 1 uploads", lines[0])
	}
	if !strings.HasPrefix(lines[2], "[100%]") {
		t.Errorf("last line = %q", lines[2])
	}
}
