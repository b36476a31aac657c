package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dsimport/internal/core"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestErrorAlert_Escapes(t *testing.T) {
	out := render(t, ErrorAlert("<b>bad</b>", "Try again", "CSV001"))

	if strings.Contains(out, "<b>bad</b>") {
		t.Errorf("message not escaped: %s", out)
	}
	if !strings.Contains(out, "&lt;b&gt;bad&lt;/b&gt;") {
		t.Errorf("escaped message missing: %s", out)
	}
	if !strings.Contains(out, "Code: CSV001") {
		t.Errorf("code missing: %s", out)
	}
}

func TestImportProgress(t *testing.T) {
	tests := []struct {
		name     string
		progress core.ImportProgress
		percent  string
		chunk    string
	}{
		{"first chunk uploading", core.ImportProgress{CurrentChunk: 1, TotalChunks: 4}, `aria-valuenow="0"`, "Chunk 1 of 4"},
		{"two of four finished", core.ImportProgress{CurrentChunk: 3, TotalChunks: 4, ItemsCreated: 10}, `aria-valuenow="50"`, "Chunk 3 of 4"},
		{"done", core.ImportProgress{CurrentChunk: 4, TotalChunks: 4, Done: true}, `aria-valuenow="100"`, "Chunk 4 of 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, ImportProgress(tt.progress))
			if !strings.Contains(out, tt.percent) {
				t.Errorf("want %s in %s", tt.percent, out)
			}
			if !strings.Contains(out, tt.chunk) {
				t.Errorf("want %q in %s", tt.chunk, out)
			}
		})
	}
}

func TestImportSummary(t *testing.T) {
	res := &core.ImportResult{
		BulkImportResult: core.BulkImportResult{
			Created: 7,
			Skipped: 2,
			Errors:  []string{"row 3: bad", "Chunk 2: status 500: boom", "row 9: bad"},
		},
		TotalChunks:  3,
		FailedChunks: []int{2},
	}

	out := render(t, ImportSummary(res, 2))

	if !strings.Contains(out, "Import finished with failures") {
		t.Errorf("title missing: %s", out)
	}
	if !strings.Contains(out, "<dd>7</dd>") {
		t.Errorf("created count missing: %s", out)
	}
	if strings.Contains(out, "row 9") {
		t.Errorf("errors beyond the limit should be counted, not listed: %s", out)
	}
	if !strings.Contains(out, "and 1 more") {
		t.Errorf("overflow count missing: %s", out)
	}
}

func TestImportSummary_Status(t *testing.T) {
	tests := []struct {
		name   string
		res    *core.ImportResult
		title  string
		status string
	}{
		{"complete", &core.ImportResult{TotalChunks: 1}, "Import complete", `data-status="success"`},
		{"cancelled", &core.ImportResult{TotalChunks: 3, Cancelled: true}, "Import cancelled", `data-status="warning"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, ImportSummary(tt.res, 0))
			if !strings.Contains(out, "<h3>"+tt.title+"</h3>") || !strings.Contains(out, tt.status) {
				t.Errorf("want %q and %s in %s", tt.title, tt.status, out)
			}
			if strings.Contains(out, "import-errors") {
				t.Errorf("empty error list rendered: %s", out)
			}
		})
	}
}

func TestImportSummary_Nil(t *testing.T) {
	if out := render(t, ImportSummary(nil, 10)); out != "" {
		t.Errorf("nil result rendered %q", out)
	}
}
