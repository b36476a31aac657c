package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		hasHeader bool
		headers   []string
		rows      [][]string
	}{
		{
			name:      "simple table",
			content:   "a,b\n1,2\n3,4",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:      "comma inside quotes",
			content:   "a,b\n\"x,y\",2",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{"x,y", "2"}},
		},
		{
			name:      "escaped quotes",
			content:   "a,b\n\"say \"\"hi\"\"\",2",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{`say "hi"`, "2"}},
		},
		{
			name:      "newline inside quotes",
			content:   "a,b\n\"line1\nline2\",x",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{"line1\nline2", "x"}},
		},
		{
			name:      "CRLF line endings",
			content:   "a,b\r\n1,2\r\n",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{"1", "2"}},
		},
		{
			name:      "fields trimmed and blank rows dropped",
			content:   " a , b \n\n 1 ,2\n , \n3, 4 ",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:      "blank header gets synthetic name",
			content:   "a,,c\n1,2,3",
			hasHeader: true,
			headers:   []string{"a", "col_1", "c"},
			rows:      [][]string{{"1", "2", "3"}},
		},
		{
			name:      "short and long rows normalized",
			content:   "a,b\n1\n1,2,3",
			hasHeader: true,
			headers:   []string{"a", "b"},
			rows:      [][]string{{"1", ""}, {"1", "2"}},
		},
		{
			name:      "no header uses widest row",
			content:   "1,2\n3,4,5",
			hasHeader: false,
			headers:   []string{"col_0", "col_1", "col_2"},
			rows:      [][]string{{"1", "2", ""}, {"3", "4", "5"}},
		},
		{
			name:      "unterminated quote keeps remaining text",
			content:   "a\n\"abc",
			hasHeader: true,
			headers:   []string{"a"},
			rows:      [][]string{{"abc"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Parse(tt.content, tt.hasHeader)
			if table == nil {
				t.Fatal("Parse returned nil")
			}
			if !reflect.DeepEqual(table.Headers, tt.headers) {
				t.Errorf("Headers = %q, want %q", table.Headers, tt.headers)
			}
			if !reflect.DeepEqual(table.Rows, tt.rows) {
				t.Errorf("Rows = %q, want %q", table.Rows, tt.rows)
			}
			if table.RowCount != len(tt.rows) {
				t.Errorf("RowCount = %d, want %d", table.RowCount, len(tt.rows))
			}
			if table.EstimatedByteSize != len(tt.content) {
				t.Errorf("EstimatedByteSize = %d, want %d", table.EstimatedByteSize, len(tt.content))
			}
		})
	}
}

func TestParse_NothingToImport(t *testing.T) {
	for _, content := range []string{"", "\n\n", " , \n,"} {
		if got := Parse(content, true); got != nil {
			t.Errorf("Parse(%q) = %+v, want nil", content, got)
		}
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	table := Parse("a,b\n", true)
	if table == nil {
		t.Fatal("Parse returned nil")
	}
	if table.RowCount != 0 {
		t.Errorf("RowCount = %d, want 0", table.RowCount)
	}
}

func TestParse_Rectangular(t *testing.T) {
	content := "a,b,c\n1\n1,2\n1,2,3,4\n\"x\ny\",,\n"
	table := Parse(content, true)
	for i, row := range table.Rows {
		if len(row) != len(table.Headers) {
			t.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Headers))
		}
	}
}

func TestSerializeRow_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"plain", "1"},
		{"a,b", "c"},
		{`quote "inside"`, `"`},
		{"multi\nline", "crlf\r\nline"},
		{"", "trailing"},
		{`{"k": [1, 2]}`, "[1,2]"},
	}

	for _, row := range rows {
		line := SerializeRow(row)
		table := Parse("h1,h2\n"+line, true)
		if table == nil || table.RowCount != 1 {
			t.Fatalf("re-parse of %q failed: %+v", line, table)
		}

		// Line breaks inside a field come back as \n.
		want := make([]string, len(row))
		for i, v := range row {
			want[i] = strings.ReplaceAll(v, "\r\n", "\n")
		}
		if !reflect.DeepEqual(table.Rows[0], want) {
			t.Errorf("round trip of %q = %q, want %q", row, table.Rows[0], want)
		}
	}
}

func TestSerializeRow_ParsedTableRoundTrip(t *testing.T) {
	content := "id,text,meta\n1,\"hello, world\",\"{\"\"a\"\": 1}\"\n2,\"two\nlines\",\n3,\"say \"\"yes\"\"\",x\n"
	original := Parse(content, true)

	rebuilt := SerializeRow(original.Headers)
	for _, row := range original.Rows {
		rebuilt += "\n" + SerializeRow(row)
	}
	again := Parse(rebuilt, true)

	if !reflect.DeepEqual(again.Headers, original.Headers) {
		t.Errorf("Headers = %q, want %q", again.Headers, original.Headers)
	}
	if !reflect.DeepEqual(again.Rows, original.Rows) {
		t.Errorf("Rows = %q, want %q", again.Rows, original.Rows)
	}
}

func TestParse_CarriageReturnsBeforeQuotedLineBreak(t *testing.T) {
	for _, content := range []string{
		"a,b\n\"x\r\r\ny\",2\n",
		"a,b\r\n\"x\r\r\r\ny\",2\r\n",
	} {
		first := Parse(content, true)
		if got := first.Rows[0][0]; got != "x\ny" {
			t.Errorf("Parse(%q) field = %q, want %q", content, got, "x\ny")
		}

		again := Parse(SerializeRow(first.Headers)+"\n"+SerializeRow(first.Rows[0]), true)
		if !reflect.DeepEqual(again.Rows, first.Rows) {
			t.Errorf("round trip of %q = %q, want %q", content, again.Rows, first.Rows)
		}
	}
}
