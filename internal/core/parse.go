package core

import (
	"regexp"
	"strconv"
	"strings"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Parse turns raw CSV text into a rectangular table.
//
// Quoted fields may contain commas, doubled quotes and line breaks. Fields are
// trimmed and rows made only of empty fields are dropped. Parse returns nil
// when content is empty or no rows survive, which callers should report as
// "nothing to import".
func Parse(content string, hasHeader bool) *ParsedTable {
	if content == "" {
		return nil
	}

	records := tokenize(content)
	if len(records) == 0 {
		return nil
	}

	var headers []string
	data := records
	if hasHeader {
		headers = make([]string, len(records[0]))
		for i, h := range records[0] {
			if h == "" {
				h = syntheticHeader(i)
			}
			headers[i] = h
		}
		data = records[1:]
	} else {
		width := 0
		for _, r := range records {
			if len(r) > width {
				width = len(r)
			}
		}
		headers = make([]string, width)
		for i := range headers {
			headers[i] = syntheticHeader(i)
		}
	}

	rows := make([][]string, len(data))
	for i, r := range data {
		rows[i] = normalizeRow(r, len(headers))
	}

	return &ParsedTable{
		Headers:           headers,
		Rows:              rows,
		RowCount:          len(rows),
		EstimatedByteSize: len(content),
	}
}

// tokenize splits content into trimmed records, skipping blank ones.
// Quote state carries across line boundaries so a newline inside a quoted
// field becomes part of the field.
func tokenize(content string) [][]string {
	var (
		records  [][]string
		record   []string
		field    strings.Builder
		inQuotes bool
	)

	for _, line := range lineBreak.Split(content, -1) {
		if inQuotes {
			// Carriage returns before a line break inside quotes fold into
			// the break, as the splitter does for a single \r\n.
			if s := field.String(); strings.HasSuffix(s, "\r") {
				field.Reset()
				field.WriteString(strings.TrimRight(s, "\r"))
			}
			field.WriteByte('\n')
		}

		for i := 0; i < len(line); i++ {
			c := line[i]
			switch {
			case c == '"':
				if inQuotes && i+1 < len(line) && line[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = !inQuotes
				}
			case c == ',' && !inQuotes:
				record = append(record, field.String())
				field.Reset()
			default:
				field.WriteByte(c)
			}
		}

		if inQuotes {
			continue
		}

		record = append(record, field.String())
		field.Reset()
		if r := trimRecord(record); r != nil {
			records = append(records, r)
		}
		record = nil
	}

	// Unterminated quote at end of input: keep what was read.
	if inQuotes {
		record = append(record, field.String())
		if r := trimRecord(record); r != nil {
			records = append(records, r)
		}
	}

	return records
}

// trimRecord trims every field and returns nil for a blank record.
func trimRecord(record []string) []string {
	blank := true
	for i, f := range record {
		record[i] = strings.TrimSpace(f)
		if record[i] != "" {
			blank = false
		}
	}
	if blank {
		return nil
	}
	return record
}

// normalizeRow pads with empty strings or truncates to width.
func normalizeRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

func syntheticHeader(i int) string {
	return "col_" + strconv.Itoa(i)
}
