package core

import "strings"

// Chunk splits content into CSV documents whose byte size does not exceed
// maxBytes. Content that already fits is returned unchanged. Otherwise rows
// are re-serialized and packed greedily in order; with hasHeader every chunk
// starts with the header line. A row that alone exceeds maxBytes becomes its
// own chunk.
func Chunk(content string, hasHeader bool, maxBytes int) []string {
	if len(content) <= maxBytes {
		return []string{content}
	}

	table := Parse(content, hasHeader)
	if table == nil {
		return []string{content}
	}

	var header string
	if hasHeader {
		header = SerializeRow(table.Headers)
	}

	var (
		chunks  []string
		current []string
		size    int
	)

	baseSize := 0
	if hasHeader {
		baseSize = len(header) + 1
	}

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(header, hasHeader, current))
		current = nil
	}

	size = baseSize
	for _, row := range table.Rows {
		line := SerializeRow(row)
		rowSize := len(line) + 1
		if len(current) > 0 && size+rowSize > maxBytes {
			flush()
			size = baseSize
		}
		current = append(current, line)
		size += rowSize
	}
	flush()

	if len(chunks) == 0 && hasHeader {
		return []string{header}
	}
	return chunks
}

func buildChunk(header string, hasHeader bool, lines []string) string {
	var b strings.Builder
	if hasHeader {
		b.WriteString(header)
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// SerializeRow renders one CSV line. Fields containing a comma, quote or line
// break are quoted with embedded quotes doubled, which Parse reads back to
// the same values.
func SerializeRow(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeField(f))
	}
	return b.String()
}

func escapeField(f string) string {
	if !strings.ContainsAny(f, ",\"\r\n") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}
