package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrFileTooLarge is returned by ReadContent when the input exceeds the limit.
var ErrFileTooLarge = errors.New("file too large")

// DefaultMaxFileSize bounds uploads when no limit is configured.
const DefaultMaxFileSize = 50 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadContent reads a whole CSV document for Parse and Chunk. A leading UTF-8
// BOM is removed and invalid UTF-8 is replaced with U+FFFD. Reading stops with
// ErrFileTooLarge once more than maxSize bytes arrive; maxSize <= 0 selects
// DefaultMaxFileSize.
func ReadContent(r io.Reader, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxSize)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}
