package core

import (
	"errors"
	"strings"
	"testing"
)

func TestReadContent(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain", []byte("a,b\n1,2"), "a,b\n1,2"},
		{"BOM stripped", append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), "a,b"},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM kept", []byte{0xEF, 0xBB, 'a'}, "�a"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he�lo"},
		{"multibyte preserved", []byte("name\nMünchen"), "name\nMünchen"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadContent(strings.NewReader(string(tt.input)), 1024)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadContent_TooLarge(t *testing.T) {
	_, err := ReadContent(strings.NewReader(strings.Repeat("x", 11)), 10)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}

	got, err := ReadContent(strings.NewReader(strings.Repeat("x", 10)), 10)
	if err != nil || len(got) != 10 {
		t.Errorf("content at the limit: got %d bytes, err %v", len(got), err)
	}
}
