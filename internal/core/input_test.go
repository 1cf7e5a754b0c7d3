package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
)

func readAllLines(t *testing.T, src *LineSource) []string {
	t.Helper()
	var lines []string
	for {
		line, ok := src.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	if err := src.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return lines
}

func TestLineSource(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []string
	}{
		{
			name:  "plain lines",
			input: []byte("a,b\n1,2\n"),
			want:  []string{"a,b", "1,2"},
		},
		{
			name:  "no trailing newline",
			input: []byte("a,b\n1,2"),
			want:  []string{"a,b", "1,2"},
		},
		{
			name:  "crlf line endings",
			input: []byte("a,b\r\n1,2\r\n"),
			want:  []string{"a,b", "1,2"},
		},
		{
			name:  "BOM stripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n")...),
			want:  []string{"a,b"},
		},
		{
			name:  "partial BOM preserved",
			input: []byte{0xEF, 0xBB, 'a', '\n'},
			want:  []string{"??a"},
		},
		{
			name:  "invalid UTF-8 replaced",
			input: []byte{'h', 'e', 0x80, 'l', 'o', '\n'},
			want:  []string{"he?lo"},
		},
		{
			name:  "valid multibyte preserved",
			input: []byte("caf\xc3\xa9\n"),
			want:  []string{"café"},
		},
		{
			name:  "empty input",
			input: []byte{},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewLineSource(bytes.NewReader(tt.input), int64(len(tt.input)))
			got := readAllLines(t, src)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %q, want %d lines %q", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLineSource_LZ4(t *testing.T) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write([]byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	src := NewLineSource(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	got := readAllLines(t, src)

	want := []string{"a,b", "1,2"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	// Progress counts compressed bytes against the compressed total.
	if src.BytesRead() != int64(buf.Len()) {
		t.Errorf("BytesRead = %d, want %d", src.BytesRead(), buf.Len())
	}
}

func TestLineSource_LZ4WithBOM(t *testing.T) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	zw.Write(utf8BOM)
	zw.Write([]byte("a,b\n"))
	if err := zw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	src := NewLineSource(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	got := readAllLines(t, src)
	if len(got) != 1 || got[0] != "a,b" {
		t.Errorf("got %q, want [a,b]", got)
	}
}

func TestLineSource_LineNumbers(t *testing.T) {
	src := NewLineSource(strings.NewReader("a\nb\nc\n"), 6)

	if src.Line() != 0 {
		t.Errorf("initial Line = %d, want 0", src.Line())
	}
	if src.BytesTotal() != 6 {
		t.Errorf("BytesTotal = %d, want 6", src.BytesTotal())
	}
	src.Next()
	src.Next()
	if src.Line() != 2 {
		t.Errorf("after two reads, Line = %d, want 2", src.Line())
	}
}

func TestLineSource_TooLongLine(t *testing.T) {
	orig := MaxLineBytes
	MaxLineBytes = 16
	defer func() { MaxLineBytes = orig }()

	src := NewLineSource(strings.NewReader("short\n"+strings.Repeat("x", 64)+"\n"), 0)

	var count int
	for {
		_, ok := src.Next()
		if !ok {
			break
		}
		count++
	}

	if count != 1 {
		t.Errorf("read %d lines before failure, want 1", count)
	}
	if src.Err() == nil {
		t.Fatal("expected error for oversized line")
	}
	if !strings.Contains(src.Err().Error(), "maximum line length") {
		t.Errorf("error = %q, want line length message", src.Err())
	}
}

func TestSanitizeLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ascii untouched", "hello,world", "hello,world"},
		{"multibyte untouched", "café", "café"},
		{"invalid byte replaced", string([]byte{'a', 0x80, 'b'}), "a?b"},
		{"truncated sequence replaced", string([]byte{'a', 0xC3}), "a?"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLine(tt.input); got != tt.want {
				t.Errorf("sanitizeLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
