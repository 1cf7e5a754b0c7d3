package core

// input.go provides the streaming line source for ingest input.
//
// A LineSource wraps an io.Reader and handles the common realities of
// uploaded flat-text files without loading them into memory:
//
//   - lz4-compressed input (frame magic sniffing, transparent decode)
//   - UTF-8 BOM (0xEF 0xBB 0xBF) added by Windows tools
//   - invalid UTF-8 sequences, replaced per line with '?'
//   - byte counting against the raw input for progress reporting

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pierrec/lz4/v4"
)

// MaxLineBytes is the maximum length of a single input line (1MB).
// Longer lines abort the stream with an error rather than silently
// truncating data.
var MaxLineBytes = 1 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// lz4FrameMagic is the little-endian magic number opening an lz4 frame.
var lz4FrameMagic = []byte{0x04, 0x22, 0x4D, 0x18}

// LineSource yields sanitized text lines from a raw input stream.
type LineSource struct {
	counting *countingReader
	scanner  *bufio.Scanner
	line     int
}

// countingReader tracks bytes read from the raw (possibly compressed)
// input, so progress is measured against the uploaded file size.
type countingReader struct {
	reader    io.Reader
	bytesRead int64
	total     int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.bytesRead += int64(n)
	return n, err
}

// NewLineSource wraps r for line-by-line reading. total is the raw input
// size in bytes when known, 0 otherwise.
//
// Compression sniffing and BOM skipping happen lazily on the first read,
// so constructing a LineSource never blocks.
func NewLineSource(r io.Reader, total int64) *LineSource {
	counting := &countingReader{reader: r, total: total}

	br := bufio.NewReaderSize(counting, 64*1024)
	var decoded io.Reader = br
	if magic, err := br.Peek(len(lz4FrameMagic)); err == nil && bytes.Equal(magic, lz4FrameMagic) {
		decoded = lz4.NewReader(br)
	}

	db := bufio.NewReaderSize(decoded, 64*1024)
	if bom, err := db.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		db.Discard(len(utf8BOM))
	}

	scanner := bufio.NewScanner(db)
	// bufio.Scanner takes the larger of the initial buffer capacity and
	// the max as its limit, so the initial capacity must not exceed
	// MaxLineBytes or small limits would be ignored.
	bufCap := 64 * 1024
	if MaxLineBytes < bufCap {
		bufCap = MaxLineBytes
	}
	scanner.Buffer(make([]byte, 0, bufCap), MaxLineBytes)

	return &LineSource{
		counting: counting,
		scanner:  scanner,
	}
}

// Next returns the next sanitized line. The second result is false at
// end of input or on error; check Err afterwards.
func (s *LineSource) Next() (string, bool) {
	if !s.scanner.Scan() {
		return "", false
	}
	s.line++
	return sanitizeLine(s.scanner.Text()), true
}

// Err returns the first error encountered while reading, or nil at a
// clean end of input.
func (s *LineSource) Err() error {
	err := s.scanner.Err()
	if err == bufio.ErrTooLong {
		return fmt.Errorf("line %d exceeds maximum line length of %d bytes", s.line+1, MaxLineBytes)
	}
	return err
}

// Line returns the 1-based number of the last line returned by Next.
func (s *LineSource) Line() int {
	return s.line
}

// BytesRead returns the number of raw input bytes consumed so far.
func (s *LineSource) BytesRead() int64 {
	return s.counting.bytesRead
}

// BytesTotal returns the raw input size passed at construction.
func (s *LineSource) BytesTotal() int64 {
	return s.counting.total
}

// sanitizeLine replaces invalid UTF-8 bytes with '?'. Most lines are
// valid and pass through without allocation.
func sanitizeLine(line string) string {
	if utf8.ValidString(line) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte('?')
			i++
		} else {
			b.WriteString(line[i : i+size])
			i += size
		}
	}
	return b.String()
}
