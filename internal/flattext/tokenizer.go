package flattext

import (
	"encoding/csv"
	"io"
	"strings"
)

// Tokenizer splits one raw line of text into an ordered sequence of field
// values. Implementations own the dialect concerns: quoting, escaping,
// and the line's primary delimiter.
type Tokenizer interface {
	Tokenize(line string) ([]string, error)
}

// TokenizerFunc adapts a plain function to the Tokenizer interface.
type TokenizerFunc func(line string) ([]string, error)

// Tokenize calls f.
func (f TokenizerFunc) Tokenize(line string) ([]string, error) {
	return f(line)
}

// CSVTokenizer tokenizes lines using CSV semantics: quoted fields,
// doubled quotes, and a configurable separator.
type CSVTokenizer struct {
	// Comma is the field separator. Zero means ','.
	Comma rune
}

// Tokenize splits one CSV line. Lazy quoting is enabled so that the
// unescaped quotes common in hand-edited files do not abort the stream.
// An empty line yields zero fields.
func (t CSVTokenizer) Tokenize(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	if t.Comma != 0 {
		r.Comma = t.Comma
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	record, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []string{}, nil
		}
		return nil, err
	}
	return record, nil
}

// DelimitedTokenizer tokenizes lines by plain splitting on a delimiter,
// with no quoting or escaping. This matches tab-delimited exports where
// the delimiter can never appear inside a value.
type DelimitedTokenizer struct {
	// Delimiter separates fields. Empty means tab.
	Delimiter string
}

// Tokenize splits one delimited line.
func (t DelimitedTokenizer) Tokenize(line string) ([]string, error) {
	delim := t.Delimiter
	if delim == "" {
		delim = "\t"
	}
	return strings.Split(line, delim), nil
}
