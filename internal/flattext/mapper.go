// Package flattext converts lines of delimited flat-text formats (CSV,
// tab-delimited, and similar) into ordered key-value records.
//
// The central type is RowMapper, a stateful converter fed one raw line at
// a time. It tracks skip-row and header-row state across the lifetime of
// a single logical input stream:
//
//	mapper := flattext.NewRowMapper(flattext.CSVTokenizer{}, flattext.Config{
//	    HasHeaderRow: true,
//	})
//	mapper.Reset() // start of stream
//	for scanner.Scan() {
//	    row, err := mapper.ProcessRow(scanner.Text())
//	    ...
//	}
//
// Tokenization is delegated to a Tokenizer so that dialect concerns
// (quoting, escaping, the primary delimiter) stay out of the mapper.
// The mapper itself performs no I/O.
package flattext

import (
	"strings"
)

// DefaultListDelimiter separates multiple values inside a single field
// when Config.ListDelimiter is left empty. The control character is the
// conventional default for flat-text ingestion because it never appears
// in ordinary data.
const DefaultListDelimiter = "\x01"

// Config holds the immutable configuration for a RowMapper.
type Config struct {
	// ListDelimiter splits a field's value into multiple values when no
	// per-field override is configured. Empty means DefaultListDelimiter.
	ListDelimiter string

	// MultiValueDelimiters maps field names to delimiter overrides.
	//
	// The nil/non-nil distinction matters: when nil, every field splits
	// on ListDelimiter; when non-nil, only the listed fields split and
	// all others are scalar. A non-nil map does not fall back to
	// ListDelimiter for missing keys.
	MultiValueDelimiters map[string]string

	// HasHeaderRow marks the first post-skip row of each stream as a
	// header rather than data.
	HasHeaderRow bool

	// SkipHeaderRows is the number of leading rows to discard before
	// header or data processing begins.
	SkipHeaderRows int

	// DefaultName generates a column name for a zero-based position.
	// Nil means DefaultColumnName.
	DefaultName func(pos int) string

	// ValidateNames checks a resolved field-name sequence. Nil means
	// ValidateFieldNames.
	ValidateNames func(names []string) error
}

// RowKind identifies what a ProcessRow call produced.
type RowKind int

const (
	// RowSkipped means the line was consumed as a leading skip row.
	RowSkipped RowKind = iota
	// RowHeader means the line was consumed as the header row.
	RowHeader
	// RowRecord means the line mapped to a data record.
	RowRecord
)

// String returns a short label for logging.
func (k RowKind) String() string {
	switch k {
	case RowSkipped:
		return "skipped"
	case RowHeader:
		return "header"
	case RowRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Row is the outcome of processing one line. Record is non-nil only when
// Kind is RowRecord.
type Row struct {
	Kind   RowKind
	Record *Record
}

// RowMapper converts tokenized rows into ordered key-value records while
// tracking header and skip-row state for one input stream.
//
// A RowMapper is not safe for concurrent use: ProcessRow and Reset mutate
// shared counters and the field-name sequence. Independent streams should
// each use their own instance.
type RowMapper struct {
	tokenizer      Tokenizer
	listDelimiter  string
	multiValue     map[string]string
	hasHeaderRow   bool
	skipHeaderRows int
	defaultName    func(int) string
	validateNames  func([]string) error

	// Per-stream session state, reinitialized by Reset.
	fieldNames    []string
	headerParsed  bool
	skippedRows   int
	skipSupported bool
}

// NewRowMapper creates a mapper using the given tokenizer and
// configuration. The returned mapper is in the same state as one that was
// just Reset.
func NewRowMapper(tokenizer Tokenizer, cfg Config) *RowMapper {
	m := &RowMapper{
		tokenizer:      tokenizer,
		listDelimiter:  cfg.ListDelimiter,
		multiValue:     cfg.MultiValueDelimiters,
		hasHeaderRow:   cfg.HasHeaderRow,
		skipHeaderRows: cfg.SkipHeaderRows,
		defaultName:    cfg.DefaultName,
		validateNames:  cfg.ValidateNames,
	}
	if m.listDelimiter == "" {
		m.listDelimiter = DefaultListDelimiter
	}
	if m.defaultName == nil {
		m.defaultName = DefaultColumnName
	}
	if m.validateNames == nil {
		m.validateNames = ValidateFieldNames
	}
	m.Reset()
	return m
}

// Reset reinitializes the session state for a new input stream.
//
// Field names are cleared only when a header row is expected; explicitly
// assigned names persist across resets so a caller-supplied schema
// survives stream boundaries.
func (m *RowMapper) Reset() {
	if m.hasHeaderRow {
		m.fieldNames = nil
	}
	m.headerParsed = false
	m.skippedRows = 0
	m.skipSupported = true
}

// DisableSkipSupport marks the caller's execution context as unable to
// honor header or skip-row options. A later ProcessRow fails with
// ErrSkipUnsupported if either option is configured. Reset restores
// support.
func (m *RowMapper) DisableSkipSupport() {
	m.skipSupported = false
}

// FieldNames returns the current field names, or nil when none have been
// assigned yet. The returned slice is shared; callers must not modify it.
func (m *RowMapper) FieldNames() []string {
	return m.fieldNames
}

// ListDelimiter returns the effective default list delimiter.
func (m *RowMapper) ListDelimiter() string {
	return m.listDelimiter
}

// SetFieldNames assigns field names explicitly, replacing any previous
// assignment in full. Empty candidates are replaced with a generated
// default name for their position. The resolved sequence is validated;
// a validation failure blocks the assignment. A nil slice is a no-op.
func (m *RowMapper) SetFieldNames(names []string) error {
	if names == nil {
		return nil
	}
	resolved := make([]string, len(names))
	for i, name := range names {
		if name == "" {
			resolved[i] = m.defaultName(i)
		} else {
			resolved[i] = name
		}
	}
	if err := m.validateNames(resolved); err != nil {
		return err
	}
	m.fieldNames = resolved
	return nil
}

// SetFieldNamesFromHeader tokenizes one raw header line and assigns field
// names from the result. Tokenization or assignment failures are wrapped
// in a ParseError carrying the offending line.
func (m *RowMapper) SetFieldNamesFromHeader(line string) error {
	values, err := m.tokenizer.Tokenize(line)
	if err == nil {
		err = m.SetFieldNames(values)
	}
	if err != nil {
		return &ParseError{Line: line, Err: err}
	}
	return nil
}

// ProcessRow consumes one raw line and reports whether it was skipped,
// consumed as the header, or mapped to a record.
//
// The evaluation order is fixed: the unsupported-configuration check runs
// before tokenizing, skip rows are consumed before the header, and the
// header before data. A schema-less stream (no header, no explicit names)
// gets positional default names sized to its first data row.
func (m *RowMapper) ProcessRow(line string) (Row, error) {
	if !m.skipSupported && (m.hasHeaderRow || m.skipHeaderRows > 0) {
		return Row{}, ErrSkipUnsupported
	}

	values, err := m.tokenizer.Tokenize(line)
	if err != nil {
		return Row{}, &ParseError{Line: line, Err: err}
	}

	if m.skippedRows < m.skipHeaderRows {
		m.skippedRows++
		return Row{Kind: RowSkipped}, nil
	}

	if m.hasHeaderRow && !m.headerParsed {
		if m.fieldNames == nil {
			if err := m.SetFieldNames(values); err != nil {
				return Row{}, &ParseError{Line: line, Err: err}
			}
		}
		m.headerParsed = true
		return Row{Kind: RowHeader}, nil
	}

	if m.fieldNames == nil {
		names := make([]string, len(values))
		for i := range names {
			names[i] = m.defaultName(i)
		}
		if err := m.SetFieldNames(names); err != nil {
			return Row{}, &ParseError{Line: line, Err: err}
		}
	}

	return Row{Kind: RowRecord, Record: m.buildRecord(values)}, nil
}

// buildRecord zips field names with values up to the shorter of the two;
// trailing unmatched names or values are dropped without error.
func (m *RowMapper) buildRecord(values []string) *Record {
	n := len(m.fieldNames)
	if len(values) < n {
		n = len(values)
	}

	rec := NewRecord(n)
	for i := 0; i < n; i++ {
		key := m.fieldNames[i]
		rec.Set(key, m.splitValue(key, values[i]))
	}
	return rec
}

// splitValue applies the multi-value split policy to one field's raw
// value. The result is either a scalar *string or a []*string, with empty
// strings normalized to nil in both shapes.
func (m *RowMapper) splitValue(key, value string) any {
	var delim string
	if m.multiValue == nil {
		delim = m.listDelimiter
	} else {
		delim = m.multiValue[key]
	}

	if delim != "" && strings.Contains(value, delim) {
		parts := strings.Split(value, delim)
		out := make([]*string, len(parts))
		for i, part := range parts {
			out[i] = emptyToNil(part)
		}
		return out
	}
	return emptyToNil(value)
}

// emptyToNil normalizes the empty string to an absent value.
func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
