package flattext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

// mustRecord processes a line and fails the test unless it produced a record.
func mustRecord(t *testing.T, m *RowMapper, line string) *Record {
	t.Helper()
	row, err := m.ProcessRow(line)
	require.NoError(t, err)
	require.Equal(t, RowRecord, row.Kind)
	require.NotNil(t, row.Record)
	return row.Record
}

func TestProcessRow_SkipRows(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{SkipHeaderRows: 2})

	// The first N calls after reset are skips and leave field names alone.
	for i := 0; i < 2; i++ {
		row, err := m.ProcessRow("junk,junk")
		require.NoError(t, err)
		assert.Equal(t, RowSkipped, row.Kind)
		assert.Nil(t, m.FieldNames())
	}

	rec := mustRecord(t, m, "1,2")
	assert.Equal(t, []string{"column_1", "column_2"}, rec.Keys())
}

func TestProcessRow_HeaderRow(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true})

	row, err := m.ProcessRow("time,value")
	require.NoError(t, err)
	assert.Equal(t, RowHeader, row.Kind)
	assert.Equal(t, []string{"time", "value"}, m.FieldNames())

	// Exactly one header; everything after is data.
	rec := mustRecord(t, m, "2024-01-01,42")
	v, ok := rec.Get("time")
	require.True(t, ok)
	assert.Equal(t, strptr("2024-01-01"), v)

	rec = mustRecord(t, m, "2024-01-02,43")
	v, _ = rec.Get("value")
	assert.Equal(t, strptr("43"), v)
}

func TestProcessRow_SkipThenHeader(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true, SkipHeaderRows: 1})

	row, err := m.ProcessRow("exported by tool v2")
	require.NoError(t, err)
	assert.Equal(t, RowSkipped, row.Kind)

	row, err = m.ProcessRow("a,b")
	require.NoError(t, err)
	assert.Equal(t, RowHeader, row.Kind)

	rec := mustRecord(t, m, "1,2")
	assert.Equal(t, []string{"a", "b"}, rec.Keys())
}

func TestProcessRow_SchemalessDefaultNames(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{})

	rec := mustRecord(t, m, "x,y,z")
	assert.Equal(t, []string{"column_1", "column_2", "column_3"}, rec.Keys())

	// Names are sized to the first data row and stay fixed.
	rec = mustRecord(t, m, "p,q,r,s")
	assert.Equal(t, 3, rec.Len())
}

func TestProcessRow_ShortAndLongRows(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{})
	require.NoError(t, m.SetFieldNames([]string{"a", "b", "c"}))

	// Short row: no entry for the trailing unmatched name, no error.
	rec := mustRecord(t, m, "1,2")
	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	_, ok := rec.Get("c")
	assert.False(t, ok)

	// Long row: extra values are silently dropped.
	m2 := NewRowMapper(CSVTokenizer{}, Config{})
	require.NoError(t, m2.SetFieldNames([]string{"a", "b"}))
	rec = mustRecord(t, m2, "1,2,3")
	assert.Equal(t, []string{"a", "b"}, rec.Keys())
}

func TestProcessRow_MultiValueSplit(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{ListDelimiter: "|"})
	require.NoError(t, m.SetFieldNames([]string{"tags"}))

	rec := mustRecord(t, m, `x|y|`)
	v, ok := rec.Get("tags")
	require.True(t, ok)
	// Trailing empty segment normalizes to an absent value.
	assert.Equal(t, []*string{strptr("x"), strptr("y"), nil}, v)
}

func TestProcessRow_ScalarNormalization(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{})
	require.NoError(t, m.SetFieldNames([]string{"a", "b"}))

	rec := mustRecord(t, m, ",hello")
	v, ok := rec.Get("a")
	require.True(t, ok)
	assert.Nil(t, v.(*string))
	v, _ = rec.Get("b")
	assert.Equal(t, strptr("hello"), v)
}

func TestProcessRow_MultiValueDelimiterOverrides(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{
		ListDelimiter: "|",
		MultiValueDelimiters: map[string]string{
			"tags": ";",
		},
	})
	require.NoError(t, m.SetFieldNames([]string{"tags", "note"}))

	rec := mustRecord(t, m, "x;y,p|q")

	v, _ := rec.Get("tags")
	assert.Equal(t, []*string{strptr("x"), strptr("y")}, v)

	// A configured override map does not fall back to the list delimiter
	// for unlisted fields: "p|q" stays scalar.
	v, _ = rec.Get("note")
	assert.Equal(t, strptr("p|q"), v)
}

func TestProcessRow_SkipUnsupported(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true})
	m.DisableSkipSupport()

	_, err := m.ProcessRow("a,b")
	assert.ErrorIs(t, err, ErrSkipUnsupported)

	// Reset restores support.
	m.Reset()
	row, err := m.ProcessRow("a,b")
	require.NoError(t, err)
	assert.Equal(t, RowHeader, row.Kind)

	// Without header or skip options the toggle is irrelevant.
	plain := NewRowMapper(CSVTokenizer{}, Config{})
	plain.DisableSkipSupport()
	_, err = plain.ProcessRow("1,2")
	assert.NoError(t, err)
}

func TestReset_Idempotent(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true, SkipHeaderRows: 1})

	_, err := m.ProcessRow("skip me")
	require.NoError(t, err)
	_, err = m.ProcessRow("a,b")
	require.NoError(t, err)

	m.Reset()
	m.Reset()

	assert.Nil(t, m.FieldNames())
	row, err := m.ProcessRow("first again")
	require.NoError(t, err)
	assert.Equal(t, RowSkipped, row.Kind)
}

func TestReset_FieldNamePersistence(t *testing.T) {
	// Without a header row, explicitly assigned names survive a reset.
	m := NewRowMapper(CSVTokenizer{}, Config{})
	require.NoError(t, m.SetFieldNames([]string{"a", "b"}))
	m.Reset()
	assert.Equal(t, []string{"a", "b"}, m.FieldNames())

	// With a header row, reset clears them for the next stream's header.
	h := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true})
	require.NoError(t, h.SetFieldNames([]string{"a", "b"}))
	h.Reset()
	assert.Nil(t, h.FieldNames())
}

func TestSetFieldNames(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{})

	// Empty candidates get generated defaults for their position.
	require.NoError(t, m.SetFieldNames([]string{"a", "b", "", "d"}))
	assert.Equal(t, []string{"a", "b", "column_3", "d"}, m.FieldNames())

	// Duplicates surface as a validation error and block the assignment.
	err := m.SetFieldNames([]string{"x", "x"})
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b", "column_3", "d"}, m.FieldNames())

	// Nil input leaves the assignment untouched.
	require.NoError(t, m.SetFieldNames(nil))
	assert.Equal(t, []string{"a", "b", "column_3", "d"}, m.FieldNames())
}

func TestSetFieldNamesFromHeader(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{})

	require.NoError(t, m.SetFieldNamesFromHeader("a,b,,d"))
	assert.Equal(t, []string{"a", "b", "column_3", "d"}, m.FieldNames())

	// Failures carry the offending line.
	err := m.SetFieldNamesFromHeader("dup,dup")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "dup,dup", parseErr.Line)
}

func TestProcessRow_TokenizerFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := TokenizerFunc(func(string) ([]string, error) {
		return nil, boom
	})
	m := NewRowMapper(failing, Config{})

	_, err := m.ProcessRow("bad line")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "bad line", parseErr.Line)
	assert.ErrorIs(t, err, boom)
}

func TestProcessRow_DuplicateHeaderWrapped(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true})

	_, err := m.ProcessRow("a,a")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "a,a", parseErr.Line)

	// The failed assignment blocks record production: field names are
	// still unset for the next attempt.
	assert.Nil(t, m.FieldNames())
}

func TestProcessRow_TwoStreams(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{HasHeaderRow: true, SkipHeaderRows: 1})

	_, err := m.ProcessRow("banner")
	require.NoError(t, err)
	_, err = m.ProcessRow("a,b")
	require.NoError(t, err)
	rec := mustRecord(t, m, "1,2")
	assert.Equal(t, []string{"a", "b"}, rec.Keys())

	// Second stream replays skip and header behavior from scratch.
	m.Reset()
	row, err := m.ProcessRow("banner")
	require.NoError(t, err)
	assert.Equal(t, RowSkipped, row.Kind)
	row, err = m.ProcessRow("c,d")
	require.NoError(t, err)
	assert.Equal(t, RowHeader, row.Kind)
	rec = mustRecord(t, m, "3,4")
	assert.Equal(t, []string{"c", "d"}, rec.Keys())
}

func TestListDelimiterDefaulting(t *testing.T) {
	m := NewRowMapper(CSVTokenizer{}, Config{})
	assert.Equal(t, DefaultListDelimiter, m.ListDelimiter())

	m = NewRowMapper(CSVTokenizer{}, Config{ListDelimiter: "|"})
	assert.Equal(t, "|", m.ListDelimiter())
}

func TestDefaultColumnName(t *testing.T) {
	assert.Equal(t, "column_1", DefaultColumnName(0))
	assert.Equal(t, "column_10", DefaultColumnName(9))
}

func TestValidateFieldNames(t *testing.T) {
	assert.NoError(t, ValidateFieldNames([]string{"a", "b"}))
	assert.NoError(t, ValidateFieldNames(nil))
	assert.Error(t, ValidateFieldNames([]string{"a", ""}))
	assert.Error(t, ValidateFieldNames([]string{"a", "a"}))
}
