// Package profile defines named format profiles: the dialect
// configuration used to parse one family of flat-text files.
//
// A profile carries everything the row mapper needs for a stream:
// format, delimiters, header flags, skip rows, per-field multi-value
// delimiters, and an optional explicit schema. Profiles are registered
// in-process; the csv and tsv built-ins are always present, and
// additional profiles load from a TOML file.
package profile

import (
	"fmt"
	"unicode/utf8"

	"github.com/tablefeed/tablefeed/internal/flattext"
)

// Format selects the line tokenizer dialect.
type Format string

const (
	// FormatCSV uses CSV semantics: quoting, escaping, comma separator
	// (or a custom single-rune Delimiter).
	FormatCSV Format = "csv"
	// FormatTSV splits on tabs with no quoting.
	FormatTSV Format = "tsv"
	// FormatDelimited splits on an arbitrary Delimiter with no quoting.
	FormatDelimited Format = "delimited"
)

// Profile describes how to parse one family of flat-text files.
type Profile struct {
	// Key identifies the profile in the registry and the API. Set from
	// the TOML table name for loaded profiles.
	Key string `toml:"-"`

	// Label is the human-readable display name.
	Label string `toml:"label"`

	// Format selects the tokenizer dialect.
	Format Format `toml:"format"`

	// Delimiter overrides the format's primary delimiter. For csv it
	// must be a single rune; for delimited it may be any string.
	Delimiter string `toml:"delimiter"`

	// ListDelimiter splits multi-value fields. Empty means the mapper's
	// default.
	ListDelimiter string `toml:"list_delimiter"`

	// MultiValueDelimiters restricts splitting to the listed fields,
	// each with its own delimiter. When absent every field splits on
	// ListDelimiter.
	MultiValueDelimiters map[string]string `toml:"multi_value_delimiters"`

	// HasHeaderRow marks the first post-skip row as a header.
	HasHeaderRow bool `toml:"has_header_row"`

	// SkipHeaderRows discards this many leading rows per stream.
	SkipHeaderRows int `toml:"skip_header_rows"`

	// FieldNames supplies an explicit schema instead of a header row.
	// Blank entries get generated positional names.
	FieldNames []string `toml:"field_names"`
}

// Validate checks the profile for configuration mistakes. Field-name
// problems surface here rather than at first use.
func (p Profile) Validate() error {
	switch p.Format {
	case FormatCSV:
		if p.Delimiter != "" && utf8.RuneCountInString(p.Delimiter) != 1 {
			return fmt.Errorf("profile %s: csv delimiter must be a single character, got %q", p.Key, p.Delimiter)
		}
	case FormatTSV, FormatDelimited:
		// Any delimiter string is fine.
	default:
		return fmt.Errorf("profile %s: unknown format %q (want csv, tsv, or delimited)", p.Key, p.Format)
	}

	if p.SkipHeaderRows < 0 {
		return fmt.Errorf("profile %s: skip_header_rows must be non-negative", p.Key)
	}

	if p.FieldNames != nil {
		resolved := make([]string, len(p.FieldNames))
		for i, name := range p.FieldNames {
			if name == "" {
				resolved[i] = flattext.DefaultColumnName(i)
			} else {
				resolved[i] = name
			}
		}
		if err := flattext.ValidateFieldNames(resolved); err != nil {
			return fmt.Errorf("profile %s: field_names: %w", p.Key, err)
		}
	}

	return nil
}

// Tokenizer builds the line tokenizer for the profile's dialect.
func (p Profile) Tokenizer() flattext.Tokenizer {
	switch p.Format {
	case FormatCSV:
		var comma rune
		if p.Delimiter != "" {
			comma, _ = utf8.DecodeRuneInString(p.Delimiter)
		}
		return flattext.CSVTokenizer{Comma: comma}
	case FormatTSV:
		return flattext.DelimitedTokenizer{}
	default:
		return flattext.DelimitedTokenizer{Delimiter: p.Delimiter}
	}
}

// NewMapper builds a fresh row mapper for one stream of this profile's
// format, with the explicit schema applied when the profile carries one.
func (p Profile) NewMapper() (*flattext.RowMapper, error) {
	m := flattext.NewRowMapper(p.Tokenizer(), flattext.Config{
		ListDelimiter:        p.ListDelimiter,
		MultiValueDelimiters: p.MultiValueDelimiters,
		HasHeaderRow:         p.HasHeaderRow,
		SkipHeaderRows:       p.SkipHeaderRows,
	})
	if p.FieldNames != nil {
		if err := m.SetFieldNames(p.FieldNames); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Key, err)
		}
	}
	return m, nil
}
