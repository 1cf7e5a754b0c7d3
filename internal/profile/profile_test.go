package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablefeed/tablefeed/internal/flattext"
)

func TestBuiltins(t *testing.T) {
	p, ok := Get("csv")
	require.True(t, ok)
	assert.Equal(t, FormatCSV, p.Format)
	assert.True(t, p.HasHeaderRow)

	p, ok = Get("tsv")
	require.True(t, ok)
	assert.Equal(t, FormatTSV, p.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{
			name:    "valid csv",
			profile: Profile{Key: "p", Format: FormatCSV},
		},
		{
			name:    "csv with single-rune delimiter",
			profile: Profile{Key: "p", Format: FormatCSV, Delimiter: ";"},
		},
		{
			name:    "csv with multi-char delimiter",
			profile: Profile{Key: "p", Format: FormatCSV, Delimiter: "::"},
			wantErr: true,
		},
		{
			name:    "delimited with multi-char delimiter",
			profile: Profile{Key: "p", Format: FormatDelimited, Delimiter: "::"},
		},
		{
			name:    "unknown format",
			profile: Profile{Key: "p", Format: "xlsx"},
			wantErr: true,
		},
		{
			name:    "negative skip rows",
			profile: Profile{Key: "p", Format: FormatCSV, SkipHeaderRows: -1},
			wantErr: true,
		},
		{
			name:    "duplicate field names",
			profile: Profile{Key: "p", Format: FormatCSV, FieldNames: []string{"a", "a"}},
			wantErr: true,
		},
		{
			name:    "blank field names defaulted before validation",
			profile: Profile{Key: "p", Format: FormatCSV, FieldNames: []string{"a", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewMapper(t *testing.T) {
	p := Profile{
		Key:        "fixed",
		Format:     FormatCSV,
		FieldNames: []string{"a", "", "c"},
	}
	require.NoError(t, p.Validate())

	m, err := p.NewMapper()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "column_2", "c"}, m.FieldNames())

	row, err := m.ProcessRow("1,2,3")
	require.NoError(t, err)
	require.Equal(t, flattext.RowRecord, row.Kind)
	assert.Equal(t, []string{"a", "column_2", "c"}, row.Record.Keys())
}

func TestNewMapper_Dialects(t *testing.T) {
	tsv := Profile{Key: "t", Format: FormatTSV}
	m, err := tsv.NewMapper()
	require.NoError(t, err)
	row, err := m.ProcessRow("x\ty")
	require.NoError(t, err)
	// Built-like tsv profile without header flag: first row is data.
	assert.Equal(t, flattext.RowRecord, row.Kind)
	assert.Equal(t, 2, row.Record.Len())

	semi := Profile{Key: "s", Format: FormatCSV, Delimiter: ";"}
	m, err = semi.NewMapper()
	require.NoError(t, err)
	row, err = m.ProcessRow(`a;"b;c"`)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Record.Len())
}

func TestRegistry(t *testing.T) {
	t.Cleanup(Clear)

	Register(Profile{Key: "orders", Format: FormatCSV})

	p, ok := Get("orders")
	require.True(t, ok)
	assert.Equal(t, "orders", p.Key)

	keys := make([]string, 0, Count())
	for _, p := range All() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"csv", "orders", "tsv"}, keys)

	assert.Panics(t, func() {
		Register(Profile{Key: "orders", Format: FormatCSV})
	})
	assert.Panics(t, func() {
		Register(Profile{Key: "", Format: FormatCSV})
	})
}

func TestLoadFile(t *testing.T) {
	t.Cleanup(Clear)

	path := filepath.Join(t.TempDir(), "profiles.toml")
	content := `
[profiles.orders]
label = "Order exports"
format = "csv"
has_header_row = true
skip_header_rows = 1
list_delimiter = "|"

[profiles.orders.multi_value_delimiters]
tags = ";"

[profiles.legacy]
format = "delimited"
delimiter = "::"
field_names = ["id", "name", "tags"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, LoadFile(path))

	p, ok := Get("orders")
	require.True(t, ok)
	assert.Equal(t, "Order exports", p.Label)
	assert.Equal(t, 1, p.SkipHeaderRows)
	assert.Equal(t, map[string]string{"tags": ";"}, p.MultiValueDelimiters)

	p, ok = Get("legacy")
	require.True(t, ok)
	assert.False(t, p.HasHeaderRow)
	assert.Equal(t, []string{"id", "name", "tags"}, p.FieldNames)
}

func TestLoadFile_Missing(t *testing.T) {
	assert.NoError(t, LoadFile(filepath.Join(t.TempDir(), "nope.toml")))
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Cleanup(Clear)

	path := filepath.Join(t.TempDir(), "profiles.toml")
	content := `
[profiles.bad]
format = "xlsx"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	assert.Error(t, LoadFile(path))
}
