package flattext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVTokenizer(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "a,b,c",
			want: []string{"a", "b", "c"},
		},
		{
			name: "quoted field with comma",
			line: `a,"b,c",d`,
			want: []string{"a", "b,c", "d"},
		},
		{
			name: "doubled quotes",
			line: `"say ""hi""",x`,
			want: []string{`say "hi"`, "x"},
		},
		{
			name: "empty fields preserved",
			line: "a,,c,",
			want: []string{"a", "", "c", ""},
		},
		{
			name: "lazy quotes tolerated",
			line: `a,b"c,d`,
			want: []string{"a", `b"c`, "d"},
		},
		{
			name: "empty line",
			line: "",
			want: []string{},
		},
	}

	tok := CSVTokenizer{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tok.Tokenize(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVTokenizer_CustomComma(t *testing.T) {
	tok := CSVTokenizer{Comma: ';'}
	got, err := tok.Tokenize("a;b;c,d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c,d"}, got)
}

func TestDelimitedTokenizer(t *testing.T) {
	tok := DelimitedTokenizer{}
	got, err := tok.Tokenize("a\tb\tc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// No quoting: quotes pass through verbatim.
	got, err = tok.Tokenize("a\t\"b\tc\"")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "\"b", "c\""}, got)

	custom := DelimitedTokenizer{Delimiter: "::"}
	got, err = custom.Tokenize("a::b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}
