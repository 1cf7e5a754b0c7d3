package flattext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_OrderAndOverwrite(t *testing.T) {
	rec := NewRecord(3)
	rec.Set("b", strptr("1"))
	rec.Set("a", strptr("2"))
	rec.Set("b", strptr("3"))

	assert.Equal(t, []string{"b", "a"}, rec.Keys())
	assert.Equal(t, 2, rec.Len())

	v, ok := rec.Get("b")
	require.True(t, ok)
	assert.Equal(t, strptr("3"), v)

	_, ok = rec.Get("missing")
	assert.False(t, ok)
}

func TestRecord_MarshalJSON(t *testing.T) {
	rec := NewRecord(3)
	rec.Set("z", strptr("last-first"))
	rec.Set("a", (*string)(nil))
	rec.Set("tags", []*string{strptr("x"), nil})

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last-first","a":null,"tags":["x",null]}`, string(data))
}

func TestRecord_MarshalJSON_Empty(t *testing.T) {
	data, err := json.Marshal(NewRecord(0))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
