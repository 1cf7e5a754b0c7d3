package flattext

import (
	"bytes"
	"encoding/json"
)

// Record is the ordered field-name to value mapping produced for one data
// row. Values are either *string (nil meaning absent) or []*string when a
// multi-value delimiter applied. Field order follows the field-name
// sequence, and JSON marshaling preserves it.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates an empty record with capacity for n fields.
func NewRecord(n int) *Record {
	return &Record{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// Set stores a value under key. Setting an existing key overwrites the
// value but keeps the key's original position.
func (r *Record) Set(key string, value any) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key and whether the key is present. A present
// key may still hold a nil value (an absent cell).
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in insertion order. The returned slice is
// shared; callers must not modify it.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalJSON encodes the record as a JSON object with fields in
// insertion order. Absent values encode as null.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
