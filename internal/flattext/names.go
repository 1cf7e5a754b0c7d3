package flattext

import (
	"fmt"
	"strconv"
)

// DefaultColumnName returns the generated name for a column at the given
// zero-based position. Generated names are 1-based: column_1, column_2, ...
func DefaultColumnName(pos int) string {
	return "column_" + strconv.Itoa(pos+1)
}

// ValidateFieldNames checks that a field-name sequence is structurally
// valid: no empty entries and no duplicates. It is the default validator
// for RowMapper.
func ValidateFieldNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("field name at position %d is empty", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate field name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
