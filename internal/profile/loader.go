package profile

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// profileFile is the on-disk TOML layout:
//
//	[profiles.orders]
//	label = "Order exports"
//	format = "csv"
//	has_header_row = true
//	skip_header_rows = 1
//	list_delimiter = "|"
//
//	[profiles.orders.multi_value_delimiters]
//	tags = ";"
type profileFile struct {
	Profiles map[string]Profile `toml:"profiles"`
}

// LoadFile reads profiles from a TOML file and registers each one.
// A missing file is not an error; the built-ins remain available.
func LoadFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var file profileFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}

	for key, p := range file.Profiles {
		p.Key = key
		if err := p.Validate(); err != nil {
			return err
		}
		if _, exists := Get(key); exists {
			return fmt.Errorf("profile %s: already registered", key)
		}
		Register(p)
	}

	return nil
}
