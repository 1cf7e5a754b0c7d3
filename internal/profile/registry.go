package profile

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Profile)
	registryMu sync.RWMutex
)

func init() {
	registerBuiltins()
}

// registerBuiltins installs the always-available profiles.
func registerBuiltins() {
	Register(Profile{
		Key:          "csv",
		Label:        "Comma-separated values",
		Format:       FormatCSV,
		HasHeaderRow: true,
	})
	Register(Profile{
		Key:          "tsv",
		Label:        "Tab-delimited values",
		Format:       FormatTSV,
		HasHeaderRow: true,
	})
}

// Register adds a profile to the registry.
// Panics if a profile with the same key is already registered or the
// profile fails validation; registration happens at startup where a
// panic is the desired fail-fast behavior.
func Register(p Profile) {
	if p.Key == "" {
		panic("profile key must not be empty")
	}
	if err := p.Validate(); err != nil {
		panic(err.Error())
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[p.Key]; exists {
		panic(fmt.Sprintf("profile already registered: %s", p.Key))
	}
	registry[p.Key] = p
}

// Get returns a profile by key.
// Returns false if not found.
func Get(key string) (Profile, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[key]
	return p, ok
}

// All returns all registered profiles sorted by key.
func All() []Profile {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Profile, 0, len(registry))
	for _, p := range registry {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Count returns the number of registered profiles.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered profiles and reinstalls the built-ins.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	registry = make(map[string]Profile)
	registryMu.Unlock()

	registerBuiltins()
}
