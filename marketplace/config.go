package marketplace

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML shape for a marketplace table on disk.
type File struct {
	// Marketplaces replaces the builtin table when non-empty.
	Marketplaces []Config `yaml:"marketplaces"`
	// IncludeBuiltin appends the builtin table after the file's entries,
	// so local overrides win the first-match rule.
	IncludeBuiltin bool `yaml:"include_builtin"`
}

// Build validates the file's entries and assembles a Registry. An empty
// file falls back to the builtin table.
func (f File) Build() (*Registry, error) {
	configs := f.Marketplaces
	if f.IncludeBuiltin {
		configs = append(configs, Builtin()...)
	}
	if len(configs) == 0 {
		configs = Builtin()
	}

	for i, c := range configs {
		if c.DomainFragment == "" {
			return nil, fmt.Errorf("marketplace: entry %d has empty domain", i)
		}
	}

	return NewRegistry(configs), nil
}

// LoadFile reads a YAML marketplace table and builds a Registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("marketplace: read config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("marketplace: parse config: %w", err)
	}

	return f.Build()
}
