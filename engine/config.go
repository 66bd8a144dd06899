package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/impulsevault/engine/gate"
	"github.com/impulsevault/engine/marketplace"
)

// configFile is the YAML shape of the engine config: the marketplace table
// at the top level plus an optional gate tuning block.
type configFile struct {
	marketplace.File `yaml:",inline"`
	Gate             gate.Config `yaml:"gate"`
}

// LoadFile reads an engine config from YAML. The marketplace entries follow
// the marketplace file shape; the gate block is optional, and fields left
// zero pick up the gate defaults when a gate opens.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("engine: read config: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	registry, err := f.File.Build()
	if err != nil {
		return Config{}, err
	}

	return Config{Registry: registry, Gate: f.Gate}, nil
}
