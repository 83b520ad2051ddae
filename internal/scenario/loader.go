package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := LoadYAML(data)
	if err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// LoadYAML validates a scenario document given as YAML bytes.
func LoadYAML(data []byte) (*Scenario, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &MalformedTaskError{Task: "scenario", Reason: err.Error()}
	}
	return build(&def)
}
