package lifecycle

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk layout of a cascade graph
type registryFile struct {
	Entities []Entry `yaml:"entities"`
}

// LoadRegistry reads a cascade graph from a YAML file
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade config %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a YAML cascade graph. Unknown keys are rejected.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("%w: no entities declared", ErrInvalidConfig)
	}
	return NewRegistry(file.Entities...)
}
