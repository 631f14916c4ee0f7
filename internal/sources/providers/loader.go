package providers

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of providers.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new providers loader. An empty path yields the
// built-in catalogue only.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the catalogue file and merges it over the built-in providers.
// ${VAR} references are expanded from the environment before parsing.
func (l *Loader) Load() (Catalogue, error) {
	builtin := Builtin()
	if l.filePath == "" {
		return builtin, nil
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers yaml: %w", err)
	}

	loaded := make(Catalogue, len(file.Providers))
	for name, p := range file.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("provider with empty name")
		}
		if err := p.validate(name); err != nil {
			return nil, err
		}
		if p.Label == "" {
			p.Label = strings.ToUpper(name[:1]) + name[1:]
		}
		p.Claims = p.Claims.withDefaults()
		loaded[name] = p
	}

	return builtin.merge(loaded), nil
}
