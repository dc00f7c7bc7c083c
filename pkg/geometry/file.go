package geometry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load resolves a geometry from a YAML file when path is set, otherwise
// from the named preset. The result is validated.
func Load(preset, path string) (*Geometry, error) {
	var (
		g   *Geometry
		err error
	)
	if path != "" {
		g, err = LoadFile(path)
	} else {
		g, err = ByName(preset)
	}
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("geometry %q: %w", g.Name, err)
	}
	return g, nil
}

// LoadFile reads a geometry from YAML without validating it.
func LoadFile(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry file: %w", err)
	}
	var g Geometry
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse geometry file: %w", err)
	}
	return &g, nil
}

// Save writes g as YAML.
func Save(path string, g *Geometry) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal geometry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write geometry file: %w", err)
	}
	return nil
}
