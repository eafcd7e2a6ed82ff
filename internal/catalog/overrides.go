package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverrides reads a YAML team→profile map from path. Each entry replaces
// the catalog default for that key wholesale; fields left out of an override
// profile are false, not inherited.
func LoadOverrides(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}
	overrides := make(map[string]Profile)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing overrides file %s: %w", path, err)
	}
	return overrides, nil
}

// LoadOverridesInto loads overrides from path and publishes them on c.
func LoadOverridesInto(c *Catalog, path string) error {
	overrides, err := LoadOverrides(path)
	if err != nil {
		return err
	}
	c.ApplyOverrides(overrides)
	return nil
}
