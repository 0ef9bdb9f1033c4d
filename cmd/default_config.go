package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/organoid-sim/sim"
)

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version string                  `yaml:"version"`
	Presets map[string]sim.Scenario `yaml:"presets"`
}

// loadDefaultsConfig parses defaults.yaml into a Config struct.
// Uses strict field checking.
func loadDefaultsConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults file %s: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse defaults YAML: %w", err)
	}
	return &cfg, nil
}

// PresetNames returns the preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns the named preset scenario from the defaults file at path.
// Relative model paths resolve against the defaults file's directory.
func GetPreset(path, name string) (*sim.Scenario, error) {
	cfg, err := loadDefaultsConfig(path)
	if err != nil {
		return nil, err
	}
	sc, ok := cfg.Presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q not found in %s (available: %v)", name, path, cfg.PresetNames())
	}
	if sc.Model.Path != "" && !filepath.IsAbs(sc.Model.Path) {
		sc.Model.Path = filepath.Join(filepath.Dir(path), sc.Model.Path)
	}
	if sc.Steps == 0 {
		sc.Steps = sim.DefaultSteps
	}
	return &sc, nil
}
