// Package config handles project discovery and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project marker file searched for during discovery.
const FileName = "stevedore.yml"

// Config holds a stevedore project configuration, loaded from the
// stevedore.yml at the project root.
type Config struct {
	// Project names the deployment; container names are prefixed with it.
	Project string `yaml:"project"`

	// Base is the base topology document, relative to the project root.
	Base string `yaml:"base"`

	// Overlays are override documents applied on top of Base, in order.
	Overlays []string `yaml:"overlays"`

	// Output is where rendered topologies are written. Defaults to
	// "output" under the project root.
	Output string `yaml:"output"`

	// Strict enables strict composition: replacing a mapping with a
	// scalar across layers becomes an error instead of a replace.
	Strict bool `yaml:"strict"`

	// Root is the project root directory. Not read from the file.
	Root string `yaml:"-"`
}

// FindRoot searches upward from dir for a directory containing
// stevedore.yml.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}

	for {
		marker := filepath.Join(dir, FileName)
		if info, err := os.Stat(marker); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("project root not found (no %s in this or any parent directory)", FileName)
}

// Load finds the project root starting from dir and parses its
// stevedore.yml.
func Load(dir string) (*Config, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return nil, err
	}
	return LoadFile(filepath.Join(root, FileName))
}

// LoadFile parses the given stevedore.yml.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.Root = filepath.Dir(path)
	if cfg.Project == "" {
		cfg.Project = filepath.Base(cfg.Root)
	}
	if cfg.Base == "" {
		cfg.Base = defaultBase(cfg.Root)
	}
	if len(cfg.Overlays) == 0 {
		if _, err := os.Stat(filepath.Join(cfg.Root, "docker-compose.override.yml")); err == nil {
			cfg.Overlays = []string{"docker-compose.override.yml"}
		}
	}
	if cfg.Output == "" {
		cfg.Output = "output"
	}

	return cfg, nil
}

// defaultBase picks the base document when the config names none:
// topology.yml, falling back to a conventional docker-compose.yml.
func defaultBase(root string) string {
	if _, err := os.Stat(filepath.Join(root, "topology.yml")); err == nil {
		return "topology.yml"
	}
	if _, err := os.Stat(filepath.Join(root, "docker-compose.yml")); err == nil {
		return "docker-compose.yml"
	}
	return "topology.yml"
}

// LayerFiles returns the absolute paths of the base document followed
// by each overlay, in application order.
func (c *Config) LayerFiles() []string {
	files := make([]string, 0, len(c.Overlays)+1)
	files = append(files, c.abs(c.Base))
	for _, overlay := range c.Overlays {
		files = append(files, c.abs(overlay))
	}
	return files
}

// OutputDir returns the absolute path of the rendered-output directory.
func (c *Config) OutputDir() string {
	return c.abs(c.Output)
}

// StateDir returns the project-local state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.Root, ".stevedore")
}

// SnapshotsDir returns the directory for rendered-output snapshots.
func (c *Config) SnapshotsDir() string {
	return filepath.Join(c.StateDir(), "snapshots")
}

func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}
