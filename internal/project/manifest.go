// Package project holds the host-facing integration surface the core does
// not own: the ember.toml manifest, content-hash digests, and an in-memory
// cache hosts may use to skip re-analyzing unchanged translation units.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file name looked up when walking toward the root.
const ManifestName = "ember.toml"

// Manifest is a loaded ember.toml plus where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the ember.toml structure.
type Config struct {
	Package  PackageConfig  `toml:"package"`
	Check    CheckConfig    `toml:"check"`
	Features FeaturesConfig `toml:"features"`
}

// PackageConfig is the [package] table.
type PackageConfig struct {
	Name string `toml:"name"`
}

// CheckConfig is the [check] table: the entry file the pipeline starts from.
type CheckConfig struct {
	Entry string `toml:"entry"`
}

// FeaturesConfig is the [features] table, defaulting the pipeline flags.
type FeaturesConfig struct {
	TrackTimeline bool   `toml:"track_timeline"`
	TrackCosts    bool   `toml:"track_costs"`
	WarnCosts     bool   `toml:"warn_costs"`
	Language      string `toml:"language"`
}

// FindManifest walks from startDir upward until it finds ember.toml.
func FindManifest(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("project: resolve %s: %w", startDir, err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// LoadManifest finds and parses the manifest governing startDir.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	return cfg, nil
}
