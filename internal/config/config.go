// Package config holds the on-disk configuration for the heap-driver CLI:
// arena sizing and watch-mode behavior.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the heap-driver's configuration, loadable from and savable to
// a JSON file, mirroring the teacher's cli.Config convention.
type Config struct {
	// ArenaCapacity bounds how large the heap's backing arena may grow,
	// in bytes, before Malloc/Realloc start reporting exhaustion.
	ArenaCapacity int `json:"arena_capacity"`

	// WatchDir, if set, puts heap-driver into live mode: it watches
	// this directory for new *.trace files and replays each as it
	// appears.
	WatchDir string `json:"watch_dir"`

	Verbose bool `json:"verbose"`
}

// Default returns the configuration heap-driver uses absent a config file
// or any overriding flags.
func Default() *Config {
	return &Config{
		ArenaCapacity: 64 * 1024 * 1024,
	}
}

// Load reads configuration from path. A missing file is not an error: it
// yields the default configuration, the same fallback the teacher's
// LoadConfig uses.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes c to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}
