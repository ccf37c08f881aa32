// Package config loads driver configuration for the swiftpool CLI.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRounds          = 20
	DefaultElements        = 1000
	DefaultMinChunk        = 1
	DefaultRecordSize      = 7
	DefaultInitialCapacity = 1024
	DefaultPath            = "swift_dump.out"
)

// Config describes one driver run: how the pool is sized and how the
// dump rounds are shaped.
type Config struct {
	Threads         int    `yaml:"threads"`
	Rounds          int    `yaml:"rounds"`
	Elements        int    `yaml:"elements"`
	MinChunk        int    `yaml:"min_chunk"`
	RecordSize      int    `yaml:"record_size"`
	InitialCapacity int64  `yaml:"initial_capacity"`
	Path            string `yaml:"path"`
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() *Config {
	return &Config{
		Threads:         runtime.NumCPU(),
		Rounds:          DefaultRounds,
		Elements:        DefaultElements,
		MinChunk:        DefaultMinChunk,
		RecordSize:      DefaultRecordSize,
		InitialCapacity: DefaultInitialCapacity,
		Path:            DefaultPath,
	}
}

// Load reads a YAML config file, applying its values over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration for values the driver cannot run with.
func (c *Config) Validate() error {
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.Elements <= 0 {
		return fmt.Errorf("elements must be positive, got %d", c.Elements)
	}
	if c.RecordSize <= 0 {
		return fmt.Errorf("record_size must be positive, got %d", c.RecordSize)
	}
	if c.InitialCapacity <= 0 {
		return fmt.Errorf("initial_capacity must be positive, got %d", c.InitialCapacity)
	}
	if c.Path == "" {
		return fmt.Errorf("path must not be empty")
	}
	return nil
}
