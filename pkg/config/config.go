// Package config provides configuration loading and management for hierseg.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// TargetRegions is the number of initial superpixels to seed.
		TargetRegions int `yaml:"targetRegions"`

		// Compactness weights spatial against color distance in SLIC.
		Compactness float64 `yaml:"compactness"`

		// Iterations caps the SLIC clustering loop.
		Iterations int `yaml:"iterations"`

		// Criterion selects the merge dissimilarity:
		// "mumford-shah" or "color".
		Criterion string `yaml:"criterion"`

		// Workers specifies how many goroutines to use for the parallel
		// assignment phase.
		Workers int `yaml:"workers"`
	} `yaml:"segmentation"`

	// Render parameters
	Render struct {
		// Style selects the label coloring:
		// "mean-color", "palette" or "contours".
		Style string `yaml:"style"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.TargetRegions = 400
	cfg.Segmentation.Compactness = 10.0
	cfg.Segmentation.Iterations = 10
	cfg.Segmentation.Criterion = "mumford-shah"
	cfg.Segmentation.Workers = runtime.NumCPU()

	cfg.Render.Style = "mean-color"

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
