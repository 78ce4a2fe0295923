// Package config provides configuration loading and management for fieldkit.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is the number of goroutines used by filter evaluation
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Image I/O parameters
	Image struct {
		// JPEGQuality is the quality used when writing JPEG resources (1-100)
		JPEGQuality int `yaml:"jpegQuality"`

		// Format forces the format of written resources ("auto", "jpeg", "png", "gif")
		Format string `yaml:"format"`
	} `yaml:"image"`

	// Filter parameters
	Filter struct {
		// MeanRadius is the default mean filter radius sequence used by the CLI
		MeanRadius []int `yaml:"meanRadius"`
	} `yaml:"filter"`

	// Output parameters
	Output struct {
		// LogLevel is one of debug, info, warn, error
		LogLevel string `yaml:"logLevel"`

		// PrintMetrics dumps collected metrics after each command
		PrintMetrics bool `yaml:"printMetrics"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU() // Use all available cores by default

	cfg.Image.JPEGQuality = 90
	cfg.Image.Format = "auto"

	cfg.Filter.MeanRadius = []int{1}

	cfg.Output.LogLevel = "info"
	cfg.Output.PrintMetrics = false

	return cfg
}

// Validate checks that values are usable
func (c *Config) Validate() error {
	if c.Processing.Workers < 1 {
		return fmt.Errorf("processing.workers must be at least 1, got %d", c.Processing.Workers)
	}
	if c.Image.JPEGQuality < 1 || c.Image.JPEGQuality > 100 {
		return fmt.Errorf("image.jpegQuality must be within 1-100, got %d", c.Image.JPEGQuality)
	}
	for i, r := range c.Filter.MeanRadius {
		if r < 1 {
			return fmt.Errorf("filter.meanRadius[%d] must be positive, got %d", i, r)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
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

// WriteConfig encodes the configuration as YAML to w
func WriteConfig(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	return enc.Close()
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
