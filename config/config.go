// Package config handles optional user defaults for healthwait.
//
// Config is stored at $XDG_CONFIG_HOME/healthwait/config.yaml (defaults to
// ~/.config/healthwait/config.yaml). Every value is a default only; command
// line flags take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user defaults for the CLI.
type Config struct {
	// Docker is the container runtime binary, default "docker".
	Docker string `yaml:"docker,omitempty"`
	// Timeout is the default overall timeout in whole seconds; 0 waits
	// indefinitely.
	Timeout int `yaml:"timeout,omitempty"`
	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `yaml:"log-level,omitempty"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/healthwait/config.yaml.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "healthwait", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "healthwait", "config.yaml")
}

// Load reads the config file. If the file does not exist, a zero Config
// is returned (not an error).
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("parse config: negative timeout %d", cfg.Timeout)
	}
	return &cfg, nil
}
