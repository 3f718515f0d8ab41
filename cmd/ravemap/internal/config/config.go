// Package config loads the ravemap configuration file.
//
// The file lives under os.UserConfigDir():
//
//	~/Library/Application Support/ravemap/config.yaml   (macOS)
//	~/.config/ravemap/config.yaml                       (Linux)
//	%AppData%/ravemap/config.yaml                       (Windows)
//
// The RAVEMAP_CONFIG environment variable overrides the location.
// All settings are optional; command-line flags take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "ravemap"

	// fileName is the configuration file name.
	fileName = "config.yaml"
)

// Config holds the persistent service and pipeline settings.
type Config struct {
	Serve    Serve    `yaml:"serve,omitempty"`
	Pipeline Pipeline `yaml:"pipeline,omitempty"`
}

// Serve configures the OSC control service.
type Serve struct {
	// BindAddr is the listen interface.
	BindAddr string `yaml:"bind_addr,omitempty"`

	// InPort receives control messages.
	InPort int `yaml:"in_port,omitempty"`

	// ReplyHost receives result notifications.
	ReplyHost string `yaml:"reply_host,omitempty"`

	// OutPort receives result notifications.
	OutPort int `yaml:"out_port,omitempty"`

	// KeepGoing skips unreadable audio files instead of failing jobs.
	KeepGoing bool `yaml:"keep_going,omitempty"`
}

// Pipeline configures job execution.
type Pipeline struct {
	// CacheDir holds the latent vector cache. Empty disables caching.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Seed fixes the random seed for reduction layouts.
	Seed int64 `yaml:"seed,omitempty"`
}

// DefaultPath returns the configuration file location.
func DefaultPath() (string, error) {
	if p := os.Getenv("RAVEMAP_CONFIG"); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, fileName), nil
}

// Load reads the configuration from the default location. A missing
// file (or an undeterminable location) yields an empty configuration.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return &Config{}, nil
	}
	cfg, err := LoadFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return cfg, err
}

// LoadFrom reads the configuration from path. Unlike Load, a missing
// file is an error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
