// Package config provides configuration loading for the Inkpad desktop shell.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the persistence core.
const (
	DefaultAddr           = "127.0.0.1:8090"
	DefaultDebounceMS     = 100
	DefaultWriteTimeoutMS = 5000
	DefaultLogLevel       = "info"
)

// Config holds the desktop shell configuration.
type Config struct {
	// Addr is the localhost address the shell listens on.
	Addr string `yaml:"addr"`

	// DataDir is the root directory for the key-value store and,
	// when the host file service is enabled, the per-document files.
	DataDir string `yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// DebounceMS is the write coalescing window in milliseconds.
	DebounceMS int `yaml:"debounce_ms"`

	// WriteTimeoutMS bounds every backend call.
	WriteTimeoutMS int `yaml:"write_timeout_ms"`

	// LocalQuotaBytes caps the key-value store size. Zero means unlimited.
	LocalQuotaBytes int64 `yaml:"local_quota_bytes"`

	// HostFiles enables the per-document file service backend.
	HostFiles bool `yaml:"host_files"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:           DefaultAddr,
		DataDir:        "./data",
		LogLevel:       DefaultLogLevel,
		DebounceMS:     DefaultDebounceMS,
		WriteTimeoutMS: DefaultWriteTimeoutMS,
		HostFiles:      true,
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty or the file does not exist, then applies INKPAD_* env
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = DefaultDebounceMS
	}
	if cfg.WriteTimeoutMS <= 0 {
		cfg.WriteTimeoutMS = DefaultWriteTimeoutMS
	}
	return cfg, nil
}

// applyEnv overrides config fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("INKPAD_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("INKPAD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("INKPAD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("INKPAD_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DebounceMS = n
		}
	}
	if v := os.Getenv("INKPAD_WRITE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.WriteTimeoutMS = n
		}
	}
	if v := os.Getenv("INKPAD_LOCAL_QUOTA_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.LocalQuotaBytes = n
		}
	}
	if v := os.Getenv("INKPAD_HOST_FILES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.HostFiles = b
		}
	}
}

// HostFilesDir returns the per-document file root under the data dir.
func (c *Config) HostFilesDir() string {
	return filepath.Join(c.DataDir, "files")
}

// DebounceWindow returns the coalescing window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// WriteTimeout returns the backend call timeout as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}
