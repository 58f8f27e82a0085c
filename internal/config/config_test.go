// Package config tests for configuration loading.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.DebounceWindow() != 100*time.Millisecond {
		t.Errorf("DebounceWindow = %v, want 100ms", cfg.DebounceWindow())
	}
	if !cfg.HostFiles {
		t.Error("HostFiles should default to true")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "addr: \"127.0.0.1:9999\"\ndebounce_ms: 250\nlocal_quota_bytes: 1024\nhost_files: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DebounceMS != 250 {
		t.Errorf("DebounceMS = %d, want 250", cfg.DebounceMS)
	}
	if cfg.LocalQuotaBytes != 1024 {
		t.Errorf("LocalQuotaBytes = %d, want 1024", cfg.LocalQuotaBytes)
	}
	if cfg.HostFiles {
		t.Error("HostFiles should be false")
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if cfg.DebounceMS != DefaultDebounceMS {
		t.Errorf("DebounceMS = %d, want default", cfg.DebounceMS)
	}
}

func TestMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("addr: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed YAML should error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INKPAD_ADDR", "127.0.0.1:7070")
	t.Setenv("INKPAD_DEBOUNCE_MS", "42")
	t.Setenv("INKPAD_HOST_FILES", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7070" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DebounceMS != 42 {
		t.Errorf("DebounceMS = %d, want 42", cfg.DebounceMS)
	}
	if cfg.HostFiles {
		t.Error("HostFiles should be overridden to false")
	}
}
