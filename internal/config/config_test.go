package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ProbeTimeout != defaultProbeTimeout {
		t.Fatalf("ProbeTimeout = %v, want %v", cfg.ProbeTimeout, defaultProbeTimeout)
	}
	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, defaultPollInterval)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}
	if cfg.ShellGeneration != defaultShellGeneration {
		t.Fatalf("ShellGeneration = %q, want %q", cfg.ShellGeneration, defaultShellGeneration)
	}

	wantStateDir, err := expandPath(defaultStateDir)
	if err != nil {
		t.Fatalf("expandPath(defaultStateDir) returned error: %v", err)
	}
	if cfg.StateDir != wantStateDir {
		t.Fatalf("StateDir = %q, want %q", cfg.StateDir, wantStateDir)
	}
	if cfg.LogPath() != filepath.Join(wantStateDir, "cpsync.log") {
		t.Fatalf("LogPath = %q, want under %q", cfg.LogPath(), wantStateDir)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
device_address = "  192.168.4.1  "
probe_timeout = "3s"
poll_interval = " 30s "
state_dir = "  ~/.cpsync  "
log_level = "DEBUG"
listen = "0.0.0.0:9000"
shell_origin = "http://shell.local/ "
shell_generation = "cpsync-shell-v2"
inbox_dir = "~/books"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DeviceAddress != "192.168.4.1" {
		t.Fatalf("DeviceAddress = %q, want %q", cfg.DeviceAddress, "192.168.4.1")
	}
	if cfg.ProbeTimeout != 3*time.Second {
		t.Fatalf("ProbeTimeout = %v, want 3s", cfg.ProbeTimeout)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if !strings.HasPrefix(cfg.StateDir, home) {
		t.Fatalf("StateDir = %q, want it under HOME %q", cfg.StateDir, home)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Fatalf("Listen = %q, want 0.0.0.0:9000", cfg.Listen)
	}
	if cfg.ShellOrigin != "http://shell.local" {
		t.Fatalf("ShellOrigin = %q, want http://shell.local", cfg.ShellOrigin)
	}
	if cfg.ShellGeneration != "cpsync-shell-v2" {
		t.Fatalf("ShellGeneration = %q, want cpsync-shell-v2", cfg.ShellGeneration)
	}
	if cfg.InboxDir != filepath.Join(home, "books") {
		t.Fatalf("InboxDir = %q, want %q", cfg.InboxDir, filepath.Join(home, "books"))
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
probe_timeout = "   "
poll_interval = ""
listen = " "
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ProbeTimeout != defaultProbeTimeout {
		t.Fatalf("ProbeTimeout = %v, want %v", cfg.ProbeTimeout, defaultProbeTimeout)
	}
	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, defaultPollInterval)
	}
	if cfg.Listen != defaultListen {
		t.Fatalf("Listen = %q, want %q", cfg.Listen, defaultListen)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`device_address = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`poll_interval = "often"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "poll_interval") {
		t.Fatalf("Load error = %v, want poll_interval error", err)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestEnsureStateDir_CreatesDirectory(t *testing.T) {
	cfg := Config{StateDir: filepath.Join(t.TempDir(), "nested", "state")}
	if err := cfg.EnsureStateDir(); err != nil {
		t.Fatalf("EnsureStateDir returned error: %v", err)
	}
	info, err := os.Stat(cfg.StateDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("state dir not created: %v", err)
	}
	if cfg.CacheDBPath() != filepath.Join(cfg.StateDir, "shell-cache.db") {
		t.Fatalf("CacheDBPath = %q", cfg.CacheDBPath())
	}
}
