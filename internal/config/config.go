package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures cpsync runtime settings.
type Config struct {
	DeviceAddress   string
	ProbeTimeout    time.Duration
	PollInterval    time.Duration
	StateDir        string
	LogLevel        string
	LogFormat       string
	Listen          string
	ShellOrigin     string
	ShellGeneration string
	InboxDir        string
}

const (
	defaultConfigPath      = "~/.config/cpsync/config.toml"
	defaultStateDir        = "~/.local/share/cpsync"
	defaultProbeTimeout    = 5 * time.Second
	defaultPollInterval    = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultListen          = "127.0.0.1:8417"
	defaultShellGeneration = "cpsync-shell-v1"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ProbeTimeout:    defaultProbeTimeout,
		PollInterval:    defaultPollInterval,
		StateDir:        mustExpand(defaultStateDir),
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		Listen:          defaultListen,
		ShellGeneration: defaultShellGeneration,
	}
}

// Load locates and parses the cpsync config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		DeviceAddress   string `toml:"device_address"`
		ProbeTimeout    string `toml:"probe_timeout"`
		PollInterval    string `toml:"poll_interval"`
		StateDir        string `toml:"state_dir"`
		LogLevel        string `toml:"log_level"`
		LogFormat       string `toml:"log_format"`
		Listen          string `toml:"listen"`
		ShellOrigin     string `toml:"shell_origin"`
		ShellGeneration string `toml:"shell_generation"`
		InboxDir        string `toml:"inbox_dir"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.DeviceAddress = strings.TrimSpace(raw.DeviceAddress)

	if cfg.ProbeTimeout, err = parseDuration(raw.ProbeTimeout, defaultProbeTimeout); err != nil {
		return Config{}, fmt.Errorf("parse config: probe_timeout: %w", err)
	}
	if cfg.PollInterval, err = parseDuration(raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, fmt.Errorf("parse config: poll_interval: %w", err)
	}

	if dir := strings.TrimSpace(raw.StateDir); dir != "" {
		cfg.StateDir = mustExpand(dir)
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := strings.TrimSpace(raw.LogFormat); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	if listen := strings.TrimSpace(raw.Listen); listen != "" {
		cfg.Listen = listen
	}
	cfg.ShellOrigin = strings.TrimRight(strings.TrimSpace(raw.ShellOrigin), "/")
	if gen := strings.TrimSpace(raw.ShellGeneration); gen != "" {
		cfg.ShellGeneration = gen
	}
	if inbox := strings.TrimSpace(raw.InboxDir); inbox != "" {
		cfg.InboxDir = mustExpand(inbox)
	}

	return cfg, nil
}

// LogPath returns the path to the cpsync log file.
func (c Config) LogPath() string {
	return filepath.Join(c.stateDir(), "cpsync.log")
}

// CacheDBPath returns the path of the offline shell cache database.
func (c Config) CacheDBPath() string {
	return filepath.Join(c.stateDir(), "shell-cache.db")
}

// EnsureStateDir creates the state directory when missing.
func (c Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.stateDir(), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}

func (c Config) stateDir() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir)
	}
	return c.StateDir
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
