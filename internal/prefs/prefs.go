// Package prefs persists the small amount of state cpsync remembers between
// runs: the last device that answered a health check and the TUI theme.
// The file lives at ~/.config/cpsync/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"
)

// Prefs is the remembered state.
type Prefs struct {
	Theme         string `toml:"theme"`
	DeviceAddress string `toml:"device_address"`
}

const (
	defaultPrefsPath = "~/.config/cpsync/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

func defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

func (p *Prefs) normalize() {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.DeviceAddress = strings.TrimSpace(p.DeviceAddress)
}

// Load reads preferences from path. A missing, unreadable or corrupt file
// yields the defaults: losing a remembered address must never stop startup.
// The error is always nil and kept for symmetry with Save.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return defaults(), nil
	}
	return read(resolved), nil
}

func read(resolved string) Prefs {
	data, err := os.ReadFile(resolved)
	if err != nil {
		return defaults()
	}
	p := defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return defaults()
	}
	p.normalize()
	return p
}

// Save replaces the preferences file with p.
func Save(path string, p Prefs) error {
	return withLock(path, func(resolved string) error {
		return write(resolved, p)
	})
}

// Update applies fn to the stored preferences and writes the result back.
// The read and the write happen under one file lock, so the TUI saving a
// theme and the poller saving an address never drop each other's change.
func Update(path string, fn func(*Prefs)) error {
	return withLock(path, func(resolved string) error {
		p := read(resolved)
		fn(&p)
		return write(resolved, p)
	})
}

func withLock(path string, fn func(resolved string) error) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	lock := flock.New(resolved + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock prefs: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	return fn(resolved)
}

// write goes through a temp file so a crash never leaves half a file behind.
func write(resolved string, p Prefs) error {
	p.normalize()
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
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
