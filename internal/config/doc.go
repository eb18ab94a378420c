// Package config handles loading and parsing the cpsync configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cpsync/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/cpsync/config.toml
//   - State directory: ~/.local/share/cpsync (log file, shell cache database)
//   - Probe timeout: 5s
//   - Background poll interval: 10s
//   - Offline shell listen address: 127.0.0.1:8417
//   - Shell cache generation: cpsync-shell-v1
//
// # TOML Format
//
//	device_address = "192.168.4.1"
//	probe_timeout = "5s"
//	poll_interval = "10s"
//	state_dir = "~/.local/share/cpsync"
//	log_level = "info"
//	log_format = "console"
//	listen = "127.0.0.1:8417"
//	shell_origin = ""
//	shell_generation = "cpsync-shell-v1"
//	inbox_dir = "~/Books/outbox"
//
// All fields are optional. Durations use Go duration syntax. Tilde expansion is
// performed for state_dir and inbox_dir.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML syntax errors and unparseable durations ("parse config: ...")
package config
