// Package logtail reads the cpsync log file for `cpsync logs` and the TUI
// log view.
//
// # Reading
//
// Read returns the last N lines of a file in one sequential pass using a ring
// buffer of N entries, so memory stays bounded however large the log grows.
// A missing file is not an error; it reads as empty.
//
// # Levels
//
// LevelOf understands both zap encodings cpsync writes: console lines, where
// the level is the second tab separated field, and JSON lines with a "level"
// key. Filter drops lines below a minimum level and keeps unlevelled
// continuation lines together with the entry they belong to.
//
// # Following
//
// Follow watches the log's directory with fsnotify and emits each complete
// line appended after the call. A trailing partial line is held until its
// newline arrives. A truncated file is read again from the start.
package logtail
