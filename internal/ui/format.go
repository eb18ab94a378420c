package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

var fileIcons = map[string]string{
	".epub": "📖",
	".pdf":  "📄",
	".txt":  "📝",
	".mobi": "📕",
	".jpg":  "🖼️",
	".jpeg": "🖼️",
	".png":  "🖼️",
	".bmp":  "🖼️",
	".mp3":  "🎵",
	".wav":  "🎵",
	".flac": "🎵",
	".zip":  "📦",
	".rar":  "📦",
	".7z":   "📦",
}

// fileIcon picks an icon from the file extension.
func fileIcon(name string) string {
	if icon, ok := fileIcons[strings.ToLower(filepath.Ext(name))]; ok {
		return icon
	}
	return "📄"
}

// formatSize renders a byte count the way the device's own UI does.
func formatSize(bytes int64) string {
	switch {
	case bytes > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes > 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// sanitizeName makes a file name safe to draw. Escape sequences and control
// characters are dropped; everything else, markup included, is shown as is.
func sanitizeName(name string) string {
	stripped := ansi.Strip(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, stripped)
}

// truncate shortens s to width cells with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
