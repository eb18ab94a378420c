package ui

import "testing"

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1024, "1024 B"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1024.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Fatalf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFileIcon(t *testing.T) {
	tests := map[string]string{
		"book.epub":  "📖",
		"BOOK.EPUB":  "📖",
		"paper.pdf":  "📄",
		"notes.txt":  "📝",
		"old.mobi":   "📕",
		"cover.jpeg": "🖼️",
		"song.flac":  "🎵",
		"pack.7z":    "📦",
		"unknown":    "📄",
	}
	for name, want := range tests {
		if got := fileIcon(name); got != want {
			t.Fatalf("fileIcon(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<img>.epub", "<img>.epub"},
		{"\x1b[31mred\x1b[0m.pdf", "red.pdf"},
		{"bell\a.txt", "bell.txt"},
		{"line\nbreak.epub", "linebreak.epub"},
		{"Émile & co.epub", "Émile & co.epub"},
	}
	for _, tt := range tests {
		if got := sanitizeName(tt.in); got != tt.want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
