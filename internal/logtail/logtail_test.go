package logtail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestLevelOf(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		level zapcore.Level
		ok    bool
	}{
		{"console info", "2026-10-15T10:00:00.000Z\tINFO\tapp/controller.go:80\tdevice connected", zapcore.InfoLevel, true},
		{"console warn", "2026-10-15T10:00:00.000Z\tWARN\tsync failed", zapcore.WarnLevel, true},
		{"json error", `{"level":"error","msg":"upload failed"}`, zapcore.ErrorLevel, true},
		{"json debug", `{"level":"debug","msg":"probe"}`, zapcore.DebugLevel, true},
		{"continuation", "    at something", zapcore.InfoLevel, false},
		{"bad json", `{"msg":`, zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := LevelOf(tt.line)
			if level != tt.level || ok != tt.ok {
				t.Fatalf("LevelOf = %v, %v; want %v, %v", level, ok, tt.level, tt.ok)
			}
		})
	}
}

func TestFilter_KeepsContinuationsWithTheirLine(t *testing.T) {
	lines := []string{
		"t\tDEBUG\tprobe started",
		"t\tWARN\tsync failed",
		"    detail for warn",
		"t\tINFO\tconnected",
		"    detail for info",
		"t\tERROR\tupload failed",
	}
	got := Filter(lines, zapcore.WarnLevel)
	want := []string{lines[1], lines[2], lines[5]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter = %q, want %q", got, want)
	}
}

func TestFollow_EmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpsync.log")
	if err := os.WriteFile(path, []byte("old line\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lines := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, path, func(line string) { lines <- line })
	}()

	// Give the watcher time to register before appending.
	time.Sleep(100 * time.Millisecond)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	_, _ = file.WriteString("new line\npart")
	_ = file.Close()

	select {
	case got := <-lines:
		if got != "new line" {
			t.Fatalf("first followed line = %q, want %q", got, "new line")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no line followed")
	}
	select {
	case got := <-lines:
		t.Fatalf("partial line emitted early: %q", got)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
}
