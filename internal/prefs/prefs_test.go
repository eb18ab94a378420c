package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    Prefs
	}{
		{
			name: "missing file",
			want: Prefs{Theme: defaultTheme},
		},
		{
			name:    "existing values are trimmed",
			content: ptr("theme = \"Slate\"\ndevice_address = \" http://192.168.4.1 \"\n"),
			want:    Prefs{Theme: "Slate", DeviceAddress: "http://192.168.4.1"},
		},
		{
			name:    "empty theme",
			content: ptr("theme = \"\"\ndevice_address = \"10.0.0.7\"\n"),
			want:    Prefs{Theme: defaultTheme, DeviceAddress: "10.0.0.7"},
		},
		{
			name:    "corrupt file",
			content: ptr("not valid toml {{{\n"),
			want:    Prefs{Theme: defaultTheme},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o644); err != nil {
					t.Fatalf("WriteFile: %v", err)
				}
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Load = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestLoad_DefaultPathUsesHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := Save("", Prefs{Theme: "Nightfox", DeviceAddress: "192.168.4.1"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "cpsync", "prefs.toml")); err != nil {
		t.Fatalf("prefs file not under HOME: %v", err)
	}
	got, _ := Load("")
	if got.DeviceAddress != "192.168.4.1" {
		t.Fatalf("DeviceAddress = %q, want 192.168.4.1", got.DeviceAddress)
	}
}

func TestSave_CreatesDirsWithoutLeavingTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	p := Prefs{Theme: "Slate", DeviceAddress: "http://10.0.0.7"}
	if err := Save(path, p); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if loaded, _ := Load(path); loaded != p {
		t.Fatalf("Load = %#v, want %#v", loaded, p)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestUpdate_ConcurrentWritersKeepBothFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := Update(path, func(p *Prefs) { p.Theme = "Slate" }); err != nil {
				t.Errorf("Update theme: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			addr := fmt.Sprintf("10.0.0.%d", i)
			if err := Update(path, func(p *Prefs) { p.DeviceAddress = addr }); err != nil {
				t.Errorf("Update address: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := Load(path)
	if got.Theme != "Slate" || got.DeviceAddress == "" {
		t.Fatalf("Load = %#v, want theme and address both kept", got)
	}
}

func ptr(s string) *string { return &s }
