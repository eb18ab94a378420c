package ui

import (
	"testing"

	"github.com/five82/cpsync/internal/state"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	want := []string{"Dracula", "Nightfox", "Slate"}
	if len(names) != len(want) {
		t.Fatalf("ThemeNames() returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ThemeNames() = %v, want %v", names, want)
		}
		if _, ok := themes[names[i]]; !ok {
			t.Fatalf("theme %q listed but not defined", names[i])
		}
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Dracula"); got != "Nightfox" {
		t.Fatalf("NextTheme(Dracula) = %q, want Nightfox", got)
	}
	if got := NextTheme("Slate"); got != "Dracula" {
		t.Fatalf("NextTheme(Slate) = %q, want Dracula", got)
	}
	if got := NextTheme("Unknown"); got != "Dracula" {
		t.Fatalf("NextTheme(Unknown) = %q, want Dracula", got)
	}
}

func TestGetTheme(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("Unknown").Name; got != "Dracula" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Dracula (fallback)", got)
	}
}

func TestConnectionColor(t *testing.T) {
	th := GetTheme("Dracula")
	if got := th.ConnectionColor(state.Connected); got != th.Success {
		t.Fatalf("ConnectionColor(connected) = %q, want %q", got, th.Success)
	}
	if got := th.ConnectionColor(state.Connecting); got != th.Warning {
		t.Fatalf("ConnectionColor(connecting) = %q, want %q", got, th.Warning)
	}
	if got := th.ConnectionColor(state.Disconnected); got != th.Danger {
		t.Fatalf("ConnectionColor(disconnected) = %q, want %q", got, th.Danger)
	}
}
