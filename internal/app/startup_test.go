package app

import "testing"

func TestParseLinkAddress(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"", ""},
		{"http://sync.example/?device=192.168.4.1", "192.168.4.1"},
		{"https://sync.example/app?device=http%3A%2F%2F10.0.0.2%3A8080&x=1", "http://10.0.0.2:8080"},
		{"?device=reader.local", "reader.local"},
		{"device=reader.local", "reader.local"},
		{"http://sync.example/", ""},
	}
	for _, tt := range tests {
		got, err := ParseLinkAddress(tt.link)
		if err != nil {
			t.Fatalf("ParseLinkAddress(%q) returned error: %v", tt.link, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLinkAddress(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}

func TestResolveStartAddress_Precedence(t *testing.T) {
	tests := []struct {
		name                               string
		link, flag, remembered, configured string
		want                               StartAddress
	}{
		{"nothing", "", "", "", "", StartAddress{}},
		{"configured only pre-fills", "", "", "", "10.0.0.1", StartAddress{Address: "10.0.0.1"}},
		{"remembered beats configured", "", "", "http://10.0.0.2", "10.0.0.1", StartAddress{Address: "http://10.0.0.2"}},
		{"flag connects", "", "10.0.0.3", "http://10.0.0.2", "", StartAddress{Address: "10.0.0.3", Connect: true}},
		{"link beats flag", "?device=10.0.0.4", "10.0.0.3", "http://10.0.0.2", "", StartAddress{Address: "10.0.0.4", Connect: true}},
		{"link without device falls through", "http://x/", "", "http://10.0.0.2", "", StartAddress{Address: "http://10.0.0.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStartAddress(tt.link, tt.flag, tt.remembered, tt.configured)
			if err != nil {
				t.Fatalf("ResolveStartAddress returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveStartAddress = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBuildLinkRoundTrip(t *testing.T) {
	link := BuildLink("http://127.0.0.1:8417", "192.168.4.1")
	if link != "http://127.0.0.1:8417/?device=192.168.4.1" {
		t.Fatalf("BuildLink = %q", link)
	}
	got, err := ParseLinkAddress(link)
	if err != nil || got != "192.168.4.1" {
		t.Fatalf("ParseLinkAddress(BuildLink) = %q, %v", got, err)
	}
}
