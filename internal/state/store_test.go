package state

import (
	"testing"
	"time"
)

func TestStore_SetConnection(t *testing.T) {
	var s Store

	before := time.Now()
	s.SetConnection(Connection{BaseURL: "http://192.168.4.1", State: Connected}, "Connected")

	snap := s.Snapshot()
	if snap.Connection.State != Connected || snap.Connection.BaseURL != "http://192.168.4.1" {
		t.Fatalf("Connection = %#v, want connected to http://192.168.4.1", snap.Connection)
	}
	if snap.StatusText != "Connected" {
		t.Fatalf("StatusText = %q, want Connected", snap.StatusText)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
}

func TestStore_PassLifecycle(t *testing.T) {
	var s Store

	s.FinishPass([]Result{{DisplayName: "old", Success: true}})
	s.BeginPass("pass-1")

	snap := s.Snapshot()
	if !snap.Syncing || snap.PassID != "pass-1" {
		t.Fatalf("snapshot = %#v, want syncing pass-1", snap)
	}
	if snap.Results != nil {
		t.Fatalf("Results = %#v, want previous log discarded", snap.Results)
	}

	s.SetProgress(Progress{Index: 0, Total: 2, CurrentName: "a", PercentAfter: 0.5, Done: true})
	snap = s.Snapshot()
	if !snap.HasProgress || snap.Progress.CurrentName != "a" {
		t.Fatalf("Progress = %#v, want current a", snap.Progress)
	}

	s.FinishPass([]Result{{DisplayName: "a", Success: true}, {DisplayName: "b"}})
	snap = s.Snapshot()
	if snap.Syncing {
		t.Fatalf("Syncing = true after FinishPass")
	}
	if len(snap.Results) != 2 || snap.Results[1].Success {
		t.Fatalf("Results = %#v, want [a:true b:false]", snap.Results)
	}
}

func TestStore_SnapshotClonesResults(t *testing.T) {
	var s Store
	s.FinishPass([]Result{{DisplayName: "a", Success: true}})

	snap := s.Snapshot()
	snap.Results[0].DisplayName = "mutated"

	if got := s.Snapshot().Results[0].DisplayName; got != "a" {
		t.Fatalf("Snapshot should clone results; got %q want a", got)
	}
}

func TestConnState_String(t *testing.T) {
	cases := map[ConnState]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", in, got, want)
		}
	}
}
