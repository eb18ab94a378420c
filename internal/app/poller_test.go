package app

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/five82/cpsync/internal/device"
	"github.com/five82/cpsync/internal/state"
)

func TestTick_NoAddressIsNoop(t *testing.T) {
	ctrl, _ := newTestController(t, &fakeDevice{})
	if ctrl.poll(context.Background()) {
		t.Fatalf("poll reported reconnect without an address")
	}
}

func TestTick_ConnectedIsNoop(t *testing.T) {
	dev := &fakeDevice{base: "http://x", outcomes: []device.ProbeOutcome{device.ProbeConnected}}
	ctrl, _ := newTestController(t, dev)
	ctrl.Connect(context.Background(), "x")
	before := dev.probeCount()

	tick(context.Background(), ctrl)
	if dev.probeCount() != before {
		t.Fatalf("probes = %d, want %d (no probe while connected)", dev.probeCount(), before)
	}
}

func TestTick_FailureIsSilent(t *testing.T) {
	dev := &fakeDevice{base: "http://x", outcomes: []device.ProbeOutcome{device.ProbeTimedOut, device.ProbeFailed}}
	ctrl, _ := newTestController(t, dev)
	ctrl.Connect(context.Background(), "x")
	if got := ctrl.Snapshot().StatusText; got != "Timeout" {
		t.Fatalf("StatusText = %q, want Timeout", got)
	}
	events, unsubscribe := ctrl.Subscribe(4)
	defer unsubscribe()

	tick(context.Background(), ctrl)

	if dev.probeCount() != 2 {
		t.Fatalf("probes = %d, want 2", dev.probeCount())
	}
	if got := ctrl.Snapshot().StatusText; got != "Timeout" {
		t.Fatalf("StatusText = %q after silent failure, want unchanged Timeout", got)
	}
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v after background failure", ev.Kind)
	default:
	}
}

func TestTick_ReconnectAutoSyncsQueue(t *testing.T) {
	dev := &fakeDevice{base: "http://x", outcomes: []device.ProbeOutcome{device.ProbeFailed, device.ProbeConnected}}
	ctrl, _ := newTestController(t, dev)
	ctrl.Connect(context.Background(), "x")
	ctrl.AddPaths(writeFiles(t, "a.epub", "b.epub")...)

	tick(context.Background(), ctrl)

	if ctrl.Snapshot().Connection.State != state.Connected {
		t.Fatalf("State = %v, want connected", ctrl.Snapshot().Connection.State)
	}
	if got := dev.uploaded(); !reflect.DeepEqual(got, []string{"a.epub", "b.epub"}) {
		t.Fatalf("uploaded = %v, want [a.epub b.epub]", got)
	}
	if ctrl.QueueLen() != 0 {
		t.Fatalf("QueueLen = %d, want 0", ctrl.QueueLen())
	}
}

func TestTick_ReconnectWithEmptyQueueDoesNotSync(t *testing.T) {
	dev := &fakeDevice{base: "http://x", outcomes: []device.ProbeOutcome{device.ProbeFailed, device.ProbeConnected}}
	ctrl, _ := newTestController(t, dev)
	ctrl.Connect(context.Background(), "x")

	tick(context.Background(), ctrl)

	if ctrl.Snapshot().Connection.State != state.Connected {
		t.Fatalf("State = %v, want connected", ctrl.Snapshot().Connection.State)
	}
	if ctrl.Snapshot().PassID != "" {
		t.Fatalf("PassID = %q, want no pass", ctrl.Snapshot().PassID)
	}
}

func TestStartPoller_RetriesUntilDeviceReturns(t *testing.T) {
	dev := &fakeDevice{base: "http://x", outcomes: []device.ProbeOutcome{
		device.ProbeFailed, device.ProbeFailed, device.ProbeFailed, device.ProbeConnected,
	}}
	ctrl, _ := newTestController(t, dev)
	ctrl.Connect(context.Background(), "x")
	ctrl.AddPaths(writeFiles(t, "a.epub")...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartPoller(ctx, ctrl, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(dev.uploaded()) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("poller never synced; probes = %d, uploads = %v", dev.probeCount(), dev.uploaded())
}
