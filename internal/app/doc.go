// Package app provides the orchestration layer for cpsync.
//
// # Overview
//
// This package wires together configuration, preferences, logging, the
// device client, the upload queue and the sync orchestrator. It is the
// composition root shared by the TUI, the headless commands and the offline
// shell server.
//
// # Components
//
//   - app.go: Bootstrap and Run
//   - controller.go: the Controller, sole owner of connection state
//   - poller.go: background reachability poller
//   - startup.go: link parameter parsing and start address resolution
//
// # Data Flow
//
//	┌──────────────┐
//	│  Bootstrap() │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()      Read cpsync config
//	       ├─────> logging.New()      zap logger (file, plus stderr off-TUI)
//	       ├─────> prefs.Load()       Remembered device address and theme
//	       ├─────> ResolveStartAddress() link > flag > remembered > config
//	       └─────> NewController()    Queue, store and orchestrator
//
//	Run():
//	       ├─────> StartPoller()      10s reachability loop
//	       └─────> ui.Run()           Start TUI (blocks)
//
// # Connection State
//
// Only Connect (user initiated) and the poller change the connection state.
// Connect reports every outcome as status text; the poller stays silent on
// failure and, when the device comes back with files queued, starts a sync
// pass. The orchestrator's re-entrancy guard makes a concurrent user sync and
// auto-sync safe: whichever starts second is a no-op.
//
// # Events
//
// Every state change is published to subscribers as an Event carrying a
// fresh snapshot and queue copy. Delivery is best effort; a subscriber that
// falls behind misses events and re-reads Snapshot on the next one.
package app
