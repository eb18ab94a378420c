// Package state provides thread-safe state sharing between the cpsync
// controller and its front ends.
//
// # Architecture
//
//	Producer (Controller):          Consumers (TUI, shell server):
//	┌────────────────────┐         ┌──────────────────┐
//	│ SetConnection()    │         │                  │
//	│ BeginPass()        │────────→│ store.Snapshot() │
//	│ SetProgress()      │ (mutex) │      ↓           │
//	│ FinishPass()       │         │  render          │
//	└────────────────────┘         └──────────────────┘
//
// The controller is the only writer. Connection transitions are only ever
// recorded as the result of a probe, either user initiated or from the
// background poller.
//
// # Core Types
//
//   - Connection: base URL plus Disconnected/Connecting/Connected
//   - Progress: per-item before/after percentages of the running pass
//   - Result: display name and success flag for one upload
//   - Snapshot: copy of everything above, returned by value
//
// The result log of a pass is discarded when the next pass begins.
package state
