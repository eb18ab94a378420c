// Package ui provides the Bubble Tea terminal interface for cpsync.
//
// # Views
//
//   - Connect: address entry. A device link connects at once; a remembered
//     address only pre-fills the field.
//   - Queue: the files waiting to be sent, with an add-file prompt that
//     understands ~ and glob patterns. Only reachable once connected.
//   - Sending: the running pass with a progress bar fed by the orchestrator's
//     before and after percentages.
//   - Sync complete: the result log of the last pass, failed files marked
//     "(failed)". n starts over at the queue.
//   - Logs: the tail of the cpsync log file, coloured by level.
//
// # Event Flow
//
//  1. Run builds the Model and starts the program.
//  2. The controller's change channel wakes the model, which re-reads the
//     snapshot and queue. A one second tick does the same as a fallback.
//  3. Connect, sync and add run as commands so the view never blocks.
//  4. applySnapshot switches views when a pass starts, finishes, or the
//     poller brings the device back.
//
// File names come from the user's disk and are drawn through sanitizeName,
// which strips escape sequences and control characters and leaves the rest,
// markup included, exactly as typed.
package ui
