// Package engine hosts the reorder sessions of many lists behind one event
// loop.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every command (view, refresh, drag, drop, move) is queued and applied by
// the Run goroutine, so session state never sees two writers. Persist calls
// run on their own goroutines and come back through the same queue as
// Persisted events.
//
// Event Processing Flow:
// 1. Submit stamps the command with Clock.Next() and enqueues it
// 2. Run dequeues events one at a time
// 3. processEvent() routes to the command or persist handler
// 4. Drops and moves claim their group's single in-flight slot and start Persist
// 5. The Persisted event releases the slot and applies the snapshot
//
// A list is loaded from the Backend on first use and reloaded by CommandLoad.
// Its config.List decides numbering, groups, and fixed records.
//
// Commands never block on storage. A caller that needs the saved order waits
// on Outcome.Committed, or uses Exec.
package engine
