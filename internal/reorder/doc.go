// Package reorder implements the ordered-list reordering engine used by the
// admin editors (page sections, FAQ items, gallery images, team members,
// legal blocks, instructions).
//
// A Session owns one list on screen. It mirrors the authoritative records in
// a local List, previews drags through a Tracker, moves records one slot at a
// time, and hands finished orders to a Synchronizer that renumbers them and
// calls the caller-supplied Persister.
//
// # Invariants
//
//   - Ordering: records sort by SortOrder ascending, then ID ascending.
//     Identifiers are unique, so the order is total.
//   - Permutation: a List only ever permutes the ids it was initialized with.
//   - Quiet previews: hovering the same target index twice mutates the List at
//     most once. Nothing touches the network until a drop.
//   - Single-flight: at most one Persist call is outstanding per Session. A
//     second commit is rejected with ErrBusy rather than queued.
//   - No rollback: a failed Persist leaves the optimistic order visible until
//     the next authoritative Reset.
//
// # Concurrency
//
// Session methods are safe for concurrent use. The session mutex is never
// held across Persist. Event loops that need the network write off their
// own goroutine use the two-phase BeginDrop/BeginMove + Finish calls.
package reorder
