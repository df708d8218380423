// Package store is the SQLite system of record for ordered lists.
//
// Two tables:
//   - records: one row per orderable record, keyed by (list_key, id)
//   - reorder_commits: append-only log of every applied reorder
//
// # Invariants
//
// Deterministic reads:
//   - Every record query orders by sort_order ASC, id ASC COLLATE BINARY,
//     the same comparator the reorder engine uses
//
// Atomic reorders:
//   - ApplyOrder runs in one transaction; a single stale id aborts the whole
//     instruction set and nothing is written
//   - Rows whose sort_order already matches are not rewritten, so applying the
//     same instruction set twice changes nothing
//
// Normalized identity:
//   - Ids are stored in Unicode NFC so visually identical ids compare equal
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
