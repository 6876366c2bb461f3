// Package store provides SQLite-backed durable storage for the
// completion-callback audit log.
//
// The store is an append-only log with two tables:
//   - deliveries: one row per notification attempt, with the
//     notification payload as canonical JSON and its content hash
//   - listener_events: listener lifecycle transitions (linked, unlinked,
//     died, dropped)
//
// Both tables share one logical sequence space. Every read orders by
// seq ASC so a trace reads back in the order the invoker produced it,
// independent of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// *Store implements invoker.Recorder.
package store
