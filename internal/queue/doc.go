// Package queue persists work items in a shared, lock-guarded table and exposes
// helpers for driving their lifecycle.
//
// The Store wraps a Backend (a CSV file guarded by flock, an in-memory table
// for tests, or a SQLite file) and implements the two mutating operations
// workers perform: ClaimNext, which atomically moves the first pending row to
// in_progress, and Report, which records the outcome of a claimed row. Every
// read-modify-write happens inside a single exclusive-access session; no rows
// are cached between sessions.
//
// A row's identity is the full set of its non-status fields. There is no
// numeric id, so rows may be edited or appended by hand between runs as long
// as the header keeps a status column.
//
// Treat this package as the single source of truth for queue semantics; when
// you add a status, extend allStatuses and the transition table together.
package queue
