package queue

import (
	"context"
)

// AccessFunc receives the materialized table inside an exclusive session. It
// returns true when it mutated the table and the table must be persisted.
type AccessFunc func(*Table) (bool, error)

// Backend provides exclusive, whole-table access to persisted work rows.
//
// WithExclusiveAccess blocks until it holds the table exclusively (or ctx
// ends), loads every row, calls fn, and rewrites the full table only when fn
// reports a mutation and returns no error. The exclusion is released on every
// path. A table that cannot be loaded yields an error wrapping
// ErrStoreCorruption and fn is not called.
type Backend interface {
	Path() string
	WithExclusiveAccess(ctx context.Context, fn AccessFunc) error
	// Create persists a new table. It fails with ErrTableExists when a table
	// is already present and overwrite is false.
	Create(ctx context.Context, table *Table, overwrite bool) error
	Close() error
}
