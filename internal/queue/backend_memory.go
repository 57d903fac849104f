package queue

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend keeps the table in process memory. Sessions are serialized by
// a mutex, which gives the same linearization as the file lock for callers
// sharing one instance.
type MemoryBackend struct {
	mu    sync.Mutex
	table *Table
}

// NewMemoryBackend returns an empty backend; Create seeds it.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Path identifies the backend in logs.
func (b *MemoryBackend) Path() string { return "memory" }

// WithExclusiveAccess runs fn against a copy and swaps it in on mutation, so
// a failing fn never leaves partial changes behind.
func (b *MemoryBackend) WithExclusiveAccess(ctx context.Context, fn AccessFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.table == nil {
		return corruption(b.Path(), "table not created", nil)
	}
	working := b.table.Clone()
	mutated, err := fn(working)
	if err != nil {
		return err
	}
	if !mutated {
		return nil
	}
	if err := working.validate(); err != nil {
		return corruption(b.Path(), "refusing to persist invalid table", err)
	}
	b.table = working
	return nil
}

// Create seeds the in-memory table.
func (b *MemoryBackend) Create(_ context.Context, table *Table, overwrite bool) error {
	if table == nil {
		return fmt.Errorf("create table: table is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.table != nil && !overwrite {
		return ErrTableExists
	}
	clone := table.Clone()
	if err := clone.validate(); err != nil {
		return corruption(b.Path(), "invalid table", err)
	}
	b.table = clone
	return nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
