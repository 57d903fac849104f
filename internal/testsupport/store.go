package testsupport

import (
	"context"
	"testing"

	"dockq/internal/config"
	"dockq/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, nil)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedTable creates the store's table from columns and rows, replacing any
// existing one.
func SeedTable(t testing.TB, store *queue.Store, columns []string, rows ...[]string) {
	t.Helper()

	table, err := queue.NewTable(columns, rows...)
	if err != nil {
		t.Fatalf("queue.NewTable: %v", err)
	}
	if err := store.Create(context.Background(), table, true); err != nil {
		t.Fatalf("create table: %v", err)
	}
}

// Statuses returns every row status in stored order.
func Statuses(t testing.TB, store *queue.Store) []queue.Status {
	t.Helper()

	items, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	out := make([]queue.Status, len(items))
	for i, item := range items {
		out[i] = item.Status
	}
	return out
}
