package queue_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"dockq/internal/queue"
	"dockq/internal/testsupport"
)

func TestFileBackendRewritesOnlyClaimedStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.csv")
	testsupport.WriteTable(t, path, "cmd,status\ntrue,pending\nfalse,pending\n\"sleep 100\",pending\n")
	store := queue.NewStore(queue.NewFileBackend(path), nil)

	if _, err := store.ClaimNext(context.Background()); err != nil {
		t.Fatalf("ClaimNext returned error: %v", err)
	}
	want := "cmd,status\ntrue,in_progress\nfalse,pending\nsleep 100,pending\n"
	if got := testsupport.ReadTable(t, path); got != want {
		t.Fatalf("unexpected table:\n got %q\nwant %q", got, want)
	}
}

func TestFileBackendLeavesDrainedTableUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.csv")
	testsupport.WriteTable(t, path, "cmd,status\ntrue,done\n")
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	store := queue.NewStore(queue.NewFileBackend(path), nil)
	item, err := store.ClaimNext(context.Background())
	if err != nil || item != nil {
		t.Fatalf("ClaimNext: item=%v err=%v", item, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Fatalf("expected table not to be rewritten, mtime %v", info.ModTime())
	}
}

func TestFileBackendCorruptionIsNotRewritten(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"unknown status", "cmd,status\ntrue,running\n"},
		{"ragged row", "cmd,status\ntrue\n"},
		{"missing status column", "cmd\ntrue\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "params.csv")
			testsupport.WriteTable(t, path, tt.content)
			store := queue.NewStore(queue.NewFileBackend(path), nil)

			_, err := store.ClaimNext(context.Background())
			if !errors.Is(err, queue.ErrStoreCorruption) {
				t.Fatalf("expected ErrStoreCorruption, got %v", err)
			}
			var corruption *queue.CorruptionError
			if !errors.As(err, &corruption) || corruption.ErrorKind() != "store_corruption" {
				t.Fatalf("expected CorruptionError, got %T", err)
			}
			if got := testsupport.ReadTable(t, path); got != tt.content {
				t.Fatalf("corrupt table was modified: %q", got)
			}
		})
	}
}

func TestFileBackendClaimsRowWithBareQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.csv")
	testsupport.WriteTable(t, path, "cmd,status\nsh -c \"exit 0\",pending\n")
	store := queue.NewStore(queue.NewFileBackend(path), nil)

	item, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext returned error: %v", err)
	}
	if item == nil {
		t.Fatal("expected the row to be claimed")
	}
	if got, _ := item.Value("cmd"); got != `sh -c "exit 0"` {
		t.Fatalf("cmd = %q", got)
	}
	if _, err := store.Report(context.Background(), *item, queue.Outcome{Kind: queue.OutcomeSuccess}); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	items, err := store.List(context.Background(), queue.StatusDone)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the rewritten row to read back as done, got %d", len(items))
	}
}

func TestFileBackendMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")
	store := queue.NewStore(queue.NewFileBackend(path), nil)
	if _, err := store.ClaimNext(context.Background()); !errors.Is(err, queue.ErrStoreCorruption) {
		t.Fatalf("expected ErrStoreCorruption, got %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected table to stay absent, stat err %v", err)
	}
}

func TestFileBackendWaitsForLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.csv")
	testsupport.WriteTable(t, path, "cmd,status\ntrue,pending\n")

	holder := flock.New(path)
	if err := holder.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}

	store := queue.NewStore(queue.NewFileBackend(path, queue.WithLockPollInterval(5*time.Millisecond)), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := store.ClaimNext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected claim to wait for the lock, got %v", err)
	}

	done := make(chan *queue.Item, 1)
	go func() {
		item, err := store.ClaimNext(context.Background())
		if err != nil {
			t.Errorf("ClaimNext returned error: %v", err)
		}
		done <- item
	}()
	time.Sleep(20 * time.Millisecond)
	if err := holder.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	select {
	case item := <-done:
		if item == nil {
			t.Fatal("expected claim after lock release")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("claim did not proceed after lock release")
	}
}

func TestFileBackendReleasesLockAfterError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.csv")
	testsupport.WriteTable(t, path, "cmd,status\ntrue,pending\n")
	backend := queue.NewFileBackend(path)

	boom := errors.New("boom")
	err := backend.WithExclusiveAccess(context.Background(), func(table *queue.Table) (bool, error) {
		table.SetStatus(0, queue.StatusDone)
		return true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got := testsupport.ReadTable(t, path); got != "cmd,status\ntrue,pending\n" {
		t.Fatalf("failed session persisted changes: %q", got)
	}

	probe := flock.New(path)
	locked, err := probe.TryLock()
	if err != nil || !locked {
		t.Fatalf("expected lock to be free, locked=%v err=%v", locked, err)
	}
	_ = probe.Unlock()
}

func TestFileBackendTabDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.tsv")
	testsupport.WriteTable(t, path, "a\tb\tstatus\n1,2\t3\tpending\n")
	store := queue.NewStore(queue.NewFileBackend(path, queue.WithDelimiter('\t')), nil)

	item, err := store.ClaimNext(context.Background())
	if err != nil || item == nil {
		t.Fatalf("ClaimNext: item=%v err=%v", item, err)
	}
	if got, _ := item.Value("a"); got != "1,2" {
		t.Fatalf("expected comma to be data under tab delimiter, got %q", got)
	}
	if got := testsupport.ReadTable(t, path); got != "a\tb\tstatus\n1,2\t3\tin_progress\n" {
		t.Fatalf("unexpected table: %q", got)
	}
}

func TestFileBackendCreateRequiresParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "params.csv")
	table, err := queue.NewTable([]string{"cmd", "status"})
	if err != nil {
		t.Fatalf("NewTable returned error: %v", err)
	}
	if err := queue.NewFileBackend(path).Create(context.Background(), table, false); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
