package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"dockq/internal/config"
	"dockq/internal/logging"
)

// Store implements the claim and report operations on top of a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore wraps a backend. A nil logger discards output.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "queue"),
	}
}

// Open builds the backend selected by the configuration.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	path := strings.TrimSpace(cfg.Store.Path)
	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	switch backend {
	case config.BackendFile, "":
		if path == "" {
			return nil, errors.New("store.path is required")
		}
		delimiter, _ := utf8.DecodeRuneInString(cfg.Store.Delimiter)
		if delimiter == utf8.RuneError {
			delimiter = DefaultDelimiter
		}
		fb := NewFileBackend(
			path,
			WithDelimiter(delimiter),
			WithLockPollInterval(time.Duration(cfg.Store.LockPollMillis)*time.Millisecond),
		)
		return NewStore(fb, logger), nil
	case config.BackendSQLite:
		if path == "" {
			return nil, errors.New("store.path is required")
		}
		sb, err := OpenSQLiteBackend(path)
		if err != nil {
			return nil, err
		}
		return NewStore(sb, logger), nil
	case config.BackendMemory:
		return NewStore(NewMemoryBackend(), logger), nil
	default:
		return nil, fmt.Errorf("store.backend: unsupported value %q", cfg.Store.Backend)
	}
}

// Path returns the backend location.
func (s *Store) Path() string { return s.backend.Path() }

// Close releases backend resources.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// ClaimNext moves the first pending row (in stored order) to in_progress and
// returns a copy of it. It returns nil without rewriting the table when no
// row is pending.
func (s *Store) ClaimNext(ctx context.Context) (*Item, error) {
	return s.ClaimNextFunc(ctx, nil)
}

// ClaimNextFunc is ClaimNext restricted to pending rows for which eligible
// returns true. A nil eligible accepts every row.
func (s *Store) ClaimNextFunc(ctx context.Context, eligible func(Item) bool) (*Item, error) {
	var claimed *Item
	err := s.backend.WithExclusiveAccess(ctx, func(t *Table) (bool, error) {
		for i := 0; i < t.Len(); i++ {
			if t.Status(i) != StatusPending {
				continue
			}
			item := t.Item(i)
			if eligible != nil && !eligible(item) {
				continue
			}
			t.SetStatus(i, StatusInProgress)
			item.Status = StatusInProgress
			claimed = &item
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next item: %w", err)
	}
	if claimed != nil {
		s.logger.Debug("item claimed", logging.String(logging.FieldItem, claimed.Key()))
	}
	return claimed, nil
}

// Report records the outcome of a claimed item and returns the status
// written. The row is matched on every non-status field and must currently
// be in_progress; when none matches the table is left untouched and
// ErrNoMatchingRow is returned.
func (s *Store) Report(ctx context.Context, item Item, outcome Outcome) (Status, error) {
	target := outcome.Status()
	if !CanTransition(StatusInProgress, target) {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, StatusInProgress, target)
	}
	err := s.backend.WithExclusiveAccess(ctx, func(t *Table) (bool, error) {
		for i := 0; i < t.Len(); i++ {
			if t.Status(i) != StatusInProgress || !t.Matches(i, item) {
				continue
			}
			t.SetStatus(i, target)
			return true, nil
		}
		return false, ErrNoMatchingRow
	})
	if err != nil {
		if errors.Is(err, ErrNoMatchingRow) {
			return "", err
		}
		return "", fmt.Errorf("report item: %w", err)
	}
	return target, nil
}

// Snapshot returns a copy of the table read under the lock.
func (s *Store) Snapshot(ctx context.Context) (*Table, error) {
	var snapshot *Table
	err := s.backend.WithExclusiveAccess(ctx, func(t *Table) (bool, error) {
		snapshot = t.Clone()
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return snapshot, nil
}

// List returns items whose status is in statuses, or every item when none
// are given, in stored order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Item, error) {
	table, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	filter := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		filter[status] = struct{}{}
	}
	items := make([]Item, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		item := table.Item(i)
		if len(filter) > 0 {
			if _, ok := filter[item.Status]; !ok {
				continue
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Stats returns a count of rows grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	table, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[Status]int)
	for i := 0; i < table.Len(); i++ {
		stats[table.Status(i)]++
	}
	return stats, nil
}

// Health aggregates row counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusInProgress:
			health.InProgress += count
		case StatusDone:
			health.Done += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// ResetInProgress rolls every in_progress row back to pending. It is the
// operator's recovery path for rows held by a worker that died without
// reporting; running it while workers are active hands their rows to others.
func (s *Store) ResetInProgress(ctx context.Context) (int, error) {
	reset := 0
	err := s.backend.WithExclusiveAccess(ctx, func(t *Table) (bool, error) {
		for i := 0; i < t.Len(); i++ {
			if t.Status(i) == StatusInProgress {
				t.SetStatus(i, StatusPending)
				reset++
			}
		}
		return reset > 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("reset in-progress items: %w", err)
	}
	if reset > 0 {
		s.logger.Info("reset in-progress items", logging.Int("count", reset))
	}
	return reset, nil
}

// Create persists a new table through the backend.
func (s *Store) Create(ctx context.Context, table *Table, overwrite bool) error {
	if err := s.backend.Create(ctx, table, overwrite); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}
