package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const defaultLockPollInterval = 50 * time.Millisecond

// FileBackend stores the table as a delimited text file and serializes
// sessions with an exclusive flock on the table file itself. Every session
// takes its own lock handle, so goroutines and processes sharing the path
// exclude each other the same way.
type FileBackend struct {
	path         string
	delimiter    rune
	pollInterval time.Duration
}

// FileOption customizes a FileBackend.
type FileOption func(*FileBackend)

// WithDelimiter sets the field delimiter.
func WithDelimiter(delimiter rune) FileOption {
	return func(b *FileBackend) {
		if delimiter != 0 {
			b.delimiter = delimiter
		}
	}
}

// WithLockPollInterval sets how often a blocked session retries the lock.
func WithLockPollInterval(interval time.Duration) FileOption {
	return func(b *FileBackend) {
		if interval > 0 {
			b.pollInterval = interval
		}
	}
}

// NewFileBackend returns a backend for the table at path.
func NewFileBackend(path string, opts ...FileOption) *FileBackend {
	b := &FileBackend{
		path:         path,
		delimiter:    DefaultDelimiter,
		pollInterval: defaultLockPollInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the table location.
func (b *FileBackend) Path() string { return b.path }

// WithExclusiveAccess implements Backend.
func (b *FileBackend) WithExclusiveAccess(ctx context.Context, fn AccessFunc) (err error) {
	if _, statErr := os.Stat(b.path); statErr != nil {
		return corruption(b.path, "table unavailable", statErr)
	}

	unlock, err := b.lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock table %s: %w", b.path, unlockErr)
		}
	}()

	file, err := os.OpenFile(b.path, os.O_RDWR, 0)
	if err != nil {
		return corruption(b.path, "open table", err)
	}
	defer file.Close()

	table, err := DecodeTable(file, b.delimiter)
	if err != nil {
		return corruption(b.path, "malformed table", err)
	}

	mutated, err := fn(table)
	if err != nil {
		return err
	}
	if !mutated {
		return nil
	}
	if err := table.validate(); err != nil {
		return corruption(b.path, "refusing to persist invalid table", err)
	}
	payload, err := EncodeTable(table, b.delimiter)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", b.path, err)
	}
	return rewrite(file, payload)
}

// Create writes a new table file. The parent directory must exist.
func (b *FileBackend) Create(ctx context.Context, table *Table, overwrite bool) error {
	if table == nil {
		return errors.New("create table: table is nil")
	}
	if err := table.validate(); err != nil {
		return corruption(b.path, "invalid table", err)
	}
	payload, err := EncodeTable(table, b.delimiter)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", b.path, err)
	}

	flags := os.O_RDWR | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_RDWR | os.O_CREATE
	}
	if dir := filepath.Dir(b.path); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("table directory: %w", err)
		}
	}
	file, err := os.OpenFile(b.path, flags, 0o664)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrTableExists, b.path)
		}
		return fmt.Errorf("create table %s: %w", b.path, err)
	}
	defer file.Close()

	unlock, err := b.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock() //nolint:errcheck
	return rewrite(file, payload)
}

// Close is a no-op; no handle outlives a session.
func (b *FileBackend) Close() error { return nil }

// lock takes the table's flock. The lock handle never creates the file, so a
// table removed after the Stat above stays absent.
func (b *FileBackend) lock(ctx context.Context) (func() error, error) {
	lock := flock.New(b.path, flock.SetFlag(os.O_RDONLY))
	locked, err := lock.TryLockContext(ctx, b.pollInterval)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, corruption(b.path, "table unavailable", err)
		}
		return nil, fmt.Errorf("lock table %s: %w", b.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock table %s: not acquired", b.path)
	}
	return lock.Unlock, nil
}

func rewrite(file *os.File, payload []byte) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind table: %w", err)
	}
	if _, err := file.Write(payload); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	if err := file.Truncate(int64(len(payload))); err != nil {
		return fmt.Errorf("truncate table: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync table: %w", err)
	}
	return nil
}
