package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 500 * time.Millisecond
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS work_columns (
    position INTEGER PRIMARY KEY,
    name     TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS work_rows (
    position INTEGER PRIMARY KEY,
    fields   TEXT NOT NULL
);`

// SQLiteBackend keeps the table in a SQLite database. An exclusive session
// is a BEGIN IMMEDIATE transaction on a dedicated connection; SQLite's write
// lock plays the role of the file lock. Row order is the stored position.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLiteBackend opens (creating if needed) the database at path.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

// Path returns the database location.
func (b *SQLiteBackend) Path() string { return b.path }

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// WithExclusiveAccess implements Backend.
func (b *SQLiteBackend) WithExclusiveAccess(ctx context.Context, fn AccessFunc) error {
	return b.session(ctx, func(conn *sql.Conn) (bool, error) {
		table, err := b.load(ctx, conn)
		if err != nil {
			return false, err
		}
		mutated, err := fn(table)
		if err != nil || !mutated {
			return false, err
		}
		if err := table.validate(); err != nil {
			return false, corruption(b.path, "refusing to persist invalid table", err)
		}
		return true, b.storeRows(ctx, conn, table)
	})
}

// Create replaces the header and rows.
func (b *SQLiteBackend) Create(ctx context.Context, table *Table, overwrite bool) error {
	if table == nil {
		return errors.New("create table: table is nil")
	}
	if err := table.validate(); err != nil {
		return corruption(b.path, "invalid table", err)
	}
	return b.session(ctx, func(conn *sql.Conn) (bool, error) {
		var count int
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM work_columns`).Scan(&count); err != nil {
			return false, fmt.Errorf("inspect columns: %w", err)
		}
		if count > 0 && !overwrite {
			return false, fmt.Errorf("%w: %s", ErrTableExists, b.path)
		}
		if _, err := conn.ExecContext(ctx, `DELETE FROM work_columns`); err != nil {
			return false, fmt.Errorf("clear columns: %w", err)
		}
		for idx, name := range table.Columns {
			if _, err := conn.ExecContext(ctx, `INSERT INTO work_columns (position, name) VALUES (?, ?)`, idx, name); err != nil {
				return false, fmt.Errorf("insert column %q: %w", name, err)
			}
		}
		return true, b.storeRows(ctx, conn, table)
	})
}

// session runs op inside an immediate transaction, committing only when op
// asks for it.
func (b *SQLiteBackend) session(ctx context.Context, op func(*sql.Conn) (bool, error)) (err error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return corruption(b.path, "connect", err)
	}
	defer conn.Close()

	if err := retryOnBusy(ctx, func() error {
		_, execErr := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		return execErr
	}); err != nil {
		return fmt.Errorf("lock table %s: %w", b.path, err)
	}

	finished := false
	defer func() {
		if !finished {
			if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil && err == nil {
				err = fmt.Errorf("rollback: %w", rbErr)
			}
		}
	}()

	commit, err := op(conn)
	if err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit table %s: %w", b.path, err)
	}
	finished = true
	return nil
}

func (b *SQLiteBackend) load(ctx context.Context, conn *sql.Conn) (*Table, error) {
	colRows, err := conn.QueryContext(ctx, `SELECT name FROM work_columns ORDER BY position`)
	if err != nil {
		return nil, corruption(b.path, "query columns", err)
	}
	var columns []string
	for colRows.Next() {
		var name string
		if err := colRows.Scan(&name); err != nil {
			colRows.Close()
			return nil, corruption(b.path, "scan column", err)
		}
		columns = append(columns, name)
	}
	colRows.Close()
	if err := colRows.Err(); err != nil {
		return nil, corruption(b.path, "iterate columns", err)
	}

	rows, err := conn.QueryContext(ctx, `SELECT fields FROM work_rows ORDER BY position`)
	if err != nil {
		return nil, corruption(b.path, "query rows", err)
	}
	defer rows.Close()

	table := &Table{Columns: columns}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, corruption(b.path, "scan row", err)
		}
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, corruption(b.path, "decode row", err)
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, corruption(b.path, "iterate rows", err)
	}
	if err := table.validate(); err != nil {
		return nil, corruption(b.path, "malformed table", err)
	}
	return table, nil
}

func (b *SQLiteBackend) storeRows(ctx context.Context, conn *sql.Conn, table *Table) error {
	if _, err := conn.ExecContext(ctx, `DELETE FROM work_rows`); err != nil {
		return fmt.Errorf("clear rows: %w", err)
	}
	for idx, row := range table.Rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", idx+1, err)
		}
		if _, err := conn.ExecContext(ctx, `INSERT INTO work_rows (position, fields) VALUES (?, ?)`, idx, string(encoded)); err != nil {
			return fmt.Errorf("insert row %d: %w", idx+1, err)
		}
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy keeps retrying while the database reports contention. Lock
// contention is not an error for the queue, so there is no attempt limit; the
// context bounds the wait.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	for {
		err := op()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
}
