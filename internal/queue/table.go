package queue

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter separates fields in file-backed tables.
const DefaultDelimiter = ','

// Table is the fully materialized work store: a header naming every column
// and the rows in stored order. Values are kept verbatim so a rewrite only
// changes the cells that were mutated.
type Table struct {
	Columns []string
	Rows    [][]string

	statusIdx int
}

// NewTable validates the header and rows and returns a table ready for use.
func NewTable(columns []string, rows ...[]string) (*Table, error) {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		t.Rows = append(t.Rows, append([]string(nil), row...))
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate() error {
	if len(t.Columns) == 0 {
		return errors.New("header row missing")
	}
	seen := make(map[string]struct{}, len(t.Columns))
	t.statusIdx = -1
	for idx, name := range t.Columns {
		if name == "" {
			return fmt.Errorf("header column %d is empty", idx+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("header column %q repeated", name)
		}
		seen[name] = struct{}{}
		if name == StatusColumn {
			t.statusIdx = idx
		}
	}
	if t.statusIdx < 0 {
		return fmt.Errorf("header has no %q column", StatusColumn)
	}
	if len(t.Columns) < 2 {
		return errors.New("header has no parameter columns")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(t.Columns))
		}
		if _, ok := ParseStatus(row[t.statusIdx]); !ok {
			return fmt.Errorf("row %d has unknown status %q", i+1, row[t.statusIdx])
		}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Status returns the parsed status of row i.
func (t *Table) Status(i int) Status {
	status, _ := ParseStatus(t.Rows[i][t.statusIdx])
	return status
}

// SetStatus rewrites the status cell of row i.
func (t *Table) SetStatus(i int, status Status) {
	t.Rows[i][t.statusIdx] = string(status)
}

// Item returns a detached copy of row i.
func (t *Table) Item(i int) Item {
	row := t.Rows[i]
	fields := make([]Field, 0, len(t.Columns)-1)
	for idx, name := range t.Columns {
		if idx == t.statusIdx {
			continue
		}
		fields = append(fields, Field{Name: name, Value: row[idx]})
	}
	return Item{Fields: fields, Status: t.Status(i)}
}

// Matches reports whether row i carries exactly the item's parameter fields.
func (t *Table) Matches(i int, item Item) bool {
	if len(item.Fields) != len(t.Columns)-1 {
		return false
	}
	row := t.Rows[i]
	for _, field := range item.Fields {
		idx := t.columnIndex(field.Name)
		if idx < 0 || idx == t.statusIdx || row[idx] != field.Value {
			return false
		}
	}
	return true
}

// Append adds a row built from named values; missing columns are left empty
// and the status defaults to pending.
func (t *Table) Append(values map[string]string) {
	row := make([]string, len(t.Columns))
	for idx, name := range t.Columns {
		row[idx] = values[name]
	}
	if row[t.statusIdx] == "" {
		row[t.statusIdx] = string(StatusPending)
	}
	t.Rows = append(t.Rows, row)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	clone := &Table{
		Columns:   append([]string(nil), t.Columns...),
		Rows:      make([][]string, len(t.Rows)),
		statusIdx: t.statusIdx,
	}
	for i, row := range t.Rows {
		clone.Rows[i] = append([]string(nil), row...)
	}
	return clone
}

// ParamColumns lists the non-status column names in header order.
func (t *Table) ParamColumns() []string {
	out := make([]string, 0, len(t.Columns)-1)
	for idx, name := range t.Columns {
		if idx != t.statusIdx {
			out = append(out, name)
		}
	}
	return out
}

func (t *Table) columnIndex(name string) int {
	for idx, col := range t.Columns {
		if col == name {
			return idx
		}
	}
	return -1
}

// DecodeTable parses a delimited text table. The first record is the header.
// Quotes inside unquoted values are kept literally; a quoted value that is
// never closed is rejected.
func DecodeTable(r io.Reader, delimiter rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if line := unclosedQuote(data, delimiter); line > 0 {
		return nil, fmt.Errorf("parse table: %w", &csv.ParseError{StartLine: line, Line: line, Column: 1, Err: csv.ErrQuote})
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("header row missing")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := &Table{Columns: header, Rows: records[1:]}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// unclosedQuote returns the line on which a quoted field opens without ever
// closing, or 0. It follows the lazy-quote rules of encoding/csv: a quote
// opens a field only at its start, and inside a quoted field a quote closes it
// only when followed by the delimiter, a line break, or the end of input.
func unclosedQuote(data []byte, delimiter rune) int {
	line, opened := 1, 0
	quoted, fieldStart := false, true
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		switch {
		case quoted:
			if r == '\n' {
				line++
				break
			}
			if r != '"' {
				break
			}
			if i+size == len(data) {
				quoted = false
				break
			}
			next, nextSize := utf8.DecodeRune(data[i+size:])
			switch next {
			case '"':
				size += nextSize
			case delimiter:
				quoted, fieldStart = false, true
				size += nextSize
			case '\n', '\r':
				quoted = false
			}
		case r == '\n':
			line++
			fieldStart = true
		case r == delimiter:
			fieldStart = true
		case fieldStart && r == '"':
			quoted, fieldStart, opened = true, false, line
		default:
			fieldStart = false
		}
		i += size
	}
	if quoted {
		return opened
	}
	return 0
}

// EncodeTable renders the header and every row.
func EncodeTable(t *Table, delimiter rune) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Comma = delimiter
	if err := writer.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return buf.Bytes(), nil
}
