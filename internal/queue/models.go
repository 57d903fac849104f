package queue

import (
	"strconv"
	"strings"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// StatusColumn is the reserved column name holding each row's status.
const StatusColumn = "status"

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

var allowedTransitions = map[statusTransition]struct{}{
	{from: StatusPending, to: StatusInProgress}: {},
	{from: StatusInProgress, to: StatusDone}:    {},
	{from: StatusInProgress, to: StatusFailed}:  {},
	{from: StatusInProgress, to: StatusPending}: {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a stored cell into a known Status. An empty cell reads
// as pending so hand-written tables may leave the column blank.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return StatusPending, true
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	_, ok := allowedTransitions[statusTransition{from: from, to: to}]
	return ok
}

// IsTerminal reports whether no further transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Field is one caller-defined parameter of a work item.
type Field struct {
	Name  string
	Value string
}

// Item is a claimed row: its parameter fields in column order plus its status.
// It is a detached copy; mutating it never touches the store.
type Item struct {
	Fields []Field
	Status Status
}

// Value returns the named parameter.
func (i Item) Value(name string) (string, bool) {
	for _, f := range i.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Params returns the parameters keyed by column name.
func (i Item) Params() map[string]string {
	params := make(map[string]string, len(i.Fields))
	for _, f := range i.Fields {
		params[f.Name] = f.Value
	}
	return params
}

// Key renders the identifying fields for logs.
func (i Item) Key() string {
	parts := make([]string, 0, len(i.Fields))
	for _, f := range i.Fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	return strings.Join(parts, " ")
}

// Identity encodes the fields so that distinct rows never share a value.
// Key is for people; use Identity to compare or index items.
func (i Item) Identity() string {
	var b strings.Builder
	for _, f := range i.Fields {
		b.WriteString(strconv.Quote(f.Name))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(f.Value))
		b.WriteByte(';')
	}
	return b.String()
}

// HealthSummary aggregates row counts per status.
type HealthSummary struct {
	Total      int
	Pending    int
	InProgress int
	Done       int
	Failed     int
}

// Drained reports whether no pending rows remain.
func (h HealthSummary) Drained() bool {
	return h.Pending == 0
}
