package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldWorkerID is the standardized structured logging key for worker identifiers.
	FieldWorkerID = "worker_id"
	// FieldItem is the standardized structured logging key for a work item's identifying fields.
	FieldItem = "item"
	// FieldState is the standardized structured logging key for worker loop states.
	FieldState = "state"
	// FieldTable is the standardized structured logging key for the work table location.
	FieldTable = "table"
	// FieldEventType tags log lines with a machine-friendly event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	workerIDKey contextKey = iota
	itemKey
)

// WithWorkerID stores the worker identifier on the context.
func WithWorkerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, workerIDKey, id)
}

// WithItem stores the key of the item being processed on the context.
func WithItem(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, itemKey, key)
}

// WorkerIDFromContext returns the worker identifier, if any.
func WorkerIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(workerIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := WorkerIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorkerID, id))
	}
	if key, ok := ctx.Value(itemKey).(string); ok && key != "" {
		fields = append(fields, slog.String(FieldItem, key))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
