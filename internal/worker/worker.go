package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dockq/internal/logging"
	"dockq/internal/queue"
)

const defaultRetryBackoff = 200 * time.Millisecond

// Queue is the part of queue.Store a Worker needs.
type Queue interface {
	ClaimNextFunc(ctx context.Context, eligible func(queue.Item) bool) (*queue.Item, error)
	Report(ctx context.Context, item queue.Item, outcome queue.Outcome) (queue.Status, error)
}

// Executor runs one claimed item.
type Executor interface {
	Execute(ctx context.Context, item queue.Item) queue.Outcome
}

// Options configures a Worker.
type Options struct {
	ID string
	// ReportRetries is how many times a failed report is retried before Run
	// gives up.
	ReportRetries int
	RetryBackoff  time.Duration
	Logger        *slog.Logger
	// OnState, when set, observes every state change.
	OnState func(State)
}

// Worker runs the claim cycle against one queue.
type Worker struct {
	id            string
	queue         Queue
	executor      Executor
	reportRetries int
	retryBackoff  time.Duration
	logger        *slog.Logger
	onState       func(State)

	mu       sync.RWMutex
	state    State
	lastItem *queue.Item
}

// New constructs a Worker. An empty ID gets a generated one.
func New(q Queue, executor Executor, opts Options) *Worker {
	id := opts.ID
	if id == "" {
		id = NewID()
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	retries := opts.ReportRetries
	if retries < 0 {
		retries = 0
	}
	return &Worker{
		id:            id,
		queue:         q,
		executor:      executor,
		reportRetries: retries,
		retryBackoff:  backoff,
		logger:        logging.NewComponentLogger(opts.Logger, "worker"),
		onState:       opts.OnState,
	}
}

// ID returns the worker identifier.
func (w *Worker) ID() string { return w.id }

// State returns the current state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastItem returns a copy of the most recently claimed item.
func (w *Worker) LastItem() *queue.Item {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.lastItem == nil {
		return nil
	}
	copy := *w.lastItem
	return &copy
}

// Run claims and executes items until the queue drains, ctx is cancelled, or
// the store fails. Cancellation stops claiming; an item already executing is
// stopped and returned to pending. Cancellation is not an error.
//
// A row this worker returned to pending is not claimed again during the same
// Run; it stays eligible for other workers and later runs.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	ctx = logging.WithWorkerID(ctx, w.id)
	logger := logging.WithContext(ctx, w.logger)
	var summary Summary
	requeued := make(map[string]struct{})
	eligible := func(item queue.Item) bool {
		_, skip := requeued[item.Identity()]
		return !skip
	}

	for {
		w.setState(StateIdle)
		if ctx.Err() != nil {
			logger.Info("worker stopping before queue drained",
				logging.Int("claimed", summary.Claimed),
				logging.String(logging.FieldEventType, "worker_stopped"),
			)
			return summary, nil
		}

		w.setState(StateClaiming)
		item, err := w.queue.ClaimNextFunc(ctx, eligible)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("claim failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"),
				logging.String(logging.FieldErrorHint, "check the work table exists and is well formed"),
			)
			return summary, fmt.Errorf("claim: %w", err)
		}
		if item == nil {
			w.setState(StateDrained)
			summary.Drained = true
			msg := "queue drained"
			if len(requeued) > 0 {
				msg = "queue drained except rows requeued by this worker"
			}
			logger.Info(msg,
				logging.Int("claimed", summary.Claimed),
				logging.Int("done", summary.Done),
				logging.Int("failed", summary.Failed),
				logging.Int("requeued", summary.Requeued),
				logging.String(logging.FieldEventType, "queue_drained"),
			)
			return summary, nil
		}

		summary.Claimed++
		w.setLastItem(item)
		status, err := w.process(ctx, *item, &summary)
		if err != nil {
			return summary, err
		}
		if status == queue.StatusPending {
			requeued[item.Identity()] = struct{}{}
		}
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item, summary *Summary) (queue.Status, error) {
	itemCtx := logging.WithItem(ctx, item.Key())
	logger := logging.WithContext(itemCtx, w.logger)
	logger.Info("item claimed", logging.String(logging.FieldEventType, "item_claimed"))

	w.setState(StateExecuting)
	outcome := w.executor.Execute(itemCtx, item)

	w.setState(StateReporting)
	status, err := w.report(itemCtx, logger, item, outcome)
	switch {
	case errors.Is(err, queue.ErrNoMatchingRow):
		summary.Unmatched++
		logger.Warn("no in-progress row matched the finished item; outcome discarded",
			logging.String("outcome", outcome.Kind.String()),
			logging.String(logging.FieldEventType, "report_unmatched"),
			logging.String(logging.FieldErrorHint, "the row was edited or removed while the job ran"),
		)
		return "", nil
	case err != nil:
		logger.Error("report failed",
			logging.Error(err),
			logging.String("outcome", outcome.Kind.String()),
			logging.String(logging.FieldEventType, "report_failed"),
			logging.String(logging.FieldErrorHint, "the row stays in_progress; run `dockq queue reset` once the table is reachable"),
		)
		return "", fmt.Errorf("report: %w", err)
	}

	attrs := []logging.Attr{
		logging.String("status", string(status)),
		logging.Duration("duration", outcome.Duration.Round(time.Millisecond)),
	}
	switch outcome.Kind {
	case queue.OutcomeSuccess:
		summary.Done++
		logger.Info("job succeeded", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "job_succeeded"))...)...)
	case queue.OutcomeFailed:
		summary.Failed++
		logger.Warn("job failed", logging.Args(append(attrs,
			logging.String("detail", outcome.Detail),
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String(logging.FieldErrorHint, "inspect the job output; failed rows are not retried"))...)...)
	case queue.OutcomeTimedOut:
		summary.Requeued++
		logger.Warn("job timed out; returned to pending", logging.Args(append(attrs,
			logging.String("detail", outcome.Detail),
			logging.String(logging.FieldEventType, "job_timed_out"),
			logging.String(logging.FieldErrorHint, "raise --time-limit if jobs legitimately run longer"))...)...)
	case queue.OutcomeInterrupted:
		summary.Requeued++
		logger.Info("job interrupted; returned to pending", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "job_interrupted"))...)...)
	}
	return status, nil
}

// report persists the outcome even when ctx is already cancelled, retrying
// transient store errors with backoff.
func (w *Worker) report(ctx context.Context, logger *slog.Logger, item queue.Item, outcome queue.Outcome) (queue.Status, error) {
	reportCtx := context.WithoutCancel(ctx)
	backoff := w.retryBackoff
	for attempt := 0; ; attempt++ {
		status, err := w.queue.Report(reportCtx, item, outcome)
		if err == nil || errors.Is(err, queue.ErrNoMatchingRow) {
			return status, err
		}
		if attempt >= w.reportRetries {
			return "", err
		}
		logger.Warn("report failed; retrying",
			logging.Error(err),
			logging.Int("attempt", attempt+1),
			logging.Duration("backoff", backoff),
			logging.String(logging.FieldEventType, "report_retry"),
		)
		time.Sleep(backoff)
		backoff *= 2
	}
}

func (w *Worker) setState(state State) {
	w.mu.Lock()
	changed := w.state != state
	w.state = state
	w.mu.Unlock()
	if changed {
		w.logger.Debug("state changed", logging.String(logging.FieldWorkerID, w.id), logging.String(logging.FieldState, state.String()))
	}
	if w.onState != nil {
		w.onState(state)
	}
}

func (w *Worker) setLastItem(item *queue.Item) {
	w.mu.Lock()
	if item != nil {
		copy := *item
		w.lastItem = &copy
	} else {
		w.lastItem = nil
	}
	w.mu.Unlock()
}
