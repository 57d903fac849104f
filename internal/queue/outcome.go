package queue

import "time"

// OutcomeKind classifies how an execution ended.
type OutcomeKind int

const (
	// OutcomeSuccess means the job exited zero within its time limit.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailed means the job exited non-zero or could not be started.
	OutcomeFailed
	// OutcomeTimedOut means the job outlived its time limit and was killed.
	OutcomeTimedOut
	// OutcomeInterrupted means the worker was told to stop mid-job.
	OutcomeInterrupted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of executing one claimed item.
type Outcome struct {
	Kind     OutcomeKind
	Detail   string
	Err      error
	Duration time.Duration
}

// Status maps the outcome to the status the row should move to. Timeouts and
// interruptions roll the row back to pending so a later claim retries it;
// there is no retry bound.
func (o Outcome) Status() Status {
	switch o.Kind {
	case OutcomeSuccess:
		return StatusDone
	case OutcomeTimedOut, OutcomeInterrupted:
		return StatusPending
	default:
		return StatusFailed
	}
}
