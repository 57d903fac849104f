package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"dockq/internal/config"
	"dockq/internal/logging"
	"dockq/internal/queue"
)

var commandContext = exec.CommandContext

// Options configures a Supervisor.
type Options struct {
	Template string
	// TimeLimit bounds each job's wall-clock time; zero or less disables it.
	TimeLimit time.Duration
	// KillGrace is the pause between SIGTERM and SIGKILL.
	KillGrace time.Duration
	TailLines int
	Logger    *slog.Logger
}

// Supervisor executes claimed items. It is safe for concurrent use; each
// Execute call owns its child process.
type Supervisor struct {
	template  *Template
	timeLimit time.Duration
	killGrace time.Duration
	tailLines int
	logger    *slog.Logger
}

// New parses the template and returns a Supervisor.
func New(opts Options) (*Supervisor, error) {
	tmpl, err := ParseTemplate(opts.Template)
	if err != nil {
		return nil, err
	}
	grace := opts.KillGrace
	if grace < 0 {
		grace = 0
	}
	return &Supervisor{
		template:  tmpl,
		timeLimit: opts.TimeLimit,
		killGrace: grace,
		tailLines: opts.TailLines,
		logger:    logging.NewComponentLogger(opts.Logger, "supervisor"),
	}, nil
}

// FromConfig builds a Supervisor from the worker section.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return New(Options{
		Template:  cfg.Worker.CommandTemplate,
		TimeLimit: time.Duration(cfg.Worker.TimeLimit) * time.Second,
		KillGrace: time.Duration(cfg.Worker.KillGraceSeconds) * time.Second,
		TailLines: cfg.Worker.OutputTailLines,
		Logger:    logger,
	})
}

// Template returns the parsed command template.
func (s *Supervisor) Template() *Template { return s.template }

// TimeLimit returns the per-job time limit; zero means none.
func (s *Supervisor) TimeLimit() time.Duration { return s.timeLimit }

// Execute runs the item's command and classifies the result. It never returns
// an error; failures are carried in the Outcome. Cancelling ctx stops the
// child the same way a timeout does and yields OutcomeInterrupted.
func (s *Supervisor) Execute(ctx context.Context, item queue.Item) queue.Outcome {
	start := time.Now()
	logger := logging.WithContext(ctx, s.logger)

	argv, err := s.template.Render(item.Params())
	if err != nil {
		execErr := &ExecError{Kind: ErrorKindTemplate, Err: err}
		return queue.Outcome{Kind: queue.OutcomeFailed, Detail: execErr.Error(), Err: execErr}
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	output := newLineWriter(s.tailLines, func(line string) {
		logger.Debug("job output", logging.String("line", line))
	})

	cmd := commandContext(runCtx, argv[0], argv[1:]...) //nolint:gosec
	setProcessGroup(cmd)
	cmd.Stdout = output
	cmd.Stderr = output
	exited := make(chan struct{})
	var stopped atomic.Bool
	cmd.Cancel = func() error {
		stopped.Store(true)
		return s.terminate(cmd.Process.Pid, exited)
	}
	cmd.WaitDelay = s.killGrace + time.Second

	logger.Debug("starting job", logging.String("command", strings.Join(argv, " ")))
	if err := cmd.Start(); err != nil {
		close(exited)
		if ctx.Err() != nil {
			return queue.Outcome{Kind: queue.OutcomeInterrupted, Detail: "worker stopping", Err: context.Cause(ctx)}
		}
		execErr := &ExecError{Kind: ErrorKindStart, Command: argv, ExitCode: -1, Err: err}
		return queue.Outcome{
			Kind:     queue.OutcomeFailed,
			Detail:   execErr.Error(),
			Err:      execErr,
			Duration: time.Since(start),
		}
	}

	waitErr := cmd.Wait()
	close(exited)
	output.Flush()
	duration := time.Since(start)

	if stopped.Load() {
		// Leftover group members that ignored SIGTERM must not outlive the job.
		_ = signalGroup(cmd.Process.Pid, unix.SIGKILL)
		if ctx.Err() != nil {
			return queue.Outcome{
				Kind:     queue.OutcomeInterrupted,
				Detail:   "worker stopping",
				Err:      context.Cause(ctx),
				Duration: duration,
			}
		}
		return queue.Outcome{
			Kind:     queue.OutcomeTimedOut,
			Detail:   fmt.Sprintf("exceeded time limit of %s", s.timeLimit),
			Err:      context.DeadlineExceeded,
			Duration: duration,
		}
	}

	if waitErr == nil {
		return queue.Outcome{Kind: queue.OutcomeSuccess, Duration: duration}
	}

	execErr := &ExecError{Kind: ErrorKindExit, Command: argv, ExitCode: -1, Err: waitErr}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	return queue.Outcome{
		Kind:     queue.OutcomeFailed,
		Detail:   failureDetail(waitErr, output.Tail()),
		Err:      execErr,
		Duration: duration,
	}
}

func (s *Supervisor) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeLimit > 0 {
		return context.WithTimeout(ctx, s.timeLimit)
	}
	return context.WithCancel(ctx)
}

// terminate sends SIGTERM to the job's group and escalates to SIGKILL unless
// the job exits within the grace period.
func (s *Supervisor) terminate(pid int, exited <-chan struct{}) error {
	if s.killGrace <= 0 {
		return signalGroup(pid, unix.SIGKILL)
	}
	if err := signalGroup(pid, unix.SIGTERM); err != nil {
		return signalGroup(pid, unix.SIGKILL)
	}
	go func() {
		timer := time.NewTimer(s.killGrace)
		defer timer.Stop()
		select {
		case <-timer.C:
			_ = signalGroup(pid, unix.SIGKILL)
		case <-exited:
		}
	}()
	return nil
}

func failureDetail(err error, tail []string) string {
	if len(tail) == 0 {
		return err.Error()
	}
	return err.Error() + "\n" + strings.Join(tail, "\n")
}
