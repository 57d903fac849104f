package supervisor

import (
	"fmt"
	"strings"
)

// Error kinds reported by ExecError.ErrorKind.
const (
	ErrorKindTemplate = "template"
	ErrorKindStart    = "start"
	ErrorKindExit     = "exit"
)

// ExecError describes why a job did not succeed.
type ExecError struct {
	Kind     string
	Command  []string
	ExitCode int
	Err      error
}

func (e *ExecError) Error() string {
	switch e.Kind {
	case ErrorKindTemplate:
		return fmt.Sprintf("render command: %v", e.Err)
	case ErrorKindStart:
		return fmt.Sprintf("start %s: %v", strings.Join(e.Command, " "), e.Err)
	default:
		return fmt.Sprintf("%s: %v", strings.Join(e.Command, " "), e.Err)
	}
}

func (e *ExecError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure as template, start, or exit.
func (e *ExecError) ErrorKind() string { return e.Kind }
