// Package progress draws progress bars for batch commands when stderr is a
// terminal and stays silent otherwise.
package progress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter advances a progress display.
type Reporter interface {
	Add(n int) error
	Finish() error
}

// New returns a bar over total steps written to w, or a silent one when w is
// not a terminal.
func New(w io.Writer, total int, description string) Reporter {
	if !IsTerminal(w) {
		return progressbar.DefaultSilent(int64(total), description)
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	)
}

// Nop discards progress.
func Nop() Reporter { return nopReporter{} }

type nopReporter struct{}

func (nopReporter) Add(int) error { return nil }
func (nopReporter) Finish() error { return nil }

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
