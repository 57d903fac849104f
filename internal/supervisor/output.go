package supervisor

import (
	"bytes"
	"sync"
)

// lineWriter splits child output into lines, hands each to emit, and keeps
// the last max lines.
type lineWriter struct {
	mu      sync.Mutex
	pending []byte
	tail    []string
	max     int
	emit    func(string)
}

func newLineWriter(max int, emit func(string)) *lineWriter {
	return &lineWriter{max: max, emit: emit}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		w.line(string(bytes.TrimRight(w.pending[:idx], "\r")))
		w.pending = w.pending[idx+1:]
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.line(string(w.pending))
		w.pending = nil
	}
}

// Tail returns a copy of the retained lines, oldest first.
func (w *lineWriter) Tail() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.tail...)
}

func (w *lineWriter) line(text string) {
	if w.emit != nil {
		w.emit(text)
	}
	if w.max <= 0 {
		return
	}
	w.tail = append(w.tail, text)
	if len(w.tail) > w.max {
		w.tail = w.tail[len(w.tail)-w.max:]
	}
}
