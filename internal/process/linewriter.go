package process

import (
	"bufio"
	"bytes"
	"sync"
)

// MaxLineLength caps a single output line. A longer run of bytes without a
// newline is split into events of at most this many bytes, the same token
// limit bufio.Scanner applies.
const MaxLineLength = bufio.MaxScanTokenSize

// lineWriter turns a byte stream into one Event per newline-terminated line.
// Line bytes are forwarded verbatim without the '\n'; a CRLF child keeps its
// '\r'. exec.Cmd copies the child's pipe into it from its own goroutine; send
// is provided by the owning Process and never blocks past shutdown.
type lineWriter struct {
	mu      sync.Mutex
	kind    EventKind
	buf     []byte
	send    func(Event)
	maxLine int // zero uses MaxLineLength
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	limit := w.maxLine
	if limit <= 0 {
		limit = MaxLineLength
	}

	w.buf = append(w.buf, p...)
	off := 0
	for {
		rest := w.buf[off:]
		i := bytes.IndexByte(rest, '\n')
		switch {
		case i >= 0 && i <= limit:
			w.emit(rest[:i])
			off += i + 1
		case len(rest) >= limit:
			w.emit(rest[:limit])
			off += limit
		default:
			w.keep(rest, limit)
			return len(p), nil
		}
	}
}

// keep retains the pending partial line at the front of the buffer. A
// backing array grown by one large write is dropped.
func (w *lineWriter) keep(rest []byte, limit int) {
	switch {
	case len(rest) == 0 && cap(w.buf) > 2*limit:
		w.buf = nil
	case cap(w.buf) > 2*limit:
		w.buf = bytes.Clone(rest)
	default:
		w.buf = append(w.buf[:0], rest...)
	}
}

// flush emits a trailing line that had no newline. Called once after Wait.
func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	w.send(Event{Kind: w.kind, Line: bytes.Clone(line)})
}
