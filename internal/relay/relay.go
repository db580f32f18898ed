package relay

import (
	"context"
	"log/slog"

	"github.com/giantswarm/sidecarshell/internal/process"
)

// Stream names the origin of a forwarded line.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Sink receives forwarded output. Implementations must not retain line.
type Sink interface {
	Info(stream Stream, line []byte)
	Error(stream Stream, line []byte)
	Exited(ev process.Event)
}

// Stats summarises a finished relay.
type Stats struct {
	Stdout int
	Stderr int
	// Final is the terminal event, or the zero Event if the relay stopped
	// because the channel closed or ctx ended first.
	Final process.Event
}

// Run forwards events to sink until a terminal event arrives, the channel
// closes, or ctx is done. It blocks; callers run it in its own goroutine.
func Run(ctx context.Context, events <-chan process.Event, sink Sink) Stats {
	var st Stats
	for {
		select {
		case <-ctx.Done():
			return st
		case ev, ok := <-events:
			if !ok {
				return st
			}
			switch ev.Kind {
			case process.EventStdout:
				st.Stdout++
				sink.Info(Stdout, ev.Line)
			case process.EventStderr:
				st.Stderr++
				sink.Error(Stderr, ev.Line)
			case process.EventTerminated, process.EventError:
				st.Final = ev
				sink.Exited(ev)
				return st
			}
		}
	}
}

// SlogSink writes forwarded output to a slog.Logger.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink returns a sink logging through logger with a sidecar attribute.
// A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger, name string) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger.With("sidecar", name)}
}

// Info logs a stdout line at info level.
func (s *SlogSink) Info(stream Stream, line []byte) {
	s.Logger.Info(string(line), "stream", string(stream))
}

// Error logs a stderr line at error level.
func (s *SlogSink) Error(stream Stream, line []byte) {
	s.Logger.Error(string(line), "stream", string(stream))
}

// Exited logs the terminal event at error level: the shell never expects the
// sidecar to leave on its own.
func (s *SlogSink) Exited(ev process.Event) {
	if ev.Kind == process.EventError {
		s.Logger.Error("sidecar error", "error", ev.Err)
		return
	}
	attrs := []any{"exit_code", ev.ExitCode}
	if ev.Signal != "" {
		attrs = append(attrs, "signal", ev.Signal)
	}
	s.Logger.Error("sidecar terminated", attrs...)
}
