package window

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/giantswarm/sidecarshell/internal/sentinel"
)

// ReadyEvent is the DOM event dispatched on window in ReadyEvent mode.
const ReadyEvent = "server-ready"

// ErrUnknownReadyMode is returned by ParseReadyMode.
const ErrUnknownReadyMode = sentinel.Error("unknown ready mode")

// Window is the UI surface the supervisor coordinates with.
type Window interface {
	// Navigate points the window at url.
	Navigate(url string) error
	// Emit dispatches a CustomEvent named event with payload as its detail.
	Emit(event string, payload any) error
	// Done is closed when the user closes the window.
	Done() <-chan struct{}
	// Close closes the window. Safe to call after Done fired.
	Close() error
}

// ReadyMode selects what the window does once the sidecar is ready.
type ReadyMode string

const (
	// ModeNavigate loads the sidecar URL, so the frontend is served
	// same-origin by the sidecar.
	ModeNavigate ReadyMode = "navigate"
	// ModeEvent dispatches ReadyEvent with detail true and leaves the
	// current page in place.
	ModeEvent ReadyMode = "event"
)

// ParseReadyMode parses s case-insensitively. The empty string is
// ModeNavigate.
func ParseReadyMode(s string) (ReadyMode, error) {
	switch m := ReadyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeNavigate:
		return ModeNavigate, nil
	case ModeEvent:
		return ModeEvent, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownReadyMode, s, ModeNavigate, ModeEvent)
	}
}

// Valid reports whether m is a known mode.
func (m ReadyMode) Valid() bool {
	return m == ModeNavigate || m == ModeEvent
}

// OnReady returns the action the health monitor runs once, with the sidecar
// URL, when the first probe succeeds. Window failures are logged and
// otherwise ignored: the shell keeps running with whatever page is shown.
func (m ReadyMode) OnReady(w Window, logger *slog.Logger) func(url string) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(url string) {
		var err error
		switch m {
		case ModeEvent:
			err = w.Emit(ReadyEvent, true)
		default:
			err = w.Navigate(url)
		}
		if err != nil {
			logger.Warn("window ready action failed", "mode", string(m), "url", url, "error", err)
			return
		}
		logger.Debug("window ready action done", "mode", string(m), "url", url)
	}
}
