package sidecarshell

import (
	"context"

	"github.com/giantswarm/sidecarshell/internal/health"
	"github.com/giantswarm/sidecarshell/internal/window"
)

// Shell supervises one sidecar for one window.
//
// Callers follow either
//
//	New → Run(ctx, win)
//
// which blocks until the window closes, or
//
//	New → Start(ctx, win) → ... → Shutdown
//
// Shutdown is safe to call at any point, any number of times, from any
// goroutine; the sidecar is killed at most once.
type Shell interface {
	// Start allocates a port, spawns the sidecar and begins health polling.
	// It returns before the sidecar is ready. win receives the ready action;
	// nil is allowed.
	//
	// Returns ErrAlreadyRunning, ErrNoPortAvailable, ErrBinaryNotFound or
	// ErrSpawn (wrapped) on fatal startup failures. Nothing is left running
	// when Start fails.
	Start(ctx context.Context, win Window) error

	// Run calls Start, waits for win to close or ctx to end, then calls
	// Shutdown.
	Run(ctx context.Context, win Window) error

	// Shutdown kills the sidecar and releases its port and the instance
	// lock. Kill failures are logged, not returned.
	Shutdown()

	// Port is the sidecar's loopback port, or 0 if Start did not succeed.
	Port() int

	// URL is the address the window navigates to, or "" before Start.
	URL() string

	// Health reports the readiness state. It never reverts once it left
	// HealthPending.
	Health() HealthState

	// Ready is closed when the sidecar first answers its health check.
	Ready() <-chan struct{}

	// Pid is the sidecar's process ID while it runs under the shell, or 0.
	Pid() int

	// Stopped is closed once Shutdown has finished its teardown.
	Stopped() <-chan struct{}
}

// Window is the UI surface the shell drives. OpenWindow returns the Chrome
// implementation; tests may supply their own.
type Window = window.Window

// ReadyMode selects what the window does once the sidecar is ready.
type ReadyMode = window.ReadyMode

// Ready modes.
const (
	ModeNavigate = window.ModeNavigate
	ModeEvent    = window.ModeEvent
)

// ReadyEvent is the DOM event dispatched in ModeEvent.
const ReadyEvent = window.ReadyEvent

// ParseReadyMode parses "navigate" or "event", case-insensitively.
func ParseReadyMode(s string) (ReadyMode, error) {
	return window.ParseReadyMode(s)
}

// HealthState is the sidecar's readiness: pending, ready or failed.
type HealthState = health.State

// Health states.
const (
	HealthPending = health.Pending
	HealthReady   = health.Ready
	HealthFailed  = health.Failed
)

// WindowConfig configures OpenWindow.
type WindowConfig = window.LorcaConfig

// OpenWindow opens a Chrome app window on a splash page. It fails when no
// Chrome or Chromium installation is found.
//
//nolint:ireturn // Returns Window so callers can swap implementations.
func OpenWindow(cfg WindowConfig) (Window, error) {
	w, err := window.OpenLorca(cfg)
	if err != nil {
		return nil, err
	}
	return w, nil
}
