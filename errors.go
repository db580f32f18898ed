package sidecarshell

import (
	"github.com/giantswarm/sidecarshell/internal/core"
	"github.com/giantswarm/sidecarshell/internal/window"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrNoPortAvailable is returned by Start when no loopback port could be
	// reserved for the sidecar.
	ErrNoPortAvailable = core.ErrNoPortAvailable

	// ErrBinaryNotFound is returned by Start when the sidecar executable is
	// neither next to the shell nor on $PATH.
	ErrBinaryNotFound = core.ErrBinaryNotFound

	// ErrSpawn is returned by Start when the OS refused to start the sidecar.
	ErrSpawn = core.ErrSpawn

	// ErrAlreadyRunning is returned by Start when another shell holds the
	// instance lock in the data directory.
	ErrAlreadyRunning = core.ErrAlreadyRunning

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = core.ErrAlreadyStarted

	// ErrStopped is returned by Start after Shutdown or a failed Start.
	ErrStopped = core.ErrStopped

	// ErrUnknownReadyMode is returned by ParseReadyMode.
	ErrUnknownReadyMode = window.ErrUnknownReadyMode
)
