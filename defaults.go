package sidecarshell

import (
	"time"

	"github.com/giantswarm/sidecarshell/internal/health"
	"github.com/giantswarm/sidecarshell/internal/instancelock"
	"github.com/giantswarm/sidecarshell/internal/process"
)

// Default configuration values for New.
const (
	// DefaultName labels the sidecar in logs.
	DefaultName = "maude-server"

	// DefaultBinary is the sidecar executable name, looked up next to the
	// shell executable and then on $PATH.
	DefaultBinary = "maude-server"

	// DefaultPollInterval is the delay before each health probe.
	DefaultPollInterval = health.DefaultInterval

	// DefaultMaxAttempts is the number of health probes before the sidecar
	// is reported as failed to start. With DefaultPollInterval this is a
	// ten-second budget.
	DefaultMaxAttempts = health.DefaultMaxAttempts

	// DefaultReadyMode navigates the window to the sidecar.
	DefaultReadyMode = ModeNavigate

	// DefaultStopTimeout bounds killing the sidecar on shutdown.
	DefaultStopTimeout = process.DefaultStopTimeout

	// DefaultShutdownDrainTimeout bounds the wait for output forwarding and
	// health polling to stop after the sidecar was killed.
	DefaultShutdownDrainTimeout = 5 * time.Second

	// DefaultLockWait is how long Start waits for a previous shell to
	// release the instance lock.
	DefaultLockWait = instancelock.DefaultWait
)
