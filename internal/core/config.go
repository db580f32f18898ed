package core

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/giantswarm/sidecarshell/internal/window"
)

// Environment variables injected into the sidecar.
const (
	EnvPort       = "PORT"
	EnvClientDist = "CLIENT_DIST"
)

// SupervisorConfig holds configuration for a Supervisor. All fields are
// immutable after NewSupervisor.
type SupervisorConfig struct {
	// Name labels the sidecar in logs.
	Name string

	// Binary is the sidecar executable: a bare name looked up next to the
	// shell and then on $PATH, or a path.
	Binary string

	// SearchDirs overrides where a bare Binary name is looked for before
	// $PATH. Empty means the shell executable's directory.
	SearchDirs []string

	// Args are passed to the sidecar.
	Args []string

	// ClientDist is exported as CLIENT_DIST. Empty exports nothing.
	ClientDist string

	// Env holds extra variables for the sidecar. PORT and CLIENT_DIST are
	// always set by the supervisor and win over entries here.
	Env map[string]string

	// WorkDir is the sidecar's working directory. Empty inherits the shell's.
	WorkDir string

	// DataDir holds the instance lock. Empty disables the lock.
	DataDir string

	// LockWait is how long Start waits for another instance to let go of
	// the lock.
	LockWait time.Duration

	PollInterval time.Duration
	MaxAttempts  int
	ReadyMode    window.ReadyMode

	// StopTimeout bounds killing the sidecar.
	StopTimeout time.Duration

	// ShutdownDrainTimeout bounds how long Shutdown waits for the relay and
	// the monitor to return after the sidecar was killed.
	ShutdownDrainTimeout time.Duration
}

// Validate checks every SupervisorConfig invariant and reports all
// violations at once.
func (c SupervisorConfig) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New("sidecar name must not be empty"))
	}
	if c.Binary == "" {
		errs = append(errs, errors.New("sidecar binary must not be empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be greater than 0, got %s", c.PollInterval))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max attempts must be greater than 0, got %d", c.MaxAttempts))
	}
	if !c.ReadyMode.Valid() {
		errs = append(errs, fmt.Errorf("invalid ready mode: %q", c.ReadyMode))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}
	if c.ShutdownDrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown drain timeout must be greater than 0, got %s", c.ShutdownDrainTimeout))
	}
	if c.LockWait < 0 {
		errs = append(errs, fmt.Errorf("lock wait must not be negative, got %s", c.LockWait))
	}
	for k := range c.Env {
		if k == "" {
			errs = append(errs, errors.New("env variable name must not be empty"))
			break
		}
	}

	return errors.Join(errs...)
}

// env returns the sidecar environment for port, with the supervisor's own
// variables layered over the user's extras.
func (c SupervisorConfig) env(port int) map[string]string {
	out := make(map[string]string, len(c.Env)+2)
	maps.Copy(out, c.Env)
	out[EnvPort] = strconv.Itoa(port)
	if c.ClientDist != "" {
		out[EnvClientDist] = c.ClientDist
	}
	return out
}
