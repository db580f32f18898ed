package sidecarshell

import (
	"fmt"
	"maps"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("sidecarshell: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("sidecarshell: %s must not be empty", name))
	}
}

// Option configures a Shell during construction via New.
//
// With* functions panic on invalid input. Option values are usually
// constants or flags validated by the caller, so an invalid value is a
// programmer error, as with regexp.MustCompile.
type Option func(*shellConfig)

// WithName sets the label used for the sidecar in logs.
//
// Default: "maude-server".
//
// Panics if name is empty.
func WithName(name string) Option {
	requireNonEmpty("sidecar name", name)
	return func(c *shellConfig) {
		c.Name = name
	}
}

// WithBinary sets the sidecar executable. A bare name is looked up next to
// the shell executable, also with a -GOOS-GOARCH suffix, then on $PATH. A
// name with a path separator is used as a path.
//
// Default: "maude-server".
//
// Panics if name is empty.
func WithBinary(name string) Option {
	requireNonEmpty("sidecar binary", name)
	return func(c *shellConfig) {
		c.Binary = name
	}
}

// WithSearchDirs replaces the shell executable's directory as the place a
// bare binary name is looked for before $PATH.
func WithSearchDirs(dirs ...string) Option {
	for _, d := range dirs {
		requireNonEmpty("search directory", d)
	}
	dirs = append([]string(nil), dirs...)
	return func(c *shellConfig) {
		c.SearchDirs = dirs
	}
}

// WithArgs sets the sidecar's command-line arguments.
func WithArgs(args ...string) Option {
	args = append([]string(nil), args...)
	return func(c *shellConfig) {
		c.Args = args
	}
}

// WithClientDist sets CLIENT_DIST, the directory of frontend assets the
// sidecar serves.
//
// Panics if dir is empty.
func WithClientDist(dir string) Option {
	requireNonEmpty("client dist directory", dir)
	return func(c *shellConfig) {
		c.ClientDist = dir
	}
}

// WithEnv adds one variable to the sidecar's environment. It may be given
// several times. PORT and CLIENT_DIST are owned by the shell and always win.
//
// Panics if key is empty.
func WithEnv(key, value string) Option {
	requireNonEmpty("env variable name", key)
	return func(c *shellConfig) {
		env := make(map[string]string, len(c.Env)+1)
		maps.Copy(env, c.Env)
		env[key] = value
		c.Env = env
	}
}

// WithWorkDir sets the sidecar's working directory.
//
// Panics if dir is empty.
func WithWorkDir(dir string) Option {
	requireNonEmpty("work directory", dir)
	return func(c *shellConfig) {
		c.WorkDir = dir
	}
}

// WithDataDir enables the single-instance lock in dir. The directory is
// created on Start if missing.
//
// Default: no lock.
//
// Panics if dir is empty.
func WithDataDir(dir string) Option {
	requireNonEmpty("data directory", dir)
	return func(c *shellConfig) {
		c.DataDir = dir
	}
}

// WithLockWait sets how long Start waits for another shell to release the
// instance lock. Zero tries once.
//
// Default: 2 seconds.
//
// Panics if d < 0.
func WithLockWait(d time.Duration) Option {
	if d < 0 {
		panic(fmt.Sprintf("sidecarshell: lock wait must not be negative, got %v", d))
	}
	return func(c *shellConfig) {
		c.LockWait = d
	}
}

// WithPollInterval sets the delay before each health probe.
//
// Default: 250 milliseconds.
//
// Panics if d <= 0.
func WithPollInterval(d time.Duration) Option {
	requirePositive("poll interval", d)
	return func(c *shellConfig) {
		c.PollInterval = d
	}
}

// WithMaxAttempts sets how many health probes the sidecar gets before it is
// reported as failed to start.
//
// Default: 40.
//
// Panics if n <= 0.
func WithMaxAttempts(n int) Option {
	requirePositive("max attempts", n)
	return func(c *shellConfig) {
		c.MaxAttempts = n
	}
}

// WithReadyMode selects what the window does once the sidecar is ready.
//
// Default: ModeNavigate.
//
// Panics if m is not ModeNavigate or ModeEvent.
func WithReadyMode(m ReadyMode) Option {
	if !m.Valid() {
		panic(fmt.Sprintf("sidecarshell: invalid ready mode %q", m))
	}
	return func(c *shellConfig) {
		c.ReadyMode = m
	}
}

// WithStopTimeout bounds killing the sidecar. SIGTERM is sent first and
// SIGKILL follows after a grace period no longer than d.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *shellConfig) {
		c.StopTimeout = d
	}
}

// WithShutdownDrainTimeout bounds how long Shutdown waits for output
// forwarding and health polling to stop.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithShutdownDrainTimeout(d time.Duration) Option {
	requirePositive("shutdown drain timeout", d)
	return func(c *shellConfig) {
		c.ShutdownDrainTimeout = d
	}
}
