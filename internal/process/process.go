package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/giantswarm/sidecarshell/internal/sentinel"
)

// ErrSpawn wraps every failure of the OS to start the child.
const ErrSpawn = sentinel.Error("spawn sidecar")

// ErrEmptyBinary is returned by Spawn when Config.Binary is empty.
const ErrEmptyBinary = sentinel.Error("binary path must not be empty")

// ErrEmptyName is returned by Spawn when Config.Name is empty.
const ErrEmptyName = sentinel.Error("process name must not be empty")

// DefaultStopTimeout bounds Kill when Config.StopTimeout is zero.
const DefaultStopTimeout = 10 * time.Second

// eventBuffer is the capacity of the event channel returned by Spawn. Output
// bursts up to this many lines do not stall the child while the relay logs.
const eventBuffer = 256

// Config describes the child to spawn.
type Config struct {
	Name   string            // used in logs and error messages (e.g., "maude-server")
	Binary string            // resolved executable path
	Args   []string          // optional arguments
	Env    map[string]string // added on top of the shell's own environment
	Dir    string            // working directory; empty inherits the shell's

	// StopTimeout bounds Kill. Zero uses DefaultStopTimeout.
	StopTimeout time.Duration

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Process is the owned handle to one spawned child.
//
// Kill is safe to call from any goroutine and any number of times; only the
// first call signals the child.
type Process struct {
	name        string
	cmd         *exec.Cmd
	log         *slog.Logger
	stopTimeout time.Duration

	waitDone <-chan error    // receives cmd.Wait result, consumed once by Kill
	exited   <-chan struct{} // closed when the child exits
	quit     chan struct{}   // closed by Kill; unblocks pending event sends
	quitOnce sync.Once
	killed   atomic.Bool
}

// environ returns the shell's environment with extra appended in key order.
// Later entries win in exec, so injected values override inherited ones.
func environ(extra map[string]string) []string {
	env := os.Environ()
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// Spawn starts the child described by cfg. The returned channel yields the
// child's output line by line and ends with one terminal event; it is closed
// afterwards. Spawn never starts goroutines when it returns an error.
//
// ctx bounds the child's lifetime: canceling it kills the child.
func Spawn(ctx context.Context, cfg Config) (*Process, <-chan Event, error) {
	if cfg.Name == "" {
		return nil, nil, ErrEmptyName
	}
	if cfg.Binary == "" {
		return nil, nil, fmt.Errorf("%s: %w", cfg.Name, ErrEmptyBinary)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	p := &Process{
		name:        cfg.Name,
		log:         log,
		stopTimeout: stopTimeout,
		quit:        make(chan struct{}),
	}
	events := make(chan Event, eventBuffer)
	send := func(ev Event) {
		select {
		case events <- ev:
		case <-p.quit:
		}
	}
	stdout := &lineWriter{kind: EventStdout, send: send}
	stderr := &lineWriter{kind: EventStderr, send: send}

	cmd := exec.CommandContext(ctx, cfg.Binary, cfg.Args...)
	cmd.Env = environ(cfg.Env)
	cmd.Dir = cfg.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Bound how long Wait keeps copying output after the child exits, in
	// case a grandchild inherited the pipes.
	cmd.WaitDelay = stopTimeout
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("%w %s: %w", ErrSpawn, cfg.Name, err)
	}
	p.cmd = cmd

	// cmd.Wait must be called exactly once. This goroutine owns it and fans
	// the result out to Kill (done) and to any number of watchers (exited).
	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		close(exited)
		done <- err

		stdout.flush()
		stderr.flush()
		send(terminalEvent(cmd, err))
		close(events)
	}()
	p.waitDone = done
	p.exited = exited

	log.Info("sidecar started", "process", cfg.Name, "pid", cmd.Process.Pid)
	return p, events, nil
}

// terminalEvent classifies the result of cmd.Wait. A non-zero exit or a
// signal is still EventTerminated; EventError is reserved for failures to
// observe the child at all.
func terminalEvent(cmd *exec.Cmd, err error) Event {
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return Event{Kind: EventError, Err: err}
	}
	ev := Event{Kind: EventTerminated, ExitCode: -1}
	if state := cmd.ProcessState; state != nil {
		ev.ExitCode = state.ExitCode()
		if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			ev.Signal = status.Signal().String()
		}
	}
	return ev
}

// Name returns the process name given to Spawn.
func (p *Process) Name() string {
	return p.name
}

// Pid returns the child's process identifier.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited returns a channel that is closed when the child exits. It is safe
// to select on from any number of goroutines.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// Kill terminates the child: SIGTERM first, SIGKILL after a grace period,
// bounded by the configured stop timeout. The first call does the work;
// later calls return nil immediately. Killing a child that already exited is
// not an error.
func (p *Process) Kill() error {
	if !p.killed.CompareAndSwap(false, true) {
		return nil
	}
	// Output produced while shutting down is dropped rather than letting a
	// departed relay block the child's pipe copiers.
	p.quitOnce.Do(func() { close(p.quit) })

	pid := p.Pid()
	err := stopWithDone(p.cmd, p.waitDone, p.stopTimeout, p.name)
	if err != nil {
		p.log.Warn("sidecar stop failed; process may be orphaned",
			"process", p.name, "pid", pid, "error", err)
		return err
	}
	p.log.Info("sidecar stopped", "process", p.name, "pid", pid)
	return nil
}
