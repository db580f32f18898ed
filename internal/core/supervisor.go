package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/sidecarshell/internal/health"
	"github.com/giantswarm/sidecarshell/internal/instancelock"
	"github.com/giantswarm/sidecarshell/internal/lifecycle"
	"github.com/giantswarm/sidecarshell/internal/netutil"
	"github.com/giantswarm/sidecarshell/internal/process"
	"github.com/giantswarm/sidecarshell/internal/relay"
	"github.com/giantswarm/sidecarshell/internal/sentinel"
	"github.com/giantswarm/sidecarshell/internal/window"
)

// supervisorState is the lifecycle state of a Supervisor.
type supervisorState uint32

const (
	supervisorCreated  supervisorState = iota // Zero value; Start allowed
	supervisorStarting                        // Start in progress
	supervisorRunning                         // sidecar spawned, background tasks live
	supervisorStopped                         // Shutdown called or Start failed
)

// ErrAlreadyStarted is returned by Start on a supervisor that was started before.
const ErrAlreadyStarted = sentinel.Error("supervisor already started")

// ErrStopped is returned by Start after Shutdown.
const ErrStopped = sentinel.Error("supervisor is stopped")

// Re-exported so the public package imports only from core.
const (
	ErrNoPortAvailable = netutil.ErrNoPortAvailable
	ErrBinaryNotFound  = process.ErrBinaryNotFound
	ErrSpawn           = process.ErrSpawn
	ErrAlreadyRunning  = instancelock.ErrAlreadyRunning
)

// Supervisor owns one sidecar. It is safe for concurrent use.
//
// Synchronization strategy:
//   - state is an atomic supervisorState; Start moves it created → starting
//     → running with CAS so only one Start proceeds.
//   - startMu is held for all of Start and for Shutdown's teardown, so
//     Shutdown never observes a half-built supervisor.
//   - owner holds the process handle. Its Terminate is the only kill path,
//     so the window-close hook and a signal racing each other kill once.
//   - started is set after every field Start writes, so the accessors read
//     port and monitor without taking startMu.
//   - shutdownOnce makes Shutdown run its teardown once; later callers
//     block on stopped until the first finishes.
type Supervisor struct {
	cfg   SupervisorConfig
	ports *netutil.PortRegistry
	log   *slog.Logger

	state   atomic.Uint32 // supervisorState
	started atomic.Bool
	startMu sync.Mutex

	owner   lifecycle.Owner[*process.Process]
	lock    *instancelock.Lock
	port    int
	monitor *health.Monitor
	ready   chan struct{}

	// pollCancel stops the health monitor; relayCancel stops the relay.
	// Shutdown cancels the monitor before the kill so an intentional exit
	// is not reported as a startup failure, and the relay after it.
	pollCancel  context.CancelFunc
	relayCancel context.CancelFunc
	procCancel  context.CancelFunc
	group       *errgroup.Group

	shutdownOnce sync.Once
	stopped      chan struct{}
}

// NewSupervisor creates a Supervisor. It performs no I/O.
//
// Panics if cfg.Validate() reports any errors.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("sidecarshell: invalid supervisor config: %v", err))
	}
	log := Logger().With("sidecar", cfg.Name)
	return &Supervisor{
		cfg:     cfg,
		ports:   netutil.NewPortRegistry(log),
		log:     log,
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *Supervisor) loadState() supervisorState {
	return supervisorState(s.state.Load())
}

// Start brings the sidecar up and returns without waiting for it to become
// ready. win receives the ready action; a nil win only records readiness.
//
// Errors from lock, port allocation, binary lookup and spawn are fatal: no
// background task is started and every acquired resource is released.
func (s *Supervisor) Start(ctx context.Context, win window.Window) (err error) {
	if !s.state.CompareAndSwap(uint32(supervisorCreated), uint32(supervisorStarting)) {
		if s.loadState() == supervisorStopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}
	s.startMu.Lock()
	defer s.startMu.Unlock()
	defer func() {
		if err != nil {
			s.cleanupFailedStart()
		}
	}()

	if s.cfg.DataDir != "" {
		s.lock, err = instancelock.Acquire(ctx, s.cfg.DataDir, s.cfg.LockWait, s.log)
		if err != nil {
			return fmt.Errorf("start %s: %w", s.cfg.Name, err)
		}
	}

	s.port, err = s.ports.AllocatePort()
	if err != nil {
		return fmt.Errorf("start %s: %w", s.cfg.Name, err)
	}

	bin, err := process.ResolveBinary(s.cfg.Binary, s.cfg.SearchDirs...)
	if err != nil {
		return fmt.Errorf("start %s: %w", s.cfg.Name, err)
	}

	// The child outlives ctx: only Shutdown ends it.
	procCtx, procCancel := context.WithCancel(context.WithoutCancel(ctx))
	proc, events, err := process.Spawn(procCtx, process.Config{
		Name:        s.cfg.Name,
		Binary:      bin,
		Args:        s.cfg.Args,
		Env:         s.cfg.env(s.port),
		Dir:         s.cfg.WorkDir,
		StopTimeout: s.cfg.StopTimeout,
		Logger:      s.log,
	})
	if err != nil {
		procCancel()
		return fmt.Errorf("start %s: %w", s.cfg.Name, err)
	}
	s.procCancel = procCancel

	if err = s.owner.Hold(proc); err != nil {
		_ = proc.Kill()
		return fmt.Errorf("start %s: %w", s.cfg.Name, err)
	}

	var onReady func(url string)
	if win != nil {
		onReady = s.cfg.ReadyMode.OnReady(win, s.log)
	}
	s.monitor, err = health.New(health.Config{
		Name:        s.cfg.Name,
		Port:        s.port,
		Interval:    s.cfg.PollInterval,
		MaxAttempts: s.cfg.MaxAttempts,
		Exited:      proc.Exited(),
		OnReady: func(url string) {
			close(s.ready)
			if onReady != nil {
				onReady(url)
			}
		},
		Logger: s.log,
	})
	if err != nil {
		_, _ = s.owner.Terminate()
		return fmt.Errorf("start %s: %w", s.cfg.Name, err)
	}

	pollCtx, pollCancel := context.WithCancel(context.WithoutCancel(ctx))
	relayCtx, relayCancel := context.WithCancel(context.WithoutCancel(ctx))
	s.pollCancel = pollCancel
	s.relayCancel = relayCancel

	g := new(errgroup.Group)
	g.Go(func() error {
		st := relay.Run(relayCtx, events, relay.NewSlogSink(Logger(), s.cfg.Name))
		if st.Final.Kind.Terminal() && s.monitor.State() == health.Ready && s.loadState() == supervisorRunning {
			s.log.Warn("sidecar exited after becoming ready; not restarting",
				"exit_code", st.Final.ExitCode, "signal", st.Final.Signal)
		}
		return nil
	})
	g.Go(func() error {
		s.monitor.AwaitReady(pollCtx)
		return nil
	})
	s.group = g

	s.started.Store(true)
	// A Shutdown that arrived during Start already marked us stopped and is
	// waiting on startMu; leave that state alone.
	s.state.CompareAndSwap(uint32(supervisorStarting), uint32(supervisorRunning))
	s.log.Info("sidecar supervised", "port", s.port, "pid", proc.Pid(),
		"ready_mode", string(s.cfg.ReadyMode), "budget", s.monitor.Budget())
	return nil
}

// cleanupFailedStart releases whatever a failed Start acquired.
func (s *Supervisor) cleanupFailedStart() {
	if s.procCancel != nil {
		s.procCancel()
	}
	if s.port != 0 {
		s.ports.Release(s.port)
		s.port = 0
	}
	s.lock.Release()
	s.state.Store(uint32(supervisorStopped))
}

// Shutdown stops background work, kills the sidecar and releases the port
// and the lock. Kill failures are logged, never returned. It is safe to call
// repeatedly and concurrently; every call returns after teardown finished.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		defer close(s.stopped)
		prev := supervisorState(s.state.Swap(uint32(supervisorStopped)))
		if prev == supervisorStarting {
			// Start is in progress: wait for it so its fields are final.
			s.log.Debug("shutdown: waiting for start to finish")
		}
		s.startMu.Lock()
		defer s.startMu.Unlock()

		if s.pollCancel != nil {
			s.pollCancel()
		}

		if killed, err := s.owner.Terminate(); err != nil {
			s.log.Warn("shutdown: failed to kill sidecar", "error", err)
		} else if killed {
			s.log.Debug("shutdown: sidecar killed")
		}

		if s.relayCancel != nil {
			s.relayCancel()
		}
		if s.group != nil {
			s.drain()
		}
		if s.procCancel != nil {
			s.procCancel()
		}
		if s.port != 0 {
			s.ports.Release(s.port)
		}
		s.lock.Release()
	})
	<-s.stopped
}

// drain waits for the relay and the monitor, bounded by the drain timeout.
func (s *Supervisor) drain() {
	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	t := time.NewTimer(s.cfg.ShutdownDrainTimeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		s.log.Warn("shutdown: timed out waiting for background tasks; proceeding",
			slog.Duration("timeout", s.cfg.ShutdownDrainTimeout))
	}
}

// Run starts the sidecar and blocks until win is closed or ctx ends, then
// shuts down. It is the window-destroyed hook: the sidecar never outlives
// the window. A Start error is returned with nothing left running.
func (s *Supervisor) Run(ctx context.Context, win window.Window) error {
	if err := s.Start(ctx, win); err != nil {
		return err
	}
	select {
	case <-win.Done():
		s.log.Info("window closed; stopping sidecar")
	case <-ctx.Done():
		s.log.Info("shell interrupted; stopping sidecar", "cause", context.Cause(ctx))
	}
	s.Shutdown()
	return nil
}

// Port returns the sidecar's port, or 0 if Start never succeeded.
func (s *Supervisor) Port() int {
	if !s.started.Load() {
		return 0
	}
	return s.port
}

// URL returns the sidecar's root URL, or "" before Start.
func (s *Supervisor) URL() string {
	if !s.started.Load() {
		return ""
	}
	return s.monitor.URL()
}

// Health returns the monitor state. It is Pending before Start.
func (s *Supervisor) Health() health.State {
	if !s.started.Load() {
		return health.Pending
	}
	return s.monitor.State()
}

// Ready is closed once the sidecar answered its health check. It never
// closes if the sidecar fails to become ready.
func (s *Supervisor) Ready() <-chan struct{} {
	return s.ready
}

// Pid returns the sidecar's process ID while it is supervised, or 0 before
// Start and after Shutdown.
func (s *Supervisor) Pid() int {
	if p, ok := s.owner.Peek(); ok {
		return p.Pid()
	}
	return 0
}

// Stopped is closed once Shutdown has finished its teardown.
func (s *Supervisor) Stopped() <-chan struct{} {
	return s.stopped
}
