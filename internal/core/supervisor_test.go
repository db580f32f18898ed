package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/sidecarshell/internal/health"
	"github.com/giantswarm/sidecarshell/internal/lifecycle"
	"github.com/giantswarm/sidecarshell/internal/process"
	"github.com/giantswarm/sidecarshell/internal/window"
)

// heldProcess returns the supervised child, failing if none is held.
func heldProcess(t *testing.T, s *Supervisor) *process.Process {
	t.Helper()
	p, ok := s.owner.Peek()
	if !ok {
		t.Fatal("supervisor holds no process")
	}
	return p
}

func waitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %s waiting for %s", timeout, what)
	}
}

func TestNewSupervisor_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("NewSupervisor() with empty config did not panic")
		}
		if !strings.Contains(r.(string), "invalid supervisor config") {
			t.Errorf("panic = %v, want an invalid config message", r)
		}
	}()
	NewSupervisor(SupervisorConfig{})
}

func TestSupervisor_ReadyThenNavigate(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "healthy"))
	win := newFakeWindow()

	if err := s.Start(context.Background(), win); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Shutdown()

	if s.Port() == 0 {
		t.Fatal("Port() = 0 after Start")
	}
	waitClosed(t, s.Ready(), 5*time.Second, "ready")

	if got := s.Health(); got != health.Ready {
		t.Errorf("Health() = %v, want ready", got)
	}
	navigated, emitted := win.snapshot()
	if len(navigated) != 1 || navigated[0] != s.URL() {
		t.Errorf("navigated = %v, want [%s]", navigated, s.URL())
	}
	if len(emitted) != 0 {
		t.Errorf("emitted = %v, want none in navigate mode", emitted)
	}
}

func TestSupervisor_ReadyThenEmit(t *testing.T) {
	t.Parallel()

	cfg := helperSupervisorConfig(t, "healthy")
	cfg.ReadyMode = window.ModeEvent
	s := NewSupervisor(cfg)
	win := newFakeWindow()

	if err := s.Start(context.Background(), win); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Shutdown()
	waitClosed(t, s.Ready(), 5*time.Second, "ready")

	// OnReady closes Ready before calling the window; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, emitted := win.snapshot()
		if len(emitted) == 1 {
			if emitted[0] != window.ReadyEvent {
				t.Fatalf("emitted %q, want %q", emitted[0], window.ReadyEvent)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("emitted = %v, want one %s event", emitted, window.ReadyEvent)
		}
		time.Sleep(10 * time.Millisecond)
	}
	win.mu.Lock()
	payload := win.payloads[0]
	win.mu.Unlock()
	if payload != true {
		t.Errorf("payload = %v, want true", payload)
	}
	if navigated, _ := win.snapshot(); len(navigated) != 0 {
		t.Errorf("navigated = %v, want none in event mode", navigated)
	}
}

func TestSupervisor_InjectsEnvironment(t *testing.T) {
	t.Parallel()

	cfg := helperSupervisorConfig(t, "healthy")
	cfg.ClientDist = filepath.Join(t.TempDir(), "dist")
	cfg.Env["MAUDE_EXTRA"] = "42"
	s := NewSupervisor(cfg)

	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Shutdown()
	waitClosed(t, s.Ready(), 5*time.Second, "ready")

	tests := map[string]string{
		EnvClientDist: cfg.ClientDist,
		"MAUDE_EXTRA": "42",
	}
	for name, want := range tests {
		resp, err := http.Get(s.URL() + "env?name=" + name)
		if err != nil {
			t.Fatalf("GET env %s: %v", name, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if string(body) != want {
			t.Errorf("sidecar sees %s=%q, want %q", name, body, want)
		}
	}
}

func TestSupervisor_UnhealthyStaysFailed(t *testing.T) {
	t.Parallel()

	cfg := helperSupervisorConfig(t, "unhealthy")
	cfg.MaxAttempts = 4
	s := NewSupervisor(cfg)
	win := newFakeWindow()

	if err := s.Start(context.Background(), win); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Shutdown()

	deadline := time.Now().Add(5 * time.Second)
	for s.Health() == health.Pending {
		if time.Now().After(deadline) {
			t.Fatal("monitor still pending after budget")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := s.Health(); got != health.Failed {
		t.Fatalf("Health() = %v, want failed", got)
	}
	if navigated, emitted := win.snapshot(); len(navigated)+len(emitted) != 0 {
		t.Errorf("window actions after failure: navigated=%v emitted=%v", navigated, emitted)
	}
	select {
	case <-s.Ready():
		t.Error("Ready() closed for a sidecar that never became healthy")
	default:
	}
	// A readiness timeout is not fatal: the sidecar keeps running.
	select {
	case <-heldProcess(t, s).Exited():
		t.Error("sidecar exited after readiness timeout")
	default:
	}
}

func TestSupervisor_CrashBeforeReady(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "crash"))
	win := newFakeWindow()

	if err := s.Start(context.Background(), win); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Shutdown()

	waitClosed(t, heldProcess(t, s).Exited(), 5*time.Second, "crash")
	deadline := time.Now().Add(2 * time.Second)
	for s.Health() == health.Pending && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.Health(); got != health.Failed {
		t.Errorf("Health() = %v, want failed", got)
	}
}

func TestSupervisor_StartErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		binary string
		want   error
	}{
		"missing bare name": {
			binary: "sidecarshell-no-such-sidecar",
			want:   ErrBinaryNotFound,
		},
		"missing path": {
			binary: filepath.Join("testdata", "does-not-exist"),
			want:   ErrBinaryNotFound,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := helperSupervisorConfig(t, "healthy")
			cfg.Binary = tc.binary
			cfg.SearchDirs = []string{t.TempDir()}
			s := NewSupervisor(cfg)

			err := s.Start(context.Background(), newFakeWindow())
			if !errors.Is(err, tc.want) {
				t.Fatalf("Start() error = %v, want %v", err, tc.want)
			}
			if s.group != nil {
				t.Error("background tasks started after a failed Start")
			}
			if s.owner.State() != lifecycle.Uninitialized {
				t.Errorf("owner state = %v, want uninitialized", s.owner.State())
			}
			if s.Port() != 0 || s.URL() != "" || s.Health() != health.Pending {
				t.Error("accessors report a sidecar after a failed Start")
			}
			if got := s.Start(context.Background(), nil); !errors.Is(got, ErrStopped) {
				t.Errorf("second Start() error = %v, want ErrStopped", got)
			}
			s.Shutdown()
		})
	}
}

func TestSupervisor_StartTwice(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "healthy"))
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown()

	if err := s.Start(context.Background(), nil); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestSupervisor_ShutdownKillsOnce(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "healthy"))
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	waitClosed(t, s.Ready(), 5*time.Second, "ready")
	proc := heldProcess(t, s)
	port := s.Port()
	if s.Pid() != proc.Pid() {
		t.Errorf("Pid() = %d, want %d", s.Pid(), proc.Pid())
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(s.Shutdown)
	}
	wg.Wait()

	waitClosed(t, proc.Exited(), time.Second, "sidecar exit")
	waitClosed(t, s.Stopped(), time.Second, "stopped")
	if s.owner.State() != lifecycle.Terminated {
		t.Errorf("owner state = %v, want terminated", s.owner.State())
	}
	if _, ok := s.owner.Peek(); ok {
		t.Error("owner still holds a handle after Shutdown")
	}
	if pid := s.Pid(); pid != 0 {
		t.Errorf("Pid() after Shutdown = %d, want 0", pid)
	}
	if s.ports.Reserved(port) {
		t.Errorf("port %d still reserved after Shutdown", port)
	}
	if err := s.Start(context.Background(), nil); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Shutdown error = %v, want ErrStopped", err)
	}
}

func TestSupervisor_ShutdownBeforeStart(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "healthy"))
	s.Shutdown()

	if err := s.Start(context.Background(), nil); !errors.Is(err, ErrStopped) {
		t.Fatalf("Start() after Shutdown error = %v, want ErrStopped", err)
	}
}

func TestSupervisor_RunStopsOnWindowClose(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "healthy"))
	win := newFakeWindow()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background(), win) }()

	waitClosed(t, s.Ready(), 5*time.Second, "ready")
	proc := heldProcess(t, s)
	_ = win.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after the window closed")
	}
	waitClosed(t, proc.Exited(), time.Second, "sidecar exit")
}

func TestSupervisor_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(helperSupervisorConfig(t, "healthy"))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, newFakeWindow()) }()

	waitClosed(t, s.Ready(), 5*time.Second, "ready")
	proc := heldProcess(t, s)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	waitClosed(t, proc.Exited(), time.Second, "sidecar exit")
}

func TestSupervisor_RunReturnsStartError(t *testing.T) {
	t.Parallel()

	cfg := helperSupervisorConfig(t, "healthy")
	cfg.Binary = "sidecarshell-no-such-sidecar"
	cfg.SearchDirs = []string{t.TempDir()}

	err := NewSupervisor(cfg).Run(context.Background(), newFakeWindow())
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("Run() error = %v, want ErrBinaryNotFound", err)
	}
}

func TestSupervisor_InstanceLock(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	cfg := helperSupervisorConfig(t, "healthy")
	cfg.DataDir = dataDir

	first := NewSupervisor(cfg)
	if err := first.Start(context.Background(), nil); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}

	second := NewSupervisor(cfg)
	if err := second.Start(context.Background(), nil); !errors.Is(err, ErrAlreadyRunning) {
		first.Shutdown()
		t.Fatalf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
	if second.owner.State() != lifecycle.Uninitialized {
		t.Error("second supervisor spawned a sidecar despite the lock")
	}

	first.Shutdown()

	third := NewSupervisor(cfg)
	if err := third.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start() after the first shut down error: %v", err)
	}
	third.Shutdown()
}
