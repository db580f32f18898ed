package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/giantswarm/sidecarshell/internal/process"
)

// Path is the liveness endpoint the sidecar must serve.
const Path = "/health"

// Defaults mirror the desktop shell's startup budget: 40 probes, 250ms apart.
const (
	DefaultInterval    = 250 * time.Millisecond
	DefaultMaxAttempts = 40
)

// requestTimeout bounds a single probe. Probes are also capped at the poll
// interval so a sidecar that accepts but never answers cannot stretch the
// cadence. A probe that runs out of time counts as not ready.
const requestTimeout = 2 * time.Second

// Config configures a Monitor.
type Config struct {
	Name        string        // sidecar name for logs
	Port        int           // sidecar port on 127.0.0.1
	Interval    time.Duration // zero uses DefaultInterval
	MaxAttempts int           // zero uses DefaultMaxAttempts

	// OnReady runs once, from the monitor goroutine, after the first 2xx.
	OnReady func(url string)

	// Exited, when non-nil, aborts polling as soon as it is closed.
	Exited <-chan struct{}

	// BaseURL overrides http://127.0.0.1:{Port}. Tests point it at an
	// httptest server.
	BaseURL string

	// Client overrides the probe HTTP client.
	Client *http.Client

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

func (c Config) validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if c.BaseURL == "" && (c.Port <= 0 || c.Port > 65535) {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Interval < 0 {
		errs = append(errs, errors.New("interval must not be negative"))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, errors.New("max attempts must not be negative"))
	}
	return errors.Join(errs...)
}

// Monitor tracks the readiness of one sidecar. AwaitReady may be called once;
// State and Err may be read from any goroutine.
type Monitor struct {
	cfg          Config
	baseURL      string
	client       *http.Client
	probeTimeout time.Duration
	log          *slog.Logger

	state   atomic.Int32
	err     atomic.Pointer[error]
	started atomic.Bool
}

// New validates cfg and returns a Pending monitor.
func New(cfg Config) (*Monitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid health monitor config: %w", err)
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				// Each probe opens a fresh connection so failed early
				// attempts do not leave idle sockets behind.
				DisableKeepAlives: true,
			},
			Timeout: requestTimeout,
		}
	}
	return &Monitor{
		cfg:          cfg,
		baseURL:      baseURL,
		client:       client,
		probeTimeout: min(requestTimeout, cfg.Interval),
		log:          log,
	}, nil
}

// URL is the address the UI navigates to once ready.
func (m *Monitor) URL() string {
	return m.baseURL + "/"
}

// Budget is the longest AwaitReady polls before giving up.
func (m *Monitor) Budget() time.Duration {
	return process.Budget(m.cfg.Interval, m.cfg.MaxAttempts)
}

// State returns the current state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Err returns why the monitor failed, or nil.
func (m *Monitor) Err() error {
	if p := m.err.Load(); p != nil {
		return *p
	}
	return nil
}

// settle moves Pending to s. It reports false if the state already moved.
func (m *Monitor) settle(s State, err error) bool {
	if !m.state.CompareAndSwap(int32(Pending), int32(s)) {
		return false
	}
	if err != nil {
		m.err.Store(&err)
	}
	return true
}

// AwaitReady polls until ready, budget exhaustion, child exit, or ctx ends,
// and returns the final state. Probe failures are never returned. Calling
// AwaitReady a second time returns the current state without polling.
func (m *Monitor) AwaitReady(ctx context.Context) State {
	if !m.started.CompareAndSwap(false, true) {
		return m.State()
	}
	defer m.client.CloseIdleConnections()

	healthURL := m.baseURL + Path
	start := time.Now()

	attempts, err := process.PollAttempts(ctx, process.PollConfig{
		Interval:      m.cfg.Interval,
		MaxAttempts:   m.cfg.MaxAttempts,
		Name:          m.cfg.Name,
		Port:          m.cfg.Port,
		Logger:        m.log,
		ProcessExited: m.cfg.Exited,
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		return m.probe(checkCtx, healthURL, attempt), nil
	})
	elapsed := time.Since(start)

	if err != nil {
		m.settle(Failed, err)
		switch {
		case errors.Is(err, process.ErrAttemptsExhausted):
			m.log.Warn("sidecar failed to become ready",
				"name", m.cfg.Name, "port", m.cfg.Port, "attempts", attempts,
				"budget", m.Budget(), "elapsed", elapsed)
		case errors.Is(err, process.ErrProcessExited):
			m.log.Warn("sidecar exited before becoming ready",
				"name", m.cfg.Name, "port", m.cfg.Port, "attempts", attempts)
		default:
			m.log.Debug("health monitor stopped", "name", m.cfg.Name, "error", err)
		}
		return Failed
	}

	if m.settle(Ready, nil) {
		m.log.Info("sidecar ready", "name", m.cfg.Name, "port", m.cfg.Port,
			"attempts", attempts, "elapsed", elapsed)
		if m.cfg.OnReady != nil {
			m.cfg.OnReady(m.URL())
		}
	}
	return Ready
}

// probe issues one GET and reports whether it returned 2xx.
func (m *Monitor) probe(ctx context.Context, url string, attempt int) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		m.log.Debug("health probe request", "attempt", attempt, "error", err)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		if m.log.Enabled(ctx, slog.LevelDebug) {
			m.log.Debug("health probe attempt", "port", m.cfg.Port, "attempt", attempt, "error", err)
		}
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) // best-effort drain
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	if m.log.Enabled(ctx, slog.LevelDebug) {
		m.log.Debug("health probe attempt", "port", m.cfg.Port, "attempt", attempt, "status", resp.StatusCode)
	}
	return false
}
