package sidecarshell

import (
	"context"

	"github.com/giantswarm/sidecarshell/internal/core"
)

var _ Shell = (*shellWrapper)(nil)

// shellWrapper adapts core.Supervisor to Shell. The supervisor is a named
// field so callers cannot type-assert their way to its internals.
type shellWrapper struct {
	sup *core.Supervisor
}

func (w *shellWrapper) Start(ctx context.Context, win Window) error {
	return w.sup.Start(ctx, win)
}

func (w *shellWrapper) Run(ctx context.Context, win Window) error {
	return w.sup.Run(ctx, win)
}

func (w *shellWrapper) Shutdown() {
	w.sup.Shutdown()
}

func (w *shellWrapper) Port() int {
	return w.sup.Port()
}

func (w *shellWrapper) URL() string {
	return w.sup.URL()
}

func (w *shellWrapper) Health() HealthState {
	return w.sup.Health()
}

func (w *shellWrapper) Ready() <-chan struct{} {
	return w.sup.Ready()
}

func (w *shellWrapper) Pid() int {
	return w.sup.Pid()
}

func (w *shellWrapper) Stopped() <-chan struct{} {
	return w.sup.Stopped()
}

// New returns a Shell configured by opts. It performs no I/O; the sidecar is
// started by Start or Run.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Shell interface by design for testability (mockable).
func New(opts ...Option) Shell {
	cfg := defaultShellConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &shellWrapper{sup: core.NewSupervisor(cfg.toCoreConfig())}
}
