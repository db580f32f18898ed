// Package sidecarshell runs a local backend server ("sidecar") for a desktop
// window and keeps the two in step.
//
// A Shell picks a free loopback port, starts the sidecar with PORT and
// CLIENT_DIST in its environment, forwards its output to the logger and
// polls its /health endpoint. When the sidecar answers, the window either
// navigates to it or receives a "server-ready" DOM event. When the window
// closes, the sidecar is killed exactly once.
//
// # Basic Usage
//
//	import "github.com/giantswarm/sidecarshell"
//
//	ctx := context.Background()
//
//	shell := sidecarshell.New(
//	    sidecarshell.WithBinary("maude-server"),
//	    sidecarshell.WithClientDist("/opt/maude/dist"),
//	)
//
//	win, err := sidecarshell.OpenWindow(sidecarshell.WindowConfig{Title: "Maude"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer win.Close()
//
//	// Blocks until the window is closed, then stops the sidecar.
//	if err := shell.Run(ctx, win); err != nil {
//	    log.Fatal(err)
//	}
//
// # Readiness
//
// The sidecar gets up to DefaultMaxAttempts probes, DefaultPollInterval
// apart, the first one interval after spawn. A sidecar that never answers is
// not fatal: a warning is logged and the window stays on its splash page.
//
// # Single Instance
//
// With WithDataDir, a lock file in that directory makes a second shell fail
// Start with ErrAlreadyRunning instead of starting a second sidecar.
package sidecarshell
