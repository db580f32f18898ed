package sidecarshell

import (
	"log/slog"

	"github.com/giantswarm/sidecarshell/internal/core"
)

// SetLogger replaces the logger used by the shell and every sidecar it
// supervises. Sidecar output is written through it, stdout at Info and
// stderr at Error, with a "sidecar" attribute.
//
// If l is nil, the logger resets to slog.Default() with a "component"
// attribute. Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently, but supervisors created before the
// call keep the logger they were created with.
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
