// Package process spawns and stops the sidecar executable.
//
// Spawn starts a child with an injected environment and returns a Process
// handle plus a channel of Events: one event per stdout or stderr line,
// followed by exactly one terminal event (EventTerminated or EventError),
// after which the channel is closed. Kill sends SIGTERM and escalates to
// SIGKILL after a grace period. PollAttempts is the fixed-interval, bounded
// readiness loop used by the health monitor.
package process
