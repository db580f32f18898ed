// Package health waits for the sidecar's liveness endpoint.
//
// A Monitor polls GET http://127.0.0.1:{port}/health at a fixed interval for a
// bounded number of attempts. Any 2xx response makes it Ready and runs the
// OnReady action exactly once; connection errors and other statuses only mean
// "not yet". When the budget runs out the monitor becomes Failed and logs a
// warning; the caller decides what, if anything, to show.
package health
