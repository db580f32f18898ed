// Package core wires the sidecar supervisor together.
//
// A [Supervisor] owns one sidecar for the lifetime of one window. Start takes
// the instance lock, allocates a loopback port, spawns the sidecar with PORT
// and CLIENT_DIST in its environment and parks the handle in a
// [lifecycle.Owner]. Output forwarding and health polling then run in the
// background while Start returns to the caller. Shutdown cancels the
// background work, kills the sidecar exactly once and releases the port and
// the lock. Run ties Shutdown to the window's close event.
package core
