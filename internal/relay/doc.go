// Package relay forwards the sidecar's output to the shell's log.
//
// Run consumes the event channel produced by process.Spawn: stdout lines go
// to the sink's Info method, stderr lines to Error, both verbatim. A
// termination or error event is logged and ends the relay; it never restarts
// the child. The relay is observability only and is never on the readiness
// path.
package relay
