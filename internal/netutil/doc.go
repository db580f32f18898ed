// Package netutil allocates loopback ports for the sidecar.
//
// PortRegistry asks the kernel for an ephemeral port by binding 127.0.0.1:0,
// then closes the listener so the child process can bind the same port. Ports
// handed out by this process are tracked so that two concurrent allocations
// never return the same number. The window between closing the listener and
// the child binding remains open on purpose; a foreign process stealing the
// port there surfaces as a failed health check, not as a retry here.
package netutil
