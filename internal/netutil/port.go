package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/giantswarm/sidecarshell/internal/sentinel"
)

// ErrNoPortAvailable is returned when the kernel cannot provide a free
// loopback port, or when every port it offers is already reserved here.
const ErrNoPortAvailable = sentinel.Error("no ephemeral port available")

// maxPortRetries bounds how often AllocatePort asks the kernel again after
// receiving a port that is already in the registry.
const maxPortRetries = 20

// PortRegistry tracks ports handed out by this process.
// It is safe for concurrent use.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve registers port and reports whether it was free.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Release removes a port from the registry. Releasing an unknown port is a no-op.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Reserved reports whether port is currently held by the registry.
func (r *PortRegistry) Reserved(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ports[port]
	return ok
}

// AllocatePort returns a free loopback port and registers it. The listening
// socket used to discover the port is closed before AllocatePort returns, so
// the port is ready for the sidecar to bind. Callers must Release the port
// once the sidecar is gone.
func (r *PortRegistry) AllocatePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for range maxPortRetries {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return 0, fmt.Errorf("%w: listen on %s: %v", ErrNoPortAvailable, addr, err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		port := tcpAddr.Port
		reserved := r.reserve(port)

		// Close before returning so the child can bind. A port that is
		// already in the registry stays protected by its other holder.
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close listener after port allocation", "port", port, "error", closeErr)
		}
		if reserved {
			r.log.Debug("allocated sidecar port", "port", port)
			return port, nil
		}
		r.log.Debug("port already in registry, retrying", "port", port)
	}
	return 0, fmt.Errorf("%w: exhausted %d attempts", ErrNoPortAvailable, maxPortRetries)
}
