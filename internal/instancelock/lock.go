package instancelock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/sidecarshell/internal/fileutil"
	"github.com/giantswarm/sidecarshell/internal/sentinel"
)

// ErrAlreadyRunning is returned by Acquire when another shell holds the lock.
const ErrAlreadyRunning = sentinel.Error("another instance is already running")

// FileName is the name of the lock file inside the data directory.
const FileName = "instance.lock"

// DefaultWait is how long Acquire keeps retrying before giving up. A shell
// that was just closed may still be tearing down its sidecar.
const DefaultWait = 2 * time.Second

const retryInterval = 50 * time.Millisecond

// Lock is a held instance lock.
type Lock struct {
	fl  *flock.Flock
	log *slog.Logger
}

// Acquire creates dir if needed and takes the exclusive lock on
// dir/instance.lock, retrying for up to wait. A wait of zero tries once.
func Acquire(ctx context.Context, dir string, wait time.Duration, logger *slog.Logger) (*Lock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	fl := flock.New(path)

	if wait <= 0 {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire instance lock %s: %w", path, err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: lock %s is held", ErrAlreadyRunning, path)
		}
		return &Lock{fl: fl, log: logger}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, retryInterval)
	switch {
	case locked:
		return &Lock{fl: fl, log: logger}, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("acquire instance lock %s: %w", path, ctx.Err())
	case err == nil || errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: lock %s is held", ErrAlreadyRunning, path)
	default:
		return nil, fmt.Errorf("acquire instance lock %s: %w", path, err)
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. The file is left on disk so a concurrent Acquire
// never locks an unlinked inode. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	if err := l.fl.Close(); err != nil {
		l.log.Debug("failed to release instance lock", "path", l.fl.Path(), "err", err)
	}
}
