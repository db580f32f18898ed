package process

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// termGracePeriod is how long the sidecar gets to exit after SIGTERM before
// SIGKILL. It is capped at the stop timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait after SIGKILL was sent or the
// child already exited.
const killDrainTimeout = 10 * time.Second

// drainDone reads from done with a hard upper bound. It returns true and the
// cmd.Wait error if the channel delivered in time.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone sends SIGTERM, schedules SIGKILL after the grace period and
// waits for the single cmd.Wait goroutine to report through done.
//
// Worst-case blocking is timeout + killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited: collect the wait result.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	grace := min(termGracePeriod, timeout)
	killTimer := time.AfterFunc(grace, func() {
		// Kill after exit returns "process already finished"; harmless.
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case err := <-done:
		return expectSignalExit(err, name)
	case <-totalTimer.C:
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
		}
		if err := expectSignalExit(waitErr, name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", name, err)
		}
		return nil
	}
}

// expectSignalExit interprets cmd.Wait's result after a termination signal.
// Exits caused by SIGTERM or SIGKILL, and a clean exit, count as success.
// A non-zero exit code in reaction to SIGTERM is also accepted: many servers
// trap the signal and exit 1 or 143.
func expectSignalExit(err error, name string) error {
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		status, ok := exitErr.Sys().(syscall.WaitStatus)
		if !ok || !status.Signaled() {
			return nil
		}
		if sig := status.Signal(); sig == syscall.SIGTERM || sig == syscall.SIGKILL {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
