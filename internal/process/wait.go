package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Sentinel errors returned by PollAttempts. Callers match them with errors.Is.
var (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = errors.New("interval must be positive")

	// ErrAttemptsNotPositive indicates a non-positive attempt budget.
	ErrAttemptsNotPositive = errors.New("max attempts must be positive")

	// ErrAttemptsExhausted indicates every attempt in the budget failed.
	ErrAttemptsExhausted = errors.New("attempt budget exhausted")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = errors.New("process exited before becoming ready")
)

// ReadinessCheck probes a process once. attempt is 1-based. It returns true
// when ready and false to keep polling; a non-nil error aborts polling.
type ReadinessCheck func(ctx context.Context, attempt int) (ready bool, err error)

// PollConfig configures PollAttempts.
type PollConfig struct {
	Interval      time.Duration   // Delay before each attempt, including the first
	MaxAttempts   int             // Attempts before giving up
	Name          string          // For logging (e.g., "maude-server")
	Port          int             // For logging context
	Logger        *slog.Logger    // Optional logger (defaults to slog.Default())
	ProcessExited <-chan struct{} // If non-nil, abort as soon as it is closed
}

// PollAttempts calls check once per Interval, strictly sequentially, until it
// reports ready, fails fatally, or MaxAttempts probes have failed. The first
// probe runs one Interval after the call, so the last one starts at
// Budget(Interval, MaxAttempts). The whole loop is bounded by that budget
// plus one Interval for the last probe to answer; running out of time is
// reported as ErrAttemptsExhausted, like running out of attempts. check must
// honor its context. It returns the number of probes issued.
func PollAttempts(ctx context.Context, cfg PollConfig, check ReadinessCheck) (int, error) {
	if cfg.Name == "" {
		return 0, errors.New("poll attempts: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return 0, fmt.Errorf("poll %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.MaxAttempts <= 0 {
		return 0, fmt.Errorf("poll %s: %w", cfg.Name, ErrAttemptsNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// PollUntilContextTimeout invokes the condition sequentially, so attempt
	// needs no synchronization.
	attempt := 0
	deadline := Budget(cfg.Interval, cfg.MaxAttempts) + cfg.Interval
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, deadline, false,
		func(pollCtx context.Context) (bool, error) {
			if cfg.ProcessExited != nil {
				select {
				case <-cfg.ProcessExited:
					return false, fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
				default:
				}
			}

			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if ready {
				log.Debug("poll succeeded", "name", cfg.Name, "port", cfg.Port, "attempt", attempt)
				return true, nil
			}
			if attempt >= cfg.MaxAttempts {
				return false, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, attempt)
			}
			return false, nil
		})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %d attempts in %s", ErrAttemptsExhausted, attempt, deadline)
	}
	if err != nil {
		return attempt, fmt.Errorf("wait for %s readiness on port %d: %w", cfg.Name, cfg.Port, err)
	}
	return attempt, nil
}

// Budget is the time from the start of polling to the last attempt.
func Budget(interval time.Duration, maxAttempts int) time.Duration {
	return interval * time.Duration(maxAttempts)
}
