package sidecarshell

import "github.com/giantswarm/sidecarshell/internal/core"

// shellConfig wraps core.SupervisorConfig, keeping internal/core types out of
// the public API signature.
type shellConfig struct {
	core.SupervisorConfig
}

func (c shellConfig) toCoreConfig() core.SupervisorConfig {
	return c.SupervisorConfig
}

// defaultShellConfig returns a shellConfig with every default applied.
func defaultShellConfig() shellConfig {
	return shellConfig{core.SupervisorConfig{
		Name:                 DefaultName,
		Binary:               DefaultBinary,
		PollInterval:         DefaultPollInterval,
		MaxAttempts:          DefaultMaxAttempts,
		ReadyMode:            DefaultReadyMode,
		StopTimeout:          DefaultStopTimeout,
		ShutdownDrainTimeout: DefaultShutdownDrainTimeout,
		LockWait:             DefaultLockWait,
	}}
}
