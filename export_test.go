package sidecarshell

import "time"

// ConfigSnapshot holds a copy of shellConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	Name                 string
	Binary               string
	SearchDirs           []string
	Args                 []string
	ClientDist           string
	Env                  map[string]string
	WorkDir              string
	DataDir              string
	LockWait             time.Duration
	PollInterval         time.Duration
	MaxAttempts          int
	ReadyMode            ReadyMode
	StopTimeout          time.Duration
	ShutdownDrainTimeout time.Duration
}

// ApplyOptionsForTesting creates a default shellConfig, applies the given
// options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultShellConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		Name:                 cfg.Name,
		Binary:               cfg.Binary,
		SearchDirs:           cfg.SearchDirs,
		Args:                 cfg.Args,
		ClientDist:           cfg.ClientDist,
		Env:                  cfg.Env,
		WorkDir:              cfg.WorkDir,
		DataDir:              cfg.DataDir,
		LockWait:             cfg.LockWait,
		PollInterval:         cfg.PollInterval,
		MaxAttempts:          cfg.MaxAttempts,
		ReadyMode:            cfg.ReadyMode,
		StopTimeout:          cfg.StopTimeout,
		ShutdownDrainTimeout: cfg.ShutdownDrainTimeout,
	}
}
