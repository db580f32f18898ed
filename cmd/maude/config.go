package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/giantswarm/sidecarshell"
	"github.com/giantswarm/sidecarshell/internal/fileutil"
)

// appName names the config and data directories.
const appName = "maude"

// config is the resolved shell configuration: file values over defaults,
// later overridden by flags.
type config struct {
	Binary       string
	ClientDist   string
	ReadyMode    sidecarshell.ReadyMode
	PollInterval time.Duration
	MaxAttempts  int
	Env          map[string]string
	LogLevel     slog.Level
	DataDir      string
	NoLock       bool

	Title  string
	Width  int
	Height int
}

// fileConfig mirrors config.toml.
type fileConfig struct {
	Binary       string            `toml:"binary"`
	ClientDist   string            `toml:"client_dist"`
	ReadyMode    string            `toml:"ready_mode"`
	PollInterval string            `toml:"poll_interval"`
	MaxAttempts  int               `toml:"max_attempts"`
	LogLevel     string            `toml:"log_level"`
	DataDir      string            `toml:"data_dir"`
	Env          map[string]string `toml:"env"`
	Window       struct {
		Title  string `toml:"title"`
		Width  int    `toml:"width"`
		Height int    `toml:"height"`
	} `toml:"window"`
}

func defaultConfig() config {
	return config{
		Binary:       sidecarshell.DefaultBinary,
		ClientDist:   defaultClientDist(),
		ReadyMode:    sidecarshell.DefaultReadyMode,
		PollInterval: sidecarshell.DefaultPollInterval,
		MaxAttempts:  sidecarshell.DefaultMaxAttempts,
		LogLevel:     slog.LevelInfo,
		Title:        "Maude",
	}
}

// defaultClientDist is the bundled frontend next to the executable, if any.
func defaultClientDist() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	dist := filepath.Join(filepath.Dir(exe), "client", "dist")
	if info, err := os.Stat(dist); err == nil && info.IsDir() {
		return dist
	}
	return ""
}

// defaultConfigPath is ~/.config/maude/config.toml or its platform
// equivalent.
func defaultConfigPath() (string, error) {
	dir, err := fileutil.ConfigDir(appName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads path, or the default path when empty, over the
// defaults. A missing file yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	resolved := strings.TrimSpace(path)
	if resolved == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return cfg, nil
		}
		resolved = p
	}
	resolved, err := fileutil.ExpandHome(resolved)
	if err != nil {
		return config{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return config{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	if err := cfg.merge(raw); err != nil {
		return config{}, fmt.Errorf("config %s: %w", resolved, err)
	}
	return cfg, nil
}

// merge copies the non-empty fields of raw into c.
func (c *config) merge(raw fileConfig) error {
	var errs []error

	if v := strings.TrimSpace(raw.Binary); v != "" {
		c.Binary = v
	}
	if v := strings.TrimSpace(raw.ClientDist); v != "" {
		dir, err := fileutil.ExpandHome(v)
		if err != nil {
			errs = append(errs, err)
		}
		c.ClientDist = dir
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		dir, err := fileutil.ExpandHome(v)
		if err != nil {
			errs = append(errs, err)
		}
		c.DataDir = dir
	}
	if raw.ReadyMode != "" {
		m, err := sidecarshell.ParseReadyMode(raw.ReadyMode)
		if err != nil {
			errs = append(errs, fmt.Errorf("ready_mode: %w", err))
		}
		c.ReadyMode = m
	}
	if raw.PollInterval != "" {
		d, err := time.ParseDuration(raw.PollInterval)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("poll_interval: %w", err))
		case d <= 0:
			errs = append(errs, fmt.Errorf("poll_interval must be greater than 0, got %s", d))
		default:
			c.PollInterval = d
		}
	}
	if raw.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max_attempts must not be negative, got %d", raw.MaxAttempts))
	} else if raw.MaxAttempts > 0 {
		c.MaxAttempts = raw.MaxAttempts
	}
	if raw.LogLevel != "" {
		if err := c.LogLevel.UnmarshalText([]byte(raw.LogLevel)); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}
	for k, v := range raw.Env {
		if c.Env == nil {
			c.Env = make(map[string]string, len(raw.Env))
		}
		c.Env[k] = v
	}
	if v := strings.TrimSpace(raw.Window.Title); v != "" {
		c.Title = v
	}
	if raw.Window.Width > 0 {
		c.Width = raw.Window.Width
	}
	if raw.Window.Height > 0 {
		c.Height = raw.Window.Height
	}

	return errors.Join(errs...)
}

// shellOptions turns c into sidecarshell options.
func (c config) shellOptions() []sidecarshell.Option {
	opts := []sidecarshell.Option{
		sidecarshell.WithName(filepath.Base(c.Binary)),
		sidecarshell.WithBinary(c.Binary),
		sidecarshell.WithReadyMode(c.ReadyMode),
		sidecarshell.WithPollInterval(c.PollInterval),
		sidecarshell.WithMaxAttempts(c.MaxAttempts),
	}
	if c.ClientDist != "" {
		opts = append(opts, sidecarshell.WithClientDist(c.ClientDist))
	}
	if c.DataDir != "" && !c.NoLock {
		opts = append(opts, sidecarshell.WithDataDir(c.DataDir))
	}
	for k, v := range c.Env {
		opts = append(opts, sidecarshell.WithEnv(k, v))
	}
	return opts
}
