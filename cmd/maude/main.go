// Command maude opens the Maude desktop window and runs its backend server
// alongside it for as long as the window stays open.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/giantswarm/sidecarshell"
	"github.com/giantswarm/sidecarshell/internal/fileutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "maude:", err)
		os.Exit(1)
	}
}

// flags holds raw flag values. Only flags the user set override the file.
type flags struct {
	configPath   string
	binary       string
	clientDist   string
	readyMode    string
	pollInterval string
	maxAttempts  int
	env          map[string]string
	logLevel     string
	noLock       bool
}

// bind registers the flags on fs.
func (f *flags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "path to config.toml (default ~/.config/maude/config.toml)")
	fs.StringVar(&f.binary, "binary", "", "sidecar executable name or path")
	fs.StringVar(&f.clientDist, "client-dist", "", "frontend assets directory exported as CLIENT_DIST")
	fs.StringVar(&f.readyMode, "ready-mode", "", `what the window does when the sidecar is ready: "navigate" or "event"`)
	fs.StringVar(&f.pollInterval, "poll-interval", "", "delay before each health probe, e.g. 250ms")
	fs.IntVar(&f.maxAttempts, "max-attempts", 0, "health probes before giving up")
	fs.StringToStringVar(&f.env, "env", nil, "extra sidecar environment, KEY=VALUE (repeatable)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&f.noLock, "no-lock", false, "allow more than one shell at a time")
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:           "maude",
		Short:         "Run the Maude desktop shell",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f.bind(root.Flags())

	root.AddCommand(newConfigPathCmd())
	return root
}

// newConfigPathCmd prints where the config file is read from.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-path",
		Short: "Print the default config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := defaultConfigPath()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
}

// resolveConfig loads the config file and applies the flags the user set.
func resolveConfig(fs *pflag.FlagSet, f flags) (config, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return config{}, err
	}

	raw := fileConfig{Env: f.env}
	changed := fs.Changed
	if changed("binary") {
		raw.Binary = f.binary
	}
	if changed("client-dist") {
		raw.ClientDist = f.clientDist
	}
	if changed("ready-mode") {
		raw.ReadyMode = f.readyMode
	}
	if changed("poll-interval") {
		raw.PollInterval = f.pollInterval
	}
	if changed("max-attempts") {
		if f.maxAttempts <= 0 {
			return config{}, fmt.Errorf("--max-attempts must be greater than 0, got %d", f.maxAttempts)
		}
		raw.MaxAttempts = f.maxAttempts
	}
	if changed("log-level") {
		raw.LogLevel = f.logLevel
	}
	if err := cfg.merge(raw); err != nil {
		return config{}, fmt.Errorf("flags: %w", err)
	}
	cfg.NoLock = f.noLock

	if cfg.DataDir == "" {
		if dir, err := fileutil.DataDir(appName); err == nil {
			cfg.DataDir = dir
		}
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	sidecarshell.SetLogger(logger.With("component", "sidecarshell"))

	winCfg := sidecarshell.WindowConfig{
		Title:  cfg.Title,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	if cfg.DataDir != "" {
		winCfg.ProfileDir = filepath.Join(cfg.DataDir, "profile")
	}
	win, err := sidecarshell.OpenWindow(winCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := win.Close(); err != nil {
			logger.Debug("close window", "error", err)
		}
	}()

	shell := sidecarshell.New(cfg.shellOptions()...)
	if err := shell.Run(ctx, win); err != nil {
		return fmt.Errorf("%w%s", err, hint(err))
	}
	return nil
}

// hint suggests a fix for the fatal startup errors users can act on.
func hint(err error) string {
	switch {
	case errors.Is(err, sidecarshell.ErrBinaryNotFound):
		return " (install maude-server next to maude or pass --binary)"
	case errors.Is(err, sidecarshell.ErrAlreadyRunning):
		return " (close the other Maude window or pass --no-lock)"
	default:
		return ""
	}
}
