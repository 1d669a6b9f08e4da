package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/notify"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to mudra.yaml (default ~/.mudra/mudra.yaml if present)",
			EnvVars: []string{"MUDRA_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn, error",
			EnvVars: []string{"MUDRA_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "Recordings database path (overrides storage.path)",
		},
	}
}

// cameraFlags are shared by commands that open the camera.
func cameraFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "device",
			Usage: "Camera device index (overrides camera.device)",
			Value: -1,
		},
		&cli.BoolFlag{
			Name:  "mock-model",
			Usage: "Use a detector that never finds hands (no Python required)",
		},
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if c.IsSet("device") && c.Int("device") >= 0 {
		cfg.Camera.Device = c.Int("device")
	}
	if c.Bool("mock-model") {
		cfg.Model.Mock = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitUsage)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return logger, nil
}

// openStore creates the data directory if needed and opens the database.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Storage.Path, err)
	}
	return st, nil
}

// newNotifier combines the configured redis publisher and plugins.
// With neither configured it returns notify.Nop.
func newNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	logger = logging.OrNop(logger)
	var notifiers []notify.Notifier

	if cfg.Notify.Type == "redis" {
		rc := notify.RedisConfig{
			URL:     cfg.Notify.URL,
			Channel: cfg.Notify.Channel,
			Timeout: cfg.Notify.Timeout.Duration,
			Recent:  cfg.Notify.Recent,
			Retries: notify.DefaultRetries,
		}
		if cfg.Notify.Retries != nil {
			rc.Retries = *cfg.Notify.Retries
		}

		n, err := notify.NewRedis(rc)
		if err != nil {
			return nil, cli.Exit(err.Error(), exitUsage)
		}
		notifiers = append(notifiers, n)
	}

	if cfg.Plugins.Enabled {
		mgr := plugin.NewManager(cfg.Plugins.Dir, logger)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		logger.Info("plugins loaded", zap.String("dir", mgr.PluginDir()), zap.Int("count", len(mgr.List())))
		notifiers = append(notifiers, plugin.NewNotifier(mgr, plugin.NewExecutor(cfg.Plugins.Timeout.Duration), logger))
	}

	return notify.Combine(notifiers...), nil
}
