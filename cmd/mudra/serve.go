package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

const (
	shutdownTimeout = 5 * time.Second
	trayRefresh     = 250 * time.Millisecond
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the capture pipeline with the HTTP API",
		Flags: append(cameraFlags(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.addr)",
			},
			&cli.StringFlag{
				Name:  "static",
				Usage: "Directory of static viewer files (overrides server.static_dir)",
			},
			&cli.BoolFlag{
				Name:  "tray",
				Usage: "Show a system tray menu for recording",
			},
		),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dir := c.String("static"); dir != "" {
		cfg.Server.StaticDir = dir
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(app.Config{
		Settings: cfg,
		Logger:   logger,
		Store:    st,
		Notifier: notifier,
	})
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	srv := a.Server(cfg.Server.StaticDir)
	if cfg.Server.StaticDir != "" {
		logger.Info("serving static files", zap.String("dir", cfg.Server.StaticDir))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if c.Bool("tray") {
		go func() {
			select {
			case <-ctx.Done():
			case <-serveErr:
			}
			tray.Quit()
		}()
		runTray(ctx, a, cfg, logger, stop)
	} else {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runTray blocks on the tray event loop until Quit is chosen or ctx ends.
func runTray(ctx context.Context, a *app.App, cfg *config.Config, logger *zap.Logger, quit func()) {
	t := tray.New()

	t.OnRecord(func(d recording.Duration) {
		if err := a.StartRecording(d, ""); err != nil {
			logger.Warn("tray record failed", zap.Error(err))
		}
		t.SetStatus(a.RecordingInfo())
	})
	t.OnStop(func() {
		a.StopRecording()
		t.SetStatus(a.RecordingInfo())
	})
	t.OnOpen(func() {
		if err := openBrowser(viewerURL(cfg.Server.Addr)); err != nil {
			logger.Warn("open browser failed", zap.Error(err))
		}
	})
	t.OnQuit(quit)

	a.Models().Subscribe(func(s model.State) {
		if !s.Ready() {
			logger.Warn("recording disabled", zap.String("reason", s.Err))
			t.SetRecordable(false)
		}
	})

	a.OnSaved(func(_ *store.Recording, err error) {
		if err != nil {
			logger.Warn("tray recording not saved", zap.Error(err))
		}
		t.SetStatus(a.RecordingInfo())
	})

	go func() {
		ticker := time.NewTicker(trayRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetStatus(a.RecordingInfo())
			}
		}
	}()

	t.Run()
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(dir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
