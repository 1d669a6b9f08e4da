package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/notify"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/store"
)

const (
	modelWait = 60 * time.Second
	saveWait  = 10 * time.Second
)

// saveResult is what the app reports once a session has been persisted.
type saveResult struct {
	rec *store.Recording
	err error
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record one session from the camera without the HTTP API",
		Flags: append(cameraFlags(),
			&cli.StringFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Session length: 3s, 5s, 10s, any duration, or manual (stop with Ctrl-C)",
			},
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "Label stored with the recording",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Also write the recording to this file (.json or .msgpack)",
			},
			&cli.BoolFlag{
				Name:  "no-store",
				Usage: "Do not save the recording to the database",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the countdown bar",
			},
		),
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	d := cfg.RecordingDuration()
	if raw := c.String("duration"); raw != "" {
		if d, err = recording.ParseDuration(raw); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	out := c.String("out")
	if out != "" {
		if _, err := codecFor(out); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var st *store.Store
	if !c.Bool("no-store") {
		if st, err = openStore(cfg); err != nil {
			return err
		}
		defer st.Close()
	}

	var notifier notify.Notifier = notify.Nop{}
	if st != nil {
		if notifier, err = newNotifier(cfg, logger); err != nil {
			return err
		}
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

	saved := make(chan saveResult, 1)
	a.OnSaved(func(rec *store.Recording, err error) { saved <- saveResult{rec, err} })

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	if err := waitForModel(ctx, a); err != nil {
		return err
	}

	bar := newCountdownBar(a, d, c.Bool("quiet"))
	if err := a.StartRecording(d, c.String("label")); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	if d.IsManual() {
		fmt.Fprintln(c.App.ErrWriter, "Recording... press Ctrl-C to stop")
	}

	var res saveResult
	select {
	case res = <-saved:
	case <-ctx.Done():
		a.StopRecording()
		select {
		case res = <-saved:
		case <-time.After(saveWait):
			return cli.Exit("timed out saving recording", exitFailure)
		}
	}
	if bar != nil {
		bar.SetCurrent(bar.Total())
		bar.Finish()
	}
	if res.err != nil {
		return res.err
	}
	rec := res.rec

	if out != "" {
		if err := writeRecording(out, rec.Data); err != nil {
			return err
		}
		logger.Info("recording written", zap.String("path", out))
	}

	fmt.Fprintf(c.App.Writer, "%s\t%d frames\t%dms\t%s\n",
		orDash(rec.ID), rec.FrameCount, rec.DurationMs, orDash(strings.Join(rec.Hands, ",")))
	return nil
}

// waitForModel blocks until the model settles. An unavailable model is a
// distinct exit code since every frame would be empty.
func waitForModel(ctx context.Context, a *app.App) error {
	select {
	case <-a.Models().Done():
	case <-ctx.Done():
		return cli.Exit("interrupted while loading the hand landmark model", exitFailure)
	case <-time.After(modelWait):
		return cli.Exit("timed out loading the hand landmark model", exitModelUnavailable)
	}

	if a.Models().Unavailable() {
		return cli.Exit(a.Models().State().Err, exitModelUnavailable)
	}
	return nil
}

// newCountdownBar shows a progress bar that follows the session countdown.
// Manual sessions have no countdown and get no bar.
func newCountdownBar(a *app.App, d recording.Duration, quiet bool) *pb.ProgressBar {
	if quiet || d.IsManual() {
		return nil
	}

	total := d.Seconds()
	bar := pb.New(total)
	bar.SetWriter(os.Stderr)
	bar.Start()

	a.Session().OnCountdown(func(remaining int) {
		bar.SetCurrent(int64(total - remaining))
	})
	return bar
}

// codecFor picks the file format from the extension.
func codecFor(path string) (func(*bytes.Buffer, *recording.Recording) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return func(b *bytes.Buffer, r *recording.Recording) error { return recording.EncodeJSON(b, r) }, nil
	case ".msgpack", ".mpk":
		return func(b *bytes.Buffer, r *recording.Recording) error { return recording.EncodeMsgpack(b, r) }, nil
	}
	return nil, fmt.Errorf("unsupported output extension %q (use .json or .msgpack)", filepath.Ext(path))
}

func writeRecording(path string, rec *recording.Recording) error {
	encode, err := codecFor(path)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	var buf bytes.Buffer
	if err := encode(&buf, rec); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
