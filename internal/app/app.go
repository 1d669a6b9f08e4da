// Package app wires the capture pipeline together: camera, landmark model,
// detection loop, recording session, persistence and notification.
package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/notify"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/scheduler"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tracker"
)

// ErrNotRunning is returned when recording is requested before Start.
var ErrNotRunning = errors.New("capture pipeline is not running")

// ErrClosed is returned by operations on a closed App.
var ErrClosed = errors.New("app is closed")

// ErrModelUnavailable is returned when recording is requested after the
// model failed to load. Every frame would be empty.
var ErrModelUnavailable = model.ErrUnavailable

// Config holds the application collaborators. Only Settings is required;
// nil collaborators get production defaults (or none, for Store and Notifier).
type Config struct {
	Settings  *config.Config
	Logger    *zap.Logger
	Store     *store.Store
	Notifier  notify.Notifier
	Camera    capture.Camera
	Loader    model.Loader
	Scheduler scheduler.Scheduler
}

// App is the main application that owns the capture pipeline.
type App struct {
	settings *config.Config
	logger   *zap.Logger
	camera   capture.Camera
	models   *model.Manager
	sched    scheduler.Scheduler
	refresh  *scheduler.Refresh // owned scheduler, nil when injected
	tracker  *tracker.Tracker
	session  *recording.Session
	store    *store.Store
	notifier notify.Notifier

	// ctlMu serializes session control so labels line up with sessions.
	ctlMu sync.Mutex

	labelsMu sync.Mutex
	labels   map[int64]string

	completed chan *recording.Recording
	done      chan struct{}
	saverDone chan struct{}

	mu      sync.RWMutex
	running bool
	closed  bool
	onSaved []func(*store.Recording, error)
}

// New creates a new App with the given configuration. Nothing is opened
// until Start.
func New(cfg Config) *App {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := logging.OrNop(cfg.Logger)

	a := &App{
		settings:  settings,
		logger:    logger.Named("app"),
		camera:    cfg.Camera,
		sched:     cfg.Scheduler,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		labels:    make(map[int64]string),
		completed: make(chan *recording.Recording, 16),
		done:      make(chan struct{}),
		saverDone: make(chan struct{}),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(settings.Camera.Device)
	}
	a.camera.SetFPS(settings.Camera.FPS)

	if a.notifier == nil {
		a.notifier = notify.Nop{}
	}

	if a.sched == nil {
		a.refresh = scheduler.NewRefresh(settings.Tracker.RefreshRate.Duration)
		a.sched = a.refresh
	}

	loader := cfg.Loader
	if loader == nil {
		loader = MediaPipeLoader(settings.Model)
	}
	a.models = model.NewManager(loader, model.WithLogger(logger.Named("model")))

	a.tracker = tracker.New(a.models, a.sched,
		tracker.WithLogger(logger.Named("tracker")),
		tracker.WithStartupDelay(settings.Tracker.StartupDelay.Duration),
	)

	a.session = recording.NewSession(
		recording.WithLogger(logger.Named("recording")),
		recording.WithSampleInterval(settings.Recording.SampleInterval.Duration),
	)

	a.tracker.OnResult(a.session.UpdateLandmarks)
	a.session.OnComplete(a.enqueue)

	go a.runSaver()

	return a
}

// Start opens the camera, begins loading the model and attaches the camera
// to the detection loop. ctx bounds the model load.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.running {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.models.Initialize(ctx)
	a.tracker.SetSource(a.camera)
	a.running = true

	w, h := a.camera.Dimensions()
	a.logger.Info("capture pipeline started",
		zap.Int("device", a.settings.Camera.Device),
		zap.Int("width", w),
		zap.Int("height", h),
	)
	return nil
}

// Stop detaches the camera and releases it. A running recording is stopped
// and saved.
func (a *App) Stop() {
	a.StopRecording()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}

	a.tracker.SetSource(nil)
	if err := a.camera.Close(); err != nil {
		a.logger.Warn("closing camera", zap.Error(err))
	}
	a.running = false

	a.logger.Info("capture pipeline stopped")
}

// Close stops the pipeline, waits for pending saves and releases the model,
// scheduler and notifier. The store belongs to the caller.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.tracker.Close()
	if a.refresh != nil {
		a.refresh.Stop()
	}

	close(a.done)
	<-a.saverDone

	return errors.Join(a.models.Close(), a.notifier.Close())
}

// IsRunning reports whether the camera is attached.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Models returns the model manager.
func (a *App) Models() *model.Manager {
	return a.models
}

// Tracker returns the detection loop.
func (a *App) Tracker() *tracker.Tracker {
	return a.tracker
}

// Session returns the recording session.
func (a *App) Session() *recording.Session {
	return a.session
}

// Settings returns the effective configuration.
func (a *App) Settings() *config.Config {
	return a.settings
}

// Server builds the HTTP server for this app.
func (a *App) Server(staticDir string) *server.Server {
	return server.New(server.Config{
		StaticDir:       staticDir,
		Logger:          a.logger,
		Store:           a.store,
		Source:          a.camera,
		Models:          a.models,
		Tracker:         a.tracker,
		Recorder:        a,
		DefaultDuration: a.settings.RecordingDuration(),
		Landmarks:       a.tracker,
		Countdown:       a.session,
	})
}
