package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/notify"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/store"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []*notify.RecordingCompletedEvent
	closed bool
}

func (n *fakeNotifier) Notify(_ context.Context, e *notify.RecordingCompletedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *fakeNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *fakeNotifier) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *fakeNotifier) Events() []*notify.RecordingCompletedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*notify.RecordingCompletedEvent(nil), n.events...)
}

type fixture struct {
	app      *App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	store    *store.Store
	notifier *fakeNotifier
	saved    chan *store.Recording
	failed   chan error
}

func testSettings() *config.Config {
	cfg := config.Default()
	cfg.Tracker.StartupDelay = config.Duration{}
	cfg.Tracker.RefreshRate = config.Duration{Duration: 5 * time.Millisecond}
	cfg.Recording.SampleInterval = config.Duration{Duration: 10 * time.Millisecond}
	return cfg
}

func newFixture(t *testing.T, loader model.Loader) *fixture {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		camera:   capture.NewMockCamera(nil, false),
		detector: detector.NewMockDetector(),
		store:    s,
		notifier: &fakeNotifier{},
		saved:    make(chan *store.Recording, 8),
		failed:   make(chan error, 8),
	}
	f.camera.SetDimensions(64, 48)
	f.detector.SetHands([]detector.Hand{detector.ThumbsUpHand()})

	if loader == nil {
		loader = func(context.Context) (detector.Detector, error) { return f.detector, nil }
	}

	f.app = New(Config{
		Settings: testSettings(),
		Store:    s,
		Notifier: f.notifier,
		Camera:   f.camera,
		Loader:   loader,
	})
	f.app.OnSaved(func(rec *store.Recording, err error) {
		if err != nil {
			f.failed <- err
			return
		}
		f.saved <- rec
	})
	t.Cleanup(func() { f.app.Close() })

	return f
}

func (f *fixture) waitSaved(t *testing.T) *store.Recording {
	t.Helper()
	select {
	case rec := <-f.saved:
		return rec
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a saved recording")
		return nil
	}
}

func (f *fixture) waitForHands(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !f.app.Tracker().Latest().HasHands() {
		if time.Now().After(deadline) {
			t.Fatal("tracker never published hands")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApp_RecordsAndSaves(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.waitForHands(t)

	if err := f.app.StartRecording(recording.Duration(150*time.Millisecond), "namaste"); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}

	saved := f.waitSaved(t)
	if saved.ID == "" || saved.Label != "namaste" {
		t.Errorf("unexpected saved recording: %+v", saved)
	}
	if saved.FrameCount == 0 {
		t.Error("expected frames while a hand was visible")
	}
	if len(saved.Hands) != 1 || saved.Hands[0] != "Right" {
		t.Errorf("Hands = %v, want [Right]", saved.Hands)
	}

	got, err := f.store.Recordings().GetByID(saved.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if err := got.Data.Validate(); err != nil {
		t.Errorf("stored recording invalid: %v", err)
	}
	if got.Data.Duration < 150 {
		t.Errorf("Duration = %d, want >= 150", got.Data.Duration)
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0].RecordingID != saved.ID || events[0].Label != "namaste" {
		t.Errorf("unexpected events: %+v", events)
	}

	timestamps := f.detector.Timestamps()
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			t.Fatalf("inference timestamps not increasing: %v", timestamps)
		}
	}
}

func TestApp_StartRecordingRequiresStart(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.app.StartRecording(recording.Manual, ""); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestApp_ModelUnavailable(t *testing.T) {
	f := newFixture(t, func(context.Context) (detector.Detector, error) {
		return nil, errors.New("model file missing")
	})

	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-f.app.Models().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("model load never settled")
	}
	if !f.app.Models().Unavailable() {
		t.Fatal("expected model to be unavailable")
	}

	err := f.app.StartRecording(recording.Manual, "empty")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("StartRecording() error = %v, want ErrModelUnavailable", err)
	}
	if info := f.app.RecordingInfo(); info.Status != recording.StatusIdle {
		t.Errorf("Status = %s, want idle", info.Status)
	}
	if _, ok := f.app.StopRecording(); ok {
		t.Error("no session should have started")
	}

	select {
	case rec := <-f.saved:
		t.Errorf("empty recording was saved: %+v", rec)
	case <-time.After(100 * time.Millisecond):
	}
	if n := len(f.notifier.Events()); n != 0 {
		t.Errorf("notifier received %d events", n)
	}
	if f.app.Tracker().Armed() {
		t.Error("tracker should never arm without a model")
	}
}

func TestApp_SaveFailure(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := f.app.StartRecording(recording.Preset3s, "lost"); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	// Every later Create fails once the database is gone.
	f.store.Close()
	f.app.StopRecording()

	select {
	case err := <-f.failed:
		if !strings.HasPrefix(err.Error(), "save recording:") {
			t.Errorf("error = %q, want it to name the save", err)
		}
	case rec := <-f.saved:
		t.Fatalf("recording saved on a closed store: %+v", rec)
	case <-time.After(3 * time.Second):
		t.Fatal("save failure was never reported")
	}

	if n := len(f.notifier.Events()); n != 0 {
		t.Errorf("unsaved recording was announced %d times", n)
	}
}

func TestApp_RestartKeepsLabels(t *testing.T) {
	f := newFixture(t, nil)
	f.app.Start(context.Background())

	if err := f.app.StartRecording(recording.Manual, "first"); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if err := f.app.StartRecording(recording.Manual, "second"); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	f.app.StopRecording()

	first, second := f.waitSaved(t), f.waitSaved(t)
	if first.Label != "first" || second.Label != "second" {
		t.Errorf("labels = %q, %q; want first, second", first.Label, second.Label)
	}
	if second.StartTime <= first.StartTime {
		t.Errorf("start times not increasing: %d then %d", first.StartTime, second.StartTime)
	}
}

func TestApp_ResetDiscards(t *testing.T) {
	f := newFixture(t, nil)
	f.app.Start(context.Background())

	f.app.StartRecording(recording.Manual, "discarded")
	f.app.ResetRecording()

	if info := f.app.RecordingInfo(); info.Status != recording.StatusIdle {
		t.Errorf("Status = %s, want idle", info.Status)
	}

	f.app.StartRecording(recording.Manual, "kept")
	f.app.StopRecording()

	if saved := f.waitSaved(t); saved.Label != "kept" {
		t.Errorf("Label = %q, want kept", saved.Label)
	}
	select {
	case extra := <-f.saved:
		t.Errorf("reset session was saved: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	recs, err := f.store.Recordings().List(store.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 stored recording, got %d", len(recs))
	}
}

func TestApp_CloseSavesRunningRecording(t *testing.T) {
	f := newFixture(t, nil)
	f.app.Start(context.Background())
	f.waitForHands(t)

	f.app.StartRecording(recording.Manual, "interrupted")
	time.Sleep(50 * time.Millisecond)

	if err := f.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if saved := f.waitSaved(t); saved.Label != "interrupted" {
		t.Errorf("Label = %q, want interrupted", saved.Label)
	}
	if f.camera.IsOpen() {
		t.Error("camera should be closed")
	}
	if !f.detector.Closed() {
		t.Error("model should be closed")
	}
	if !f.notifier.Closed() {
		t.Error("notifier should be closed")
	}
	if err := f.app.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}
}

func TestApp_StopDetachesCamera(t *testing.T) {
	f := newFixture(t, nil)
	f.app.Start(context.Background())
	f.waitForHands(t)

	f.app.Stop()

	if f.app.IsRunning() || f.camera.IsOpen() {
		t.Error("expected pipeline stopped and camera closed")
	}
	if f.app.Tracker().Latest() != nil {
		t.Error("latest result should be cleared on detach")
	}

	// Restart attaches again
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.waitForHands(t)
}

func TestApp_RedisNotification(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := notify.NewRedis(notify.RedisConfig{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cam := capture.NewMockCamera(nil, false)
	a := New(Config{
		Settings: testSettings(),
		Store:    s,
		Notifier: n,
		Camera:   cam,
		Loader: func(context.Context) (detector.Detector, error) {
			return detector.NewMockDetector(), nil
		},
	})
	defer a.Close()

	saved := make(chan *store.Recording, 1)
	a.OnSaved(func(rec *store.Recording, err error) {
		if err == nil {
			saved <- rec
		}
	})

	a.Start(context.Background())
	a.StartRecording(recording.Manual, "mushti")
	a.StopRecording()

	var rec *store.Recording
	select {
	case rec = <-saved:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for save")
	}

	recent, err := n.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].RecordingID != rec.ID || recent[0].Label != "mushti" {
		t.Errorf("unexpected recent events: %+v", recent)
	}
}

func TestMediaPipeLoader(t *testing.T) {
	t.Run("mock model", func(t *testing.T) {
		d, err := MediaPipeLoader(config.ModelConfig{Mock: true})(context.Background())
		if err != nil {
			t.Fatalf("loader error = %v", err)
		}
		if _, ok := d.(*detector.MockDetector); !ok {
			t.Errorf("expected *detector.MockDetector, got %T", d)
		}
	})

	t.Run("missing service script", func(t *testing.T) {
		mc := config.Default().Model
		mc.ScriptPath = filepath.Join(t.TempDir(), "missing.py")

		_, err := MediaPipeLoader(mc)(context.Background())
		if !errors.Is(err, detector.ErrServiceNotFound) {
			t.Errorf("expected ErrServiceNotFound, got %v", err)
		}
	})
}
