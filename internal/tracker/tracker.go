// Package tracker runs continuous hand landmark inference against a live
// video source and publishes the most recent multi-hand result.
package tracker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/scheduler"
)

// DefaultStartupDelay lets a freshly attached video stream settle before the
// first inference.
const DefaultStartupDelay = 100 * time.Millisecond

// Stats counts loop outcomes since the tracker was created.
type Stats struct {
	// Inferences is the number of calls made to the model.
	Inferences int64 `json:"inferences"`
	// Skipped counts iterations whose clock reading was not after the
	// last accepted timestamp.
	Skipped int64 `json:"skipped"`
	// NotReady counts iterations where the video had no current frame.
	NotReady int64 `json:"notReady"`
	// ReadErrors counts frames the source failed to deliver.
	ReadErrors int64 `json:"readErrors"`
	// Failures counts model calls that returned an error.
	Failures int64 `json:"failures"`
	// Published counts results handed to listeners, including empty ones.
	Published int64 `json:"published"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = logging.OrNop(l)
	}
}

// WithStartupDelay sets the pause between arming and the first iteration.
func WithStartupDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.startupDelay = d
		}
	}
}

// WithClock sets the clock used for inference timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.clock = now
		}
	}
}

// Tracker is the per-source detection loop. Each iteration is requested from
// a Scheduler; the pending FrameID is kept so that detaching the source or
// closing the tracker cancels it synchronously.
type Tracker struct {
	models       *model.Manager
	sched        scheduler.Scheduler
	logger       *zap.Logger
	startupDelay time.Duration
	clock        func() time.Time
	stopCh       chan struct{}

	// inferMu serializes timestamp reservation and the model call so the
	// model observes timestamps in the order they were accepted.
	inferMu sync.Mutex

	mu              sync.Mutex
	src             capture.VideoSource
	gen             uint64
	frameID         scheduler.FrameID
	delay           *time.Timer
	lastTimestampMs int64
	latest          *detector.MultiHandLandmarks
	listeners       []func(*detector.MultiHandLandmarks)
	stats           Stats
	closed          bool
}

// New creates a tracker bound to the shared model. It stays idle until the
// model is ready and a source is attached.
func New(models *model.Manager, sched scheduler.Scheduler, opts ...Option) *Tracker {
	t := &Tracker{
		models:          models,
		sched:           sched,
		logger:          zap.NewNop(),
		startupDelay:    DefaultStartupDelay,
		clock:           time.Now,
		stopCh:          make(chan struct{}),
		lastTimestampMs: -1,
	}
	for _, opt := range opts {
		opt(t)
	}

	select {
	case <-models.Done():
	default:
		go t.waitForModel()
	}

	return t
}

func (t *Tracker) waitForModel() {
	select {
	case <-t.models.Done():
		if t.models.Unavailable() {
			t.logger.Warn("hand tracking unavailable", zap.String("error", t.models.State().Err))
			return
		}
		t.arm()
	case <-t.stopCh:
	}
}

// SetSource attaches the video source to track. Passing nil detaches the
// current source, cancels the pending iteration and clears the latest result.
func (t *Tracker) SetSource(src capture.VideoSource) {
	t.mu.Lock()
	if t.closed || t.src == src {
		t.mu.Unlock()
		return
	}

	t.cancelLocked()
	t.src = src
	notify := t.setLatestLocked(nil)
	t.mu.Unlock()

	notify()
	t.arm()
}

// arm schedules the first iteration when a model and a source are both
// present and nothing is scheduled yet.
func (t *Tracker) arm() {
	if t.models.State().Model == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.src == nil || t.frameID != 0 || t.delay != nil {
		return
	}

	gen := t.gen
	if t.startupDelay <= 0 {
		t.scheduleLocked(gen)
		return
	}

	t.delay = time.AfterFunc(t.startupDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		if gen != t.gen {
			return
		}
		t.delay = nil
		t.scheduleLocked(gen)
	})
}

func (t *Tracker) scheduleLocked(gen uint64) {
	t.frameID = t.sched.RequestFrame(func(time.Time) {
		t.tick(gen)
	})
}

// cancelLocked invalidates any scheduled or in-flight iteration.
func (t *Tracker) cancelLocked() {
	t.gen++
	if t.frameID != 0 {
		t.sched.CancelFrame(t.frameID)
		t.frameID = 0
	}
	if t.delay != nil {
		t.delay.Stop()
		t.delay = nil
	}
}

func (t *Tracker) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.frameID = 0
	src := t.src
	t.mu.Unlock()

	if !t.iterate(gen, src) {
		t.logger.Info("hand landmark model released, detection loop stopped")
		return
	}

	t.mu.Lock()
	if gen == t.gen && !t.closed {
		t.scheduleLocked(gen)
	}
	t.mu.Unlock()
}

// iterate runs one inference. It returns false when the model is gone and
// the loop should end.
func (t *Tracker) iterate(gen uint64, src capture.VideoSource) bool {
	m := t.models.State().Model
	if m == nil {
		return false
	}

	if src.ReadyState() < capture.HaveCurrentData {
		t.count(func(s *Stats) { s.NotReady++ })
		return true
	}
	if w, h := src.Dimensions(); w == 0 || h == 0 {
		t.count(func(s *Stats) { s.NotReady++ })
		return true
	}

	t.inferMu.Lock()
	defer t.inferMu.Unlock()

	nowMs := t.clock().UnixMilli()

	t.mu.Lock()
	if nowMs <= t.lastTimestampMs {
		t.stats.Skipped++
		t.mu.Unlock()
		return true
	}
	t.lastTimestampMs = nowMs
	t.mu.Unlock()

	frame, err := src.ReadFrame()
	if err != nil {
		t.logger.Warn("failed to read video frame", zap.Error(err))
		t.count(func(s *Stats) { s.ReadErrors++ })
		return true
	}
	defer frame.Close()

	res, err := m.DetectForVideo(frame, nowMs)
	t.count(func(s *Stats) { s.Inferences++ })
	if err != nil {
		t.logger.Warn("hand landmark inference failed",
			zap.Int64("timestamp_ms", nowMs),
			zap.Error(err),
		)
		t.count(func(s *Stats) { s.Failures++ })
		return true
	}

	t.publish(gen, detector.ToMultiHand(res))
	return true
}

func (t *Tracker) count(fn func(*Stats)) {
	t.mu.Lock()
	fn(&t.stats)
	t.mu.Unlock()
}

// publish replaces the latest result unless the iteration was cancelled.
// A nil result means no hands were detected.
func (t *Tracker) publish(gen uint64, result *detector.MultiHandLandmarks) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	notify := t.setLatestLocked(result)
	t.stats.Published++
	t.mu.Unlock()

	notify()
}

func (t *Tracker) setLatestLocked(result *detector.MultiHandLandmarks) func() {
	t.latest = result
	listeners := t.listeners
	return func() {
		for _, fn := range listeners {
			fn(result)
		}
	}
}

// Latest returns the most recent result, or nil when no hand is visible.
func (t *Tracker) Latest() *detector.MultiHandLandmarks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// OnResult registers fn to receive every published result. Listeners run
// on the detection loop and must not block.
func (t *Tracker) OnResult(fn func(*detector.MultiHandLandmarks)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners[:len(t.listeners):len(t.listeners)], fn)
}

// Stats returns a snapshot of the loop counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Armed reports whether an iteration or the startup delay is pending.
func (t *Tracker) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frameID != 0 || t.delay != nil
}

// Close cancels the loop. It is safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.cancelLocked()
	t.src = nil
	t.latest = nil
	close(t.stopCh)
}
