package recording

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
)

// Session timing defaults.
const (
	// DefaultSampleInterval gives roughly 30 samples per second.
	DefaultSampleInterval = 33 * time.Millisecond
	// DefaultCountdownInterval is the countdown step for timed sessions.
	DefaultCountdownInterval = time.Second
)

// Status is the session state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRecording Status = "recording"
	StatusStopped   Status = "stopped"
)

// Info is a point-in-time view of a session.
type Info struct {
	Status    Status   `json:"status"`
	Duration  Duration `json:"duration"`
	Countdown *int     `json:"countdown,omitempty"`
	Frames    int      `json:"frames"`
	StartTime int64    `json:"startTime,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logging.OrNop(l)
	}
}

// WithSampleInterval sets the sampling cadence.
func WithSampleInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.sampleInterval = d
		}
	}
}

// WithCountdownInterval sets the countdown step.
func WithCountdownInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.countdownInterval = d
		}
	}
}

// WithClock sets the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.clock = now
		}
	}
}

// Session records the landmark stream into a Recording.
//
// Every timer a session starts (sampling ticker, countdown ticker, auto-stop)
// belongs to one generation. Stop, Reset and a new Start bump the generation
// under the lock, so a tick that fires late finds a stale generation and
// does nothing.
type Session struct {
	logger            *zap.Logger
	sampleInterval    time.Duration
	countdownInterval time.Duration
	clock             func() time.Time
	mailbox           Mailbox

	mu           sync.Mutex
	status       Status
	gen          uint64
	duration     Duration
	start        time.Time
	startMs      int64
	lastStartMs  int64
	frames       []Frame
	result       *Recording
	countdown    int
	hasCountdown bool
	stopCh       chan struct{}
	autoStop     *time.Timer
	onComplete   []func(*Recording)
	onCountdown  []func(int)
}

// NewSession creates an idle session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:            zap.NewNop(),
		sampleInterval:    DefaultSampleInterval,
		countdownInterval: DefaultCountdownInterval,
		clock:             time.Now,
		status:            StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateLandmarks sets the current landmarks. It only assigns; the value is
// read by the next sampling tick while recording.
func (s *Session) UpdateLandmarks(lm *detector.MultiHandLandmarks) {
	s.mailbox.Set(lm)
}

// Landmarks returns the current landmarks.
func (s *Session) Landmarks() *detector.MultiHandLandmarks {
	return s.mailbox.Get()
}

// Start begins a new session. A running session is stopped first and its
// recording published. Start clears the buffer and the previous result.
func (s *Session) Start(d Duration) error {
	if d < 0 {
		return ErrInvalidDuration
	}

	s.mu.Lock()

	var previous *Recording
	var completeFns []func(*Recording)
	if s.status == StatusRecording {
		previous = s.stopLocked()
		completeFns = s.onComplete
	}

	s.gen++
	gen := s.gen

	now := s.clock()
	s.startMs = now.UnixMilli()
	if s.startMs <= s.lastStartMs {
		s.startMs = s.lastStartMs + 1
	}
	s.lastStartMs = s.startMs
	// Frame timestamps and Duration count from StartTime, bumped or not.
	s.start = now.Add(time.Duration(s.startMs-now.UnixMilli()) * time.Millisecond)

	s.frames = make([]Frame, 0, s.expectedFrames(d))
	s.result = nil
	s.duration = d
	s.status = StatusRecording

	stop := make(chan struct{})
	s.stopCh = stop
	go s.runSampler(gen, stop)

	var countdownFns []func(int)
	if !d.IsManual() {
		s.countdown = d.Seconds()
		s.hasCountdown = true
		countdownFns = s.onCountdown
		go s.runCountdown(gen, stop)
		s.autoStop = time.AfterFunc(time.Duration(d), func() {
			s.stopGeneration(gen)
		})
	}
	countdown := s.countdown
	startMs := s.startMs

	s.mu.Unlock()

	if previous != nil {
		for _, fn := range completeFns {
			fn(previous)
		}
	}
	for _, fn := range countdownFns {
		fn(countdown)
	}

	s.logger.Info("recording started",
		zap.String("duration", d.String()),
		zap.Int64("start_time", startMs),
	)
	return nil
}

func (s *Session) expectedFrames(d Duration) int {
	if d.IsManual() {
		return 0
	}
	return int(time.Duration(d)/s.sampleInterval) + 1
}

// Stop ends the session and returns its recording. Only the first call per
// session publishes; later calls return false.
func (s *Session) Stop() (*Recording, bool) {
	s.mu.Lock()
	if s.status != StatusRecording {
		s.mu.Unlock()
		return nil, false
	}
	rec := s.stopLocked()
	fns := s.onComplete
	s.mu.Unlock()

	s.publish(rec, fns)
	return rec, true
}

// stopGeneration is the auto-stop path. It is a no-op if the session it
// was scheduled for already ended.
func (s *Session) stopGeneration(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.status != StatusRecording {
		s.mu.Unlock()
		return
	}
	rec := s.stopLocked()
	fns := s.onComplete
	s.mu.Unlock()

	s.logger.Debug("recording duration elapsed")
	s.publish(rec, fns)
}

func (s *Session) publish(rec *Recording, fns []func(*Recording)) {
	s.logger.Info("recording stopped",
		zap.Int("frames", len(rec.Frames)),
		zap.Int64("duration_ms", rec.Duration),
		zap.Int64("start_time", rec.StartTime),
	)
	for _, fn := range fns {
		fn(rec)
	}
}

// stopLocked cancels every timer of the running session before building the
// recording. The buffer is handed to the recording and not touched again.
func (s *Session) stopLocked() *Recording {
	s.cancelTimersLocked()

	elapsed := s.clock().Sub(s.start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	if n := len(s.frames); n > 0 && s.frames[n-1].Timestamp > elapsed {
		elapsed = s.frames[n-1].Timestamp
	}

	rec := &Recording{
		Frames:    s.frames,
		Duration:  elapsed,
		StartTime: s.startMs,
	}

	s.frames = nil
	s.result = rec
	s.status = StatusStopped
	return rec
}

func (s *Session) cancelTimersLocked() {
	s.gen++
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	if s.autoStop != nil {
		s.autoStop.Stop()
		s.autoStop = nil
	}
	s.countdown = 0
	s.hasCountdown = false
}

// Reset cancels any running session without publishing it and returns to
// idle with no buffer, result or countdown.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimersLocked()
	s.frames = nil
	s.result = nil
	s.duration = Manual
	s.status = StatusIdle
}

func (s *Session) runSampler(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample(gen)
		}
	}
}

// sample appends the current landmarks when at least one hand is visible.
func (s *Session) sample(gen uint64) {
	lm := s.mailbox.Get()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.status != StatusRecording {
		return
	}
	if !lm.HasHands() {
		return
	}

	ts := s.clock().Sub(s.start).Milliseconds()
	if ts < 0 {
		ts = 0
	}
	if n := len(s.frames); n > 0 && ts < s.frames[n-1].Timestamp {
		ts = s.frames[n-1].Timestamp
	}

	s.frames = append(s.frames, Frame{Timestamp: ts, Landmarks: *lm})
}

func (s *Session) runCountdown(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.countdownInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tickCountdown(gen) {
				return
			}
		}
	}
}

// tickCountdown decrements the countdown. It never stops the session.
func (s *Session) tickCountdown(gen uint64) bool {
	s.mu.Lock()
	if gen != s.gen || !s.hasCountdown {
		s.mu.Unlock()
		return false
	}
	if s.countdown > 0 {
		s.countdown--
	}
	value := s.countdown
	fns := s.onCountdown
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
	return value > 0
}

// Status returns the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsRecording reports whether a session is running.
func (s *Session) IsRecording() bool {
	return s.Status() == StatusRecording
}

// Result returns the last recording until the next Start or Reset.
func (s *Session) Result() *Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Countdown returns the remaining seconds of a timed session. ok is false
// when no countdown is set.
func (s *Session) Countdown() (remaining int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown, s.hasCountdown
}

// Info returns a snapshot for status displays.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		Status:   s.status,
		Duration: s.duration,
	}
	if s.hasCountdown {
		c := s.countdown
		info.Countdown = &c
	}
	switch s.status {
	case StatusRecording:
		info.Frames = len(s.frames)
		info.StartTime = s.startMs
	case StatusStopped:
		info.Frames = len(s.result.Frames)
		info.StartTime = s.result.StartTime
	}
	return info
}

// OnComplete registers fn to receive each published recording. Handlers run
// outside the session lock, once per session.
func (s *Session) OnComplete(fn func(*Recording)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = append(s.onComplete[:len(s.onComplete):len(s.onComplete)], fn)
}

// OnCountdown registers fn to receive countdown values, starting with the
// initial value of each timed session.
func (s *Session) OnCountdown(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCountdown = append(s.onCountdown[:len(s.onCountdown):len(s.onCountdown)], fn)
}
