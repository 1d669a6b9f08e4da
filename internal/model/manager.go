// Package model owns the lifecycle of the shared hand landmark model.
//
// A Manager loads the model once per process in the background and exposes
// its readiness to every consumer. A failed load is terminal: the manager
// never retries and dependent features treat the model as unavailable.
package model

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
)

// Loader creates and starts a detector. It is called at most once.
type Loader func(ctx context.Context) (detector.Detector, error)

// State is a snapshot of the manager's observable values.
type State struct {
	Model     detector.Detector
	IsLoading bool
	Err       string
}

// Ready reports whether a model is available.
func (s State) Ready() bool {
	return s.Model != nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for load outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.OrNop(l)
	}
}

// Manager loads a detector exactly once and shares it read-only.
type Manager struct {
	load        Loader
	logger      *zap.Logger
	initialized atomic.Bool
	done        chan struct{}

	mu          sync.Mutex
	state       State
	subscribers []func(State)
	closed      bool
}

// NewManager creates a Manager. Nothing is loaded until Initialize is called.
func NewManager(load Loader, opts ...Option) *Manager {
	m := &Manager{
		load:   load,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
		state:  State{IsLoading: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize starts loading the model in the background. Only the first
// call has any effect; the guard is set before the load begins.
func (m *Manager) Initialize(ctx context.Context) {
	if !m.initialized.CompareAndSwap(false, true) {
		return
	}

	m.logger.Info("loading hand landmark model")
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	var (
		model detector.Detector
		err   error
	)
	if m.load == nil {
		err = ErrNoLoader
	} else {
		model, err = m.load(ctx)
	}

	m.mu.Lock()
	closed := m.closed
	switch {
	case err != nil:
		m.state = State{Err: loadError(err)}
	case closed:
		m.state = State{Err: errClosed}
	default:
		m.state = State{Model: model}
	}
	state := m.state
	subscribers := m.subscribers
	m.subscribers = nil
	m.mu.Unlock()

	if closed && model != nil {
		model.Close()
	}

	switch {
	case err != nil:
		m.logger.Error("hand landmark model unavailable", zap.Error(err))
	case closed:
		m.logger.Info("hand landmark model released after close")
	default:
		m.logger.Info("hand landmark model ready")
	}

	close(m.done)
	for _, fn := range subscribers {
		fn(state)
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done is closed once the load has settled, successfully or not.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Unavailable reports whether loading settled without a model.
// This is permanent for the lifetime of the manager.
func (m *Manager) Unavailable() bool {
	s := m.State()
	return !s.IsLoading && s.Model == nil
}

// Subscribe registers fn to be called once when the load settles.
// If it already settled, fn is called immediately.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	if m.state.IsLoading {
		m.subscribers = append(m.subscribers, fn)
		m.mu.Unlock()
		return
	}
	state := m.state
	m.mu.Unlock()

	fn(state)
}

// Close releases the model. A load still in flight is released as soon as
// it completes. Afterwards the model is reported as unavailable.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	model := m.state.Model
	if model != nil {
		m.state = State{Err: errClosed}
	}
	m.mu.Unlock()

	if model == nil {
		return nil
	}
	return model.Close()
}
