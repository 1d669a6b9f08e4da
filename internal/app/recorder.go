package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/notify"
	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/store"
)

// StartRecording begins a session. A running session is stopped and saved
// first. label is stored with the recording once it completes.
func (a *App) StartRecording(d recording.Duration, label string) error {
	if !a.IsRunning() {
		return ErrNotRunning
	}
	if a.models.Unavailable() {
		return ErrModelUnavailable
	}

	a.ctlMu.Lock()
	defer a.ctlMu.Unlock()

	// Publish the running session before labelsMu is taken so Start
	// never hands a recording to the saver while the label map is locked.
	a.session.Stop()

	// Holding labelsMu across Start keeps the saver from reading the
	// label of this session before it is recorded.
	a.labelsMu.Lock()
	defer a.labelsMu.Unlock()

	if err := a.session.Start(d); err != nil {
		return err
	}
	a.labels[a.session.Info().StartTime] = label
	return nil
}

// StopRecording ends the session. The recording is saved asynchronously.
func (a *App) StopRecording() (*recording.Recording, bool) {
	a.ctlMu.Lock()
	defer a.ctlMu.Unlock()
	return a.session.Stop()
}

// ResetRecording discards the session without saving it.
func (a *App) ResetRecording() {
	a.ctlMu.Lock()
	defer a.ctlMu.Unlock()

	// The label of a discarded session is dropped by the next save.
	a.session.Reset()
}

// RecordingInfo returns the session state.
func (a *App) RecordingInfo() recording.Info {
	return a.session.Info()
}

// LastRecording returns the result of the last stopped session.
func (a *App) LastRecording() *recording.Recording {
	return a.session.Result()
}

// OnSaved registers fn to run after each completed recording has been
// persisted and announced. Without a store nothing is announced and rec.ID
// is empty. When persisting fails err is set and the recording was neither
// stored nor announced.
func (a *App) OnSaved(fn func(rec *store.Recording, err error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onSaved = append(a.onSaved[:len(a.onSaved):len(a.onSaved)], fn)
}

// enqueue hands a completed recording to the saver without blocking on
// session locks.
func (a *App) enqueue(rec *recording.Recording) {
	select {
	case a.completed <- rec:
	case <-a.done:
		a.logger.Warn("recording dropped after close", zap.Int64("start_time", rec.StartTime))
	}
}

func (a *App) runSaver() {
	defer close(a.saverDone)

	for {
		select {
		case rec := <-a.completed:
			a.save(rec)
		case <-a.done:
			for {
				select {
				case rec := <-a.completed:
					a.save(rec)
				default:
					return
				}
			}
		}
	}
}

func (a *App) save(rec *recording.Recording) {
	a.labelsMu.Lock()
	label := a.labels[rec.StartTime]
	// Start times increase strictly, so older entries belong to discarded sessions.
	for start := range a.labels {
		if start <= rec.StartTime {
			delete(a.labels, start)
		}
	}
	a.labelsMu.Unlock()

	stored := &store.Recording{Label: label, Data: rec}

	if a.store == nil {
		a.logger.Info("recording completed",
			zap.String("label", label),
			zap.Int("frames", len(rec.Frames)),
		)
		a.runSaved(stored, nil)
		return
	}

	if err := a.store.Recordings().Create(stored); err != nil {
		a.logger.Error("saving recording failed",
			zap.Int64("start_time", rec.StartTime),
			zap.Error(err),
		)
		a.runSaved(stored, fmt.Errorf("save recording: %w", err))
		return
	}

	a.logger.Info("recording saved",
		zap.String("id", stored.ID),
		zap.String("label", label),
		zap.Int("frames", len(rec.Frames)),
		zap.Int64("duration_ms", rec.Duration),
	)

	event := notify.NewRecordingCompleted(stored.ID, label, stored.Hands, rec)
	if err := a.notifier.Notify(context.Background(), event); err != nil {
		a.logger.Warn("recording notification failed", zap.String("id", stored.ID), zap.Error(err))
	}

	a.runSaved(stored, nil)
}

func (a *App) runSaved(stored *store.Recording, err error) {
	a.mu.RLock()
	fns := a.onSaved
	a.mu.RUnlock()
	for _, fn := range fns {
		fn(stored, err)
	}
}
