package scheduler

import "time"

// Manual is a Scheduler that only dispatches when Step is called.
// It lets tests drive a frame loop one refresh at a time.
type Manual struct {
	queue
}

// NewManual creates a Manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// RequestFrame implements Scheduler.
func (m *Manual) RequestFrame(cb Callback) FrameID {
	return m.request(cb)
}

// CancelFrame implements Scheduler.
func (m *Manual) CancelFrame(id FrameID) {
	m.cancel(id)
}

// Step runs the callbacks pending now with the given refresh time and
// returns how many ran.
func (m *Manual) Step(now time.Time) int {
	return m.dispatch(now)
}

// Pending returns the number of callbacks waiting for the next Step.
func (m *Manual) Pending() int {
	return m.len()
}
