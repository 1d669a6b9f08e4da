package scheduler

import (
	"sync"
	"time"
)

// Refresh dispatches callbacks from a single goroutine driven by a ticker at
// a fixed refresh rate.
type Refresh struct {
	queue
	rate   time.Duration
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewRefresh starts a refresh loop at the given interval.
// A non-positive rate uses DefaultRate.
func NewRefresh(rate time.Duration) *Refresh {
	if rate <= 0 {
		rate = DefaultRate
	}

	r := &Refresh{
		rate:   rate,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.run()
	return r
}

// RequestFrame implements Scheduler.
func (r *Refresh) RequestFrame(cb Callback) FrameID {
	return r.request(cb)
}

// CancelFrame implements Scheduler.
func (r *Refresh) CancelFrame(id FrameID) {
	r.cancel(id)
}

// Rate returns the refresh interval.
func (r *Refresh) Rate() time.Duration {
	return r.rate
}

// Pending returns the number of callbacks waiting for the next refresh.
func (r *Refresh) Pending() int {
	return r.len()
}

// Stop halts the refresh loop and waits for an in-flight dispatch to finish.
// Pending callbacks are dropped. Safe to call more than once.
func (r *Refresh) Stop() {
	r.once.Do(func() {
		close(r.stopCh)
	})
	<-r.doneCh
}

func (r *Refresh) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.rate)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case now := <-ticker.C:
			r.dispatch(now)
		}
	}
}
