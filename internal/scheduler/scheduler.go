// Package scheduler provides per-paint callback scheduling for frame loops.
//
// A Scheduler runs a callback once on the next display refresh, in the manner
// of requestAnimationFrame. Loops that want to run continuously re-request a
// frame from inside their callback and keep the returned FrameID so teardown
// can cancel the pending iteration.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// DefaultRate is the refresh interval of a 60 Hz display.
const DefaultRate = time.Second / 60

// FrameID identifies a pending callback. The zero value is never issued.
type FrameID uint64

// Callback is invoked with the time of the refresh that dispatched it.
type Callback func(now time.Time)

// Scheduler schedules callbacks for the next refresh.
type Scheduler interface {
	// RequestFrame schedules cb for the next refresh.
	RequestFrame(cb Callback) FrameID
	// CancelFrame removes a pending callback. Unknown or already
	// dispatched ids are ignored.
	CancelFrame(id FrameID)
}

// queue holds pending callbacks. Callbacks requested during a dispatch run on
// the following refresh. The zero value is ready to use.
type queue struct {
	mu          sync.Mutex
	nextID      FrameID
	pending     map[FrameID]Callback
	dispatching map[FrameID]Callback
}

func (q *queue) request(cb Callback) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending == nil {
		q.pending = make(map[FrameID]Callback)
	}
	q.nextID++
	q.pending[q.nextID] = cb
	return q.nextID
}

func (q *queue) cancel(id FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.pending, id)
	delete(q.dispatching, id)
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// dispatch runs every callback pending at the start of the call, serially,
// in request order. A callback cancelled by an earlier one in the same batch
// does not run.
func (q *queue) dispatch(now time.Time) int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.dispatching = batch

	ids := make([]FrameID, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	q.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ran := 0
	for _, id := range ids {
		q.mu.Lock()
		cb, ok := batch[id]
		delete(batch, id)
		q.mu.Unlock()

		if !ok {
			continue
		}
		cb(now)
		ran++
	}

	q.mu.Lock()
	q.dispatching = nil
	q.mu.Unlock()

	return ran
}
