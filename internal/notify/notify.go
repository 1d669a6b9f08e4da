// Package notify publishes recording completion events to downstream
// systems. Only metadata is published; frames stay in the local store.
package notify

import (
	"context"
	"time"

	"github.com/ayusman/mudra/internal/recording"
)

// EventRecordingCompleted is the event type of every published event.
const EventRecordingCompleted = "recording_completed"

// RecordingCompletedEvent is the payload published when a recording is saved.
type RecordingCompletedEvent struct {
	EventType   string   `json:"event_type"`
	RecordingID string   `json:"recording_id"`
	Label       string   `json:"label,omitempty"`
	StartTime   int64    `json:"start_time"`
	DurationMs  int64    `json:"duration_ms"`
	FrameCount  int      `json:"frame_count"`
	Hands       []string `json:"hands"`
	Timestamp   string   `json:"timestamp"` // RFC 3339
}

// NewRecordingCompleted builds the event for a stored recording.
func NewRecordingCompleted(id, label string, hands []string, rec *recording.Recording) *RecordingCompletedEvent {
	if hands == nil {
		hands = []string{}
	}
	return &RecordingCompletedEvent{
		EventType:   EventRecordingCompleted,
		RecordingID: id,
		Label:       label,
		StartTime:   rec.StartTime,
		DurationMs:  rec.Duration,
		FrameCount:  len(rec.Frames),
		Hands:       hands,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// Notifier publishes recording events.
type Notifier interface {
	// Notify publishes the event. Must respect context cancellation.
	Notify(ctx context.Context, event *RecordingCompletedEvent) error
	// Close releases notifier resources.
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, *RecordingCompletedEvent) error { return nil }
func (Nop) Close() error                                           { return nil }

var _ Notifier = Nop{}
