package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/recording"
)

func testEvent() *RecordingCompletedEvent {
	rec := &recording.Recording{
		StartTime: 1_700_000_000_000,
		Duration:  3000,
		Frames: []recording.Frame{{
			Timestamp: 33,
			Landmarks: detector.MultiHandLandmarks{Hands: []detector.Hand{detector.ThumbsUpHand()}},
		}},
	}
	return NewRecordingCompleted("rec-001", "namaste", []string{"Right"}, rec)
}

// asyncReceive reads one message from the subscriber. Must be called before
// Notify because miniredis delivers pub/sub messages synchronously.
func asyncReceive(sub *miniredis.Subscriber) <-chan miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func waitMessage(t *testing.T, ch <-chan miniredis.PubsubMessage) miniredis.PubsubMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return miniredis.PubsubMessage{}
	}
}

func TestNewRecordingCompleted(t *testing.T) {
	e := testEvent()

	if e.EventType != EventRecordingCompleted {
		t.Errorf("EventType = %s", e.EventType)
	}
	if e.StartTime != 1_700_000_000_000 || e.DurationMs != 3000 || e.FrameCount != 1 {
		t.Errorf("metadata not copied: %+v", e)
	}
	if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC 3339: %v", e.Timestamp, err)
	}

	empty := NewRecordingCompleted("x", "", nil, &recording.Recording{})
	if empty.Hands == nil {
		t.Error("Hands should encode as an empty list")
	}
}

func TestRedisNotifier_Notify(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(DefaultChannel)
	ch := asyncReceive(sub)

	if err := n.Notify(t.Context(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	msg := waitMessage(t, ch)
	if msg.Channel != DefaultChannel {
		t.Errorf("expected channel %q, got %q", DefaultChannel, msg.Channel)
	}

	var received RecordingCompletedEvent
	if err := json.Unmarshal([]byte(msg.Message), &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.RecordingID != "rec-001" || received.Label != "namaste" {
		t.Errorf("unexpected event: %+v", received)
	}
	if len(received.Hands) != 1 || received.Hands[0] != "Right" {
		t.Errorf("Hands = %v", received.Hands)
	}
}

func TestRedisNotifier_CustomChannel(t *testing.T) {
	mr := miniredis.RunT(t)

	channel := "studio:recordings"
	n, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr(), Channel: channel})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	sub := mr.NewSubscriber()
	sub.Subscribe(channel)
	ch := asyncReceive(sub)

	if err := n.Notify(t.Context(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if msg := waitMessage(t, ch); msg.Channel != channel {
		t.Errorf("expected channel %q, got %q", channel, msg.Channel)
	}
}

func TestRedisNotifier_Recent(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr(), Recent: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	for _, id := range []string{"a", "b", "c"} {
		e := testEvent()
		e.RecordingID = id
		if err := n.Notify(t.Context(), e); err != nil {
			t.Fatalf("notify %s: %v", id, err)
		}
	}

	events, err := n.Recent(t.Context(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 || events[0].RecordingID != "c" || events[1].RecordingID != "b" {
		t.Errorf("recent events = %+v, want [c b]", events)
	}

	got, _ := mr.List(DefaultRecentKey)
	if len(got) != 2 {
		t.Errorf("recent list length = %d, want 2", len(got))
	}
}

func TestRedisNotifier_RecentDisabled(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr(), Recent: -1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	if err := n.Notify(t.Context(), testEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if mr.Exists(DefaultRecentKey) {
		t.Error("recent list should not be written when disabled")
	}
}

func TestRedisNotifier_ExhaustsRetries(t *testing.T) {
	n, err := NewRedis(RedisConfig{
		URL:     "redis://127.0.0.1:1",
		Retries: 2,
		Timeout: 100 * time.Millisecond,
		Backoff: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	if err := n.Notify(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestRedisNotifier_ContextCanceled(t *testing.T) {
	n, err := NewRedis(RedisConfig{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := n.Notify(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNewRedis_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedisConfig
	}{
		{name: "missing URL", cfg: RedisConfig{}},
		{name: "invalid URL", cfg: RedisConfig{URL: "not-a-redis-url"}},
		{name: "negative retries", cfg: RedisConfig{URL: "redis://localhost:6379", Retries: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRedis(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewRedis_Defaults(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = n.Close() }()

	if n.config.Channel != DefaultChannel {
		t.Errorf("Channel = %q, want %q", n.config.Channel, DefaultChannel)
	}
	if n.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", n.config.Timeout, DefaultTimeout)
	}
	if n.config.Recent != DefaultRecent {
		t.Errorf("Recent = %d, want %d", n.config.Recent, DefaultRecent)
	}
}

func TestRedisNotifier_Close(t *testing.T) {
	mr := miniredis.RunT(t)

	n, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr(), Retries: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := n.Notify(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Errorf("Nop.Notify() = %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Nop.Close() = %v", err)
	}
}
