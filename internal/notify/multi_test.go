package notify

import (
	"context"
	"errors"
	"testing"
)

type countingNotifier struct {
	calls  int
	closed bool
	err    error
}

func (c *countingNotifier) Notify(context.Context, *RecordingCompletedEvent) error {
	c.calls++
	return c.err
}

func (c *countingNotifier) Close() error {
	c.closed = true
	return c.err
}

func TestCombine(t *testing.T) {
	t.Run("no notifiers is Nop", func(t *testing.T) {
		if _, ok := Combine().(Nop); !ok {
			t.Error("expected Nop")
		}
		if _, ok := Combine(nil, nil).(Nop); !ok {
			t.Error("expected Nop for nil notifiers")
		}
	})

	t.Run("single notifier is returned as is", func(t *testing.T) {
		c := &countingNotifier{}
		if got := Combine(nil, c); got != Notifier(c) {
			t.Errorf("expected the notifier itself, got %T", got)
		}
	})

	t.Run("several notifiers fan out", func(t *testing.T) {
		a, b := &countingNotifier{}, &countingNotifier{}
		n := Combine(a, b)

		if err := n.Notify(context.Background(), testEvent()); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if a.calls != 1 || b.calls != 1 {
			t.Errorf("calls = %d, %d; want 1, 1", a.calls, b.calls)
		}
	})
}

func TestMulti_ContinuesAfterFailure(t *testing.T) {
	errBoom := errors.New("boom")
	failing := &countingNotifier{err: errBoom}
	ok := &countingNotifier{}
	m := Multi{failing, ok}

	err := m.Notify(context.Background(), testEvent())
	if !errors.Is(err, errBoom) {
		t.Errorf("expected joined error to contain boom, got %v", err)
	}
	if ok.calls != 1 {
		t.Error("second notifier should still be called")
	}

	if err := m.Close(); !errors.Is(err, errBoom) {
		t.Errorf("Close() error = %v", err)
	}
	if !failing.closed || !ok.closed {
		t.Error("every notifier should be closed")
	}
}
