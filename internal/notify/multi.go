package notify

import (
	"context"
	"errors"
)

// Multi fans an event out to several notifiers.
type Multi []Notifier

// Combine returns a single Notifier for ns, skipping nils.
// No notifiers yields Nop.
func Combine(ns ...Notifier) Notifier {
	var m Multi
	for _, n := range ns {
		if n != nil {
			m = append(m, n)
		}
	}
	switch len(m) {
	case 0:
		return Nop{}
	case 1:
		return m[0]
	}
	return m
}

// Notify delivers to every notifier, even after a failure.
func (m Multi) Notify(ctx context.Context, event *RecordingCompletedEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier.
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = Multi(nil)
