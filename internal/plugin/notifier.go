package plugin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/notify"
)

// Notifier delivers recording events to every subscribed plugin in turn.
type Notifier struct {
	manager  *Manager
	executor *Executor
	logger   *zap.Logger
}

// NewNotifier creates a Notifier over the plugins in manager.
func NewNotifier(manager *Manager, executor *Executor, logger *zap.Logger) *Notifier {
	return &Notifier{
		manager:  manager,
		executor: executor,
		logger:   logging.OrNop(logger),
	}
}

// Notify runs each plugin that handles the event. A failing plugin does not
// stop the others; all failures are returned joined.
func (n *Notifier) Notify(ctx context.Context, event *notify.RecordingCompletedEvent) error {
	var errs []error
	for _, p := range n.manager.For(event.EventType) {
		req := &Request{
			Event:     event.EventType,
			Recording: event,
			Config:    p.Manifest.Config,
		}

		resp, err := n.executor.Execute(ctx, p, req)
		if err == nil && !resp.Success {
			err = fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error)
		}
		if err != nil {
			n.logger.Warn("plugin failed",
				zap.String("plugin", p.Manifest.Name),
				zap.String("recording_id", event.RecordingID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}

		n.logger.Debug("plugin notified",
			zap.String("plugin", p.Manifest.Name),
			zap.String("recording_id", event.RecordingID),
		)
	}
	return errors.Join(errs...)
}

// Close is a no-op; plugins are not long-lived.
func (n *Notifier) Close() error {
	return nil
}

var _ notify.Notifier = (*Notifier)(nil)
