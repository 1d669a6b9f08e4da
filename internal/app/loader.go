package app

import (
	"context"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/model"
)

// MediaPipeLoader returns a loader that launches the MediaPipe service and
// waits for its handshake. With Mock set it yields a detector that never
// finds hands.
func MediaPipeLoader(mc config.ModelConfig) model.Loader {
	if mc.Mock {
		return func(context.Context) (detector.Detector, error) {
			return detector.NewMockDetector(), nil
		}
	}

	return func(ctx context.Context) (detector.Detector, error) {
		d, err := detector.NewMediaPipeDetector(mc.Detector())
		if err != nil {
			return nil, err
		}

		if mc.LoadTimeout.Duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, mc.LoadTimeout.Duration)
			defer cancel()
		}

		if err := d.Start(ctx); err != nil {
			return nil, err
		}
		return d, nil
	}
}
