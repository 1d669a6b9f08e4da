package model

import (
	"errors"
	"fmt"
)

// ErrNoLoader is reported when a Manager is initialized without a Loader.
var ErrNoLoader = errors.New("no model loader configured")

// ErrUnavailable is returned by consumers that need a model after loading
// settled without one.
var ErrUnavailable = errors.New("hand landmark model unavailable")

const errClosed = "hand landmark model closed"

func loadError(err error) string {
	return fmt.Sprintf("failed to load hand landmark model: %v", err)
}
