package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrTimestampNotIncreasing is returned when a frame timestamp is not strictly
// greater than the timestamp of the previous call.
var ErrTimestampNotIncreasing = errors.New("timestamp must be strictly increasing")

// Detector defines the interface for hand landmark models running in video mode.
type Detector interface {
	// DetectForVideo runs inference on a video frame. timestampMs must be
	// strictly greater than the value passed on the previous call.
	// A result with no hands is not an error.
	DetectForVideo(frame *gocv.Mat, timestampMs int64) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinPresenceConf is the minimum hand presence confidence threshold (0.0-1.0).
	MinPresenceConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the location of mediapipe_service.py.
	ScriptPath string

	// PythonPath overrides the Python interpreter.
	PythonPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        MaxHands,
		MinConfidence:   0.5,
		MinPresenceConf: 0.5,
		MinTrackingConf: 0.5,
	}
}
