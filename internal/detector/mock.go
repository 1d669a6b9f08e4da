package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results and records every
// timestamp it was called with.
type MockDetector struct {
	mu         sync.Mutex
	hands      []Hand
	err        error
	timestamps []int64
	closed     bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by DetectForVideo.
func (m *MockDetector) SetHands(hands []Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by DetectForVideo.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// DetectForVideo returns the pre-configured hands or error.
func (m *MockDetector) DetectForVideo(frame *gocv.Mat, timestampMs int64) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timestamps = append(m.timestamps, timestampMs)

	if m.err != nil {
		return nil, m.err
	}
	return ResultFor(m.hands...), nil
}

// Timestamps returns every timestamp DetectForVideo was called with.
func (m *MockDetector) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]int64, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// Calls returns the number of DetectForVideo calls.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timestamps)
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ResultFor builds a raw Result for the given hands, as the model would
// report them (one handedness category per hand with a high score).
func ResultFor(hands ...Hand) *Result {
	res := &Result{
		Landmarks:  make([][]Landmark, len(hands)),
		Handedness: make([][]Category, len(hands)),
	}

	for i, h := range hands {
		points := make([]Landmark, len(h.Landmarks))
		copy(points, h.Landmarks)
		res.Landmarks[i] = points

		if h.Handedness != "" && h.Handedness != UnknownHandedness {
			res.Handedness[i] = []Category{{Index: i, Score: 0.95, CategoryName: h.Handedness}}
		}
	}

	return res
}

// ThumbsUpHand returns a preset right hand with the thumb extended upward
// and the other fingers curled.
func ThumbsUpHand() Hand {
	points := make([]Landmark, NumLandmarks)

	points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	points[ThumbCMC] = Landmark{X: 0.55, Y: 0.75, Z: 0.0}
	points[ThumbMCP] = Landmark{X: 0.58, Y: 0.65, Z: 0.0}
	points[ThumbIP] = Landmark{X: 0.58, Y: 0.50, Z: 0.0}
	points[ThumbTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	points[IndexMCP] = Landmark{X: 0.55, Y: 0.70, Z: -0.02}
	points[IndexPIP] = Landmark{X: 0.55, Y: 0.68, Z: -0.05}
	points[IndexDIP] = Landmark{X: 0.52, Y: 0.70, Z: -0.04}
	points[IndexTip] = Landmark{X: 0.50, Y: 0.72, Z: -0.02}

	points[MiddleMCP] = Landmark{X: 0.50, Y: 0.68, Z: -0.02}
	points[MiddlePIP] = Landmark{X: 0.50, Y: 0.66, Z: -0.05}
	points[MiddleDIP] = Landmark{X: 0.47, Y: 0.68, Z: -0.04}
	points[MiddleTip] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}

	points[RingMCP] = Landmark{X: 0.45, Y: 0.70, Z: -0.02}
	points[RingPIP] = Landmark{X: 0.45, Y: 0.68, Z: -0.05}
	points[RingDIP] = Landmark{X: 0.42, Y: 0.70, Z: -0.04}
	points[RingTip] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}

	points[PinkyMCP] = Landmark{X: 0.40, Y: 0.72, Z: -0.02}
	points[PinkyPIP] = Landmark{X: 0.40, Y: 0.70, Z: -0.05}
	points[PinkyDIP] = Landmark{X: 0.37, Y: 0.72, Z: -0.04}
	points[PinkyTip] = Landmark{X: 0.35, Y: 0.74, Z: -0.02}

	return Hand{Landmarks: points, Handedness: "Right"}
}

// OpenPalmHand returns a preset left hand with all fingers extended.
func OpenPalmHand() Hand {
	points := make([]Landmark, NumLandmarks)

	points[Wrist] = Landmark{X: 0.5, Y: 0.8, Z: 0.0}

	points[ThumbCMC] = Landmark{X: 0.45, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = Landmark{X: 0.38, Y: 0.70, Z: 0.03}
	points[ThumbIP] = Landmark{X: 0.32, Y: 0.65, Z: 0.03}
	points[ThumbTip] = Landmark{X: 0.27, Y: 0.60, Z: 0.03}

	points[IndexMCP] = Landmark{X: 0.45, Y: 0.68, Z: 0.0}
	points[IndexPIP] = Landmark{X: 0.43, Y: 0.55, Z: 0.0}
	points[IndexDIP] = Landmark{X: 0.42, Y: 0.45, Z: 0.0}
	points[IndexTip] = Landmark{X: 0.42, Y: 0.35, Z: 0.0}

	points[MiddleMCP] = Landmark{X: 0.50, Y: 0.66, Z: 0.0}
	points[MiddlePIP] = Landmark{X: 0.50, Y: 0.52, Z: 0.0}
	points[MiddleDIP] = Landmark{X: 0.50, Y: 0.40, Z: 0.0}
	points[MiddleTip] = Landmark{X: 0.50, Y: 0.28, Z: 0.0}

	points[RingMCP] = Landmark{X: 0.55, Y: 0.68, Z: 0.0}
	points[RingPIP] = Landmark{X: 0.57, Y: 0.55, Z: 0.0}
	points[RingDIP] = Landmark{X: 0.58, Y: 0.45, Z: 0.0}
	points[RingTip] = Landmark{X: 0.58, Y: 0.35, Z: 0.0}

	points[PinkyMCP] = Landmark{X: 0.60, Y: 0.70, Z: 0.0}
	points[PinkyPIP] = Landmark{X: 0.63, Y: 0.60, Z: 0.0}
	points[PinkyDIP] = Landmark{X: 0.65, Y: 0.50, Z: 0.0}
	points[PinkyTip] = Landmark{X: 0.66, Y: 0.42, Z: 0.0}

	return Hand{Landmarks: points, Handedness: "Left"}
}
