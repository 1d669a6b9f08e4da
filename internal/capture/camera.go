// Package capture provides live video sources backed by GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// ReadyState describes how much media data a source has available,
// mirroring the HTML media element ready states.
type ReadyState int

const (
	// HaveNothing means no information about the source is available.
	HaveNothing ReadyState = iota
	// HaveMetadata means dimensions are known but no frame has been decoded.
	HaveMetadata
	// HaveCurrentData means a frame for the current position is available.
	HaveCurrentData
	// HaveFutureData means at least the next frame is available too.
	HaveFutureData
	// HaveEnoughData means playback can proceed without stalling.
	HaveEnoughData
)

// String returns the state name.
func (s ReadyState) String() string {
	switch s {
	case HaveNothing:
		return "have_nothing"
	case HaveMetadata:
		return "have_metadata"
	case HaveCurrentData:
		return "have_current_data"
	case HaveFutureData:
		return "have_future_data"
	case HaveEnoughData:
		return "have_enough_data"
	}
	return "unknown"
}

// VideoSource is a live source of video frames.
type VideoSource interface {
	// ReadFrame returns the current frame. The caller closes the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	// ReadyState reports whether a current frame is available.
	ReadyState() ReadyState
	// Dimensions returns the rendered frame size in pixels.
	Dimensions() (width, height int)
}

// Camera is a VideoSource backed by a capture device.
type Camera interface {
	VideoSource
	Open() error
	Close() error
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
	width    int
	height   int
	state    ReadyState
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		fps:      DefaultFPS,
		state:    HaveNothing,
	}
}

// Open opens the camera for capturing frames.
// It requests 640x480 and records the size the device actually granted.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return err
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true
	c.width = int(capture.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(capture.Get(gocv.VideoCaptureFrameHeight))
	c.state = HaveMetadata
	c.prime()

	return nil
}

// prime decodes one frame so the device reports a current frame.
// Must be called with c.mu held.
func (c *cameraImpl) prime() {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		return
	}

	c.width, c.height = mat.Cols(), mat.Rows()
	c.state = HaveCurrentData
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = HaveNothing
	c.width, c.height = 0, 0

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	c.width, c.height = mat.Cols(), mat.Rows()
	c.state = HaveEnoughData

	return &mat, nil
}

// ReadyState reports HaveMetadata until the first frame has been grabbed.
func (c *cameraImpl) ReadyState() ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running && c.state == HaveMetadata {
		c.prime()
	}
	return c.state
}

// Dimensions returns the last known frame size.
func (c *cameraImpl) Dimensions() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.width, c.height
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
