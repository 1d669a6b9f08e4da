package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when mediapipe_service.py cannot be located.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// ErrNotStarted is returned when inference is requested before Start.
var ErrNotStarted = errors.New("mediapipe service not started")

// MediaPipeDetector implements Detector using a Python MediaPipe HandLandmarker
// subprocess running in VIDEO mode. Frames and results are exchanged as
// length-prefixed msgpack messages over stdin/stdout.
type MediaPipeDetector struct {
	config        Config
	script        string
	python        string
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	stdout        *bufio.Reader
	mu            sync.Mutex
	started       bool
	lastTimestamp int64
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is not launched until Start is called.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.ScriptPath
	if script == "" {
		script = findMediaPipeScript()
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, script)
	}

	python := config.PythonPath
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	if config.MaxHands <= 0 {
		config.MaxHands = MaxHands
	}

	return &MediaPipeDetector{
		config:        config,
		script:        script,
		python:        python,
		lastTimestamp: -1,
	}, nil
}

// Start launches the Python service and blocks until it reports that the
// model is loaded, the service fails, or ctx is done.
func (d *MediaPipeDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil
	}

	cmd := exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-presence-confidence", strconv.FormatFloat(d.config.MinPresenceConf, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Service diagnostics go straight to our stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)

	handshake := make(chan error, 1)
	go func(r io.Reader) {
		var msg readyMessage
		if err := readMessage(r, &msg); err != nil {
			handshake <- err
			return
		}
		if msg.Error != "" {
			handshake <- errors.New(msg.Error)
			return
		}
		if !msg.Ready {
			handshake <- errors.New("service did not report ready")
			return
		}
		handshake <- nil
	}(d.stdout)

	select {
	case err := <-handshake:
		if err != nil {
			d.kill()
			return fmt.Errorf("mediapipe handshake: %w", err)
		}
	case <-ctx.Done():
		d.kill()
		return ctx.Err()
	}

	d.started = true
	d.lastTimestamp = -1
	return nil
}

// DetectForVideo sends a frame to the service and returns the detected hands.
func (d *MediaPipeDetector) DetectForVideo(frame *gocv.Mat, timestampMs int64) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil, ErrNotStarted
	}
	if timestampMs <= d.lastTimestamp {
		return nil, fmt.Errorf("%w: %d <= %d", ErrTimestampNotIncreasing, timestampMs, d.lastTimestamp)
	}
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	req := inferenceRequest{
		TimestampMs: timestampMs,
		Width:       frame.Cols(),
		Height:      frame.Rows(),
		Image:       buf.GetBytes(),
	}

	// The service has seen this timestamp once the request is written
	d.lastTimestamp = timestampMs

	if err := writeMessage(d.stdin, req); err != nil {
		return nil, err
	}

	var resp inferenceResponse
	if err := readMessage(d.stdout, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", resp.Error)
	}

	return resp.toResult(), nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.reset()

	return err
}

// kill terminates a service that never completed its handshake.
func (d *MediaPipeDetector) kill() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
	d.reset()
}

func (d *MediaPipeDetector) reset() {
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
}

func findMediaPipeScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".mudra/scripts/mediapipe_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
// It checks for venv/bin/python relative to the project directory.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".mudra/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
