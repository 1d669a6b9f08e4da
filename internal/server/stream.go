package server

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

const (
	streamInterval = 66 * time.Millisecond // ~15 FPS
	streamRetry    = 100 * time.Millisecond
)

// StreamHandler serves MJPEG frames from a video source.
type StreamHandler struct {
	source capture.VideoSource
	logger *zap.Logger
}

// NewStreamHandler creates a new StreamHandler with the given source.
func NewStreamHandler(source capture.VideoSource, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{source: source, logger: logger}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		wait := streamInterval
		if err := h.writeFrame(w); err != nil {
			wait = streamRetry
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(wait):
		}
	}
}

func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	if h.source.ReadyState() < capture.HaveCurrentData {
		return capture.ErrCameraNotOpen
	}

	frame, err := h.source.ReadFrame()
	if err != nil {
		return err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	frame.Close()
	if err != nil {
		h.logger.Debug("jpeg encode failed", zap.Error(err))
		return err
	}
	defer buf.Close()

	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
	w.Write(buf.GetBytes())
	fmt.Fprintf(w, "\r\n")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
