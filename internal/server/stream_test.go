package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/capture"
)

func TestStreamHandler(t *testing.T) {
	t.Run("writes MJPEG parts", func(t *testing.T) {
		cam := capture.NewMockCamera(nil, false)
		cam.SetDimensions(64, 48)
		cam.Open()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		NewStreamHandler(cam, zap.NewNop()).ServeHTTP(rec, req)

		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
			t.Errorf("unexpected Content-Type %q", ct)
		}
		if !strings.Contains(rec.Body.String(), "Content-Type: image/jpeg") {
			t.Error("expected at least one JPEG part")
		}
		if cam.Reads() == 0 {
			t.Error("expected frames to be read")
		}
	})

	t.Run("waits for a ready source", func(t *testing.T) {
		cam := capture.NewMockCamera(nil, false)

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()

		req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		NewStreamHandler(cam, zap.NewNop()).ServeHTTP(rec, req)

		if rec.Body.Len() != 0 {
			t.Errorf("expected no frames from a closed camera, got %d bytes", rec.Body.Len())
		}
	})

	t.Run("only allows GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
		rec := httptest.NewRecorder()

		NewStreamHandler(capture.NewMockCamera(nil, false), zap.NewNop()).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}
