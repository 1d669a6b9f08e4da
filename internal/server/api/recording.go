package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/recording"
)

// Recorder controls the live recording session.
type Recorder interface {
	// StartRecording begins a session. label is attached when it is saved.
	StartRecording(d recording.Duration, label string) error
	StopRecording() (*recording.Recording, bool)
	ResetRecording()
	RecordingInfo() recording.Info
	LastRecording() *recording.Recording
}

// RecordingHandler serves /api/recording and its start, stop and reset actions.
type RecordingHandler struct {
	recorder        Recorder
	defaultDuration recording.Duration
}

// NewRecordingHandler creates a RecordingHandler. Requests without a
// duration use def.
func NewRecordingHandler(rec Recorder, def recording.Duration) *RecordingHandler {
	return &RecordingHandler{recorder: rec, defaultDuration: def}
}

type startRecordingRequest struct {
	Duration string `json:"duration"`
	Label    string `json:"label"`
}

type stopRecordingResponse struct {
	Stopped   bool                 `json:"stopped"`
	Recording *recording.Recording `json:"recording,omitempty"`
}

// ServeHTTP routes /api/recording, /api/recording/{start,stop,reset,result}.
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/recording")
	action = strings.Trim(action, "/")

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.recorder.RecordingInfo())
	case "result":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.result(w)
	case "start", "stop", "reset":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch action {
		case "start":
			h.start(w, r)
		case "stop":
			h.stop(w)
		case "reset":
			h.recorder.ResetRecording()
			writeJSON(w, http.StatusOK, h.recorder.RecordingInfo())
		}
	default:
		writeError(w, http.StatusNotFound, "Unknown recording action")
	}
}

// start handles POST /api/recording/start. An empty body uses the default duration.
func (h *RecordingHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	d := h.defaultDuration
	if req.Duration != "" {
		parsed, err := recording.ParseDuration(req.Duration)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		d = parsed
	}

	if err := h.recorder.StartRecording(d, req.Label); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, h.recorder.RecordingInfo())
}

// stop handles POST /api/recording/stop. Stopping an idle session is not an error.
func (h *RecordingHandler) stop(w http.ResponseWriter) {
	rec, ok := h.recorder.StopRecording()
	writeJSON(w, http.StatusOK, stopRecordingResponse{Stopped: ok, Recording: rec})
}

// result handles GET /api/recording/result.
func (h *RecordingHandler) result(w http.ResponseWriter) {
	rec := h.recorder.LastRecording()
	if rec == nil {
		writeError(w, http.StatusNotFound, "No recording available")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
