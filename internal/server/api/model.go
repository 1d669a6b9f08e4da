package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/model"
	"github.com/ayusman/mudra/internal/tracker"
)

// ModelStatus reports the hand landmark model state.
type ModelStatus interface {
	State() model.State
}

// TrackerStatus reports detection loop counters.
type TrackerStatus interface {
	Stats() tracker.Stats
	Armed() bool
}

// ModelHandler serves GET /api/model.
type ModelHandler struct {
	models  ModelStatus
	tracker TrackerStatus
}

// NewModelHandler creates a ModelHandler. tracker may be nil.
func NewModelHandler(models ModelStatus, t TrackerStatus) *ModelHandler {
	return &ModelHandler{models: models, tracker: t}
}

type modelResponse struct {
	Ready     bool           `json:"ready"`
	IsLoading bool           `json:"isLoading"`
	Error     string         `json:"error,omitempty"`
	Tracking  bool           `json:"tracking"`
	Stats     *tracker.Stats `json:"stats,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := h.models.State()
	resp := modelResponse{
		Ready:     state.Ready(),
		IsLoading: state.IsLoading,
		Error:     state.Err,
	}
	if h.tracker != nil {
		stats := h.tracker.Stats()
		resp.Tracking = h.tracker.Armed()
		resp.Stats = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}
