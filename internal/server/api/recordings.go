package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/recording"
	"github.com/ayusman/mudra/internal/store"
)

// ContentTypeMsgpack is returned for ?format=msgpack downloads.
const ContentTypeMsgpack = "application/msgpack"

// RecordingsHandler handles HTTP requests for stored recordings.
type RecordingsHandler struct {
	store *store.Store
}

// NewRecordingsHandler creates a new RecordingsHandler with the given store.
func NewRecordingsHandler(s *store.Store) *RecordingsHandler {
	return &RecordingsHandler{store: s}
}

type listRecordingsResponse struct {
	Recordings []*store.Recording `json:"recordings"`
}

type updateRecordingRequest struct {
	Label *string `json:"label"`
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RecordingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/recordings or /api/recordings/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPatch:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// list handles GET /api/recordings?label=&hand=&limit=.
func (h *RecordingsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Label:      q.Get("label"),
		Handedness: q.Get("hand"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = limit
	}

	recs, err := h.store.Recordings().List(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recs == nil {
		recs = []*store.Recording{}
	}

	writeJSON(w, http.StatusOK, listRecordingsResponse{Recordings: recs})
}

// get handles GET /api/recordings/{id}. ?format=msgpack returns the raw
// recording in msgpack instead of the JSON envelope.
func (h *RecordingsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, rec)
	case "msgpack":
		var buf bytes.Buffer
		if err := recording.EncodeMsgpack(&buf, rec.Data); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode recording")
			return
		}
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		w.Header().Set("Content-Disposition", `attachment; filename="`+rec.ID+`.msgpack"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, "Unsupported format")
	}
}

// update handles PATCH /api/recordings/{id}; only the label can change.
func (h *RecordingsHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Label == nil {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	if err := h.store.Recordings().UpdateLabel(id, *req.Label); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update recording")
		return
	}

	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}
	rec.Data = nil
	writeJSON(w, http.StatusOK, rec)
}

// delete handles DELETE /api/recordings/{id}.
func (h *RecordingsHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
