package api

import (
	"encoding/json"
	"net/http"
)

// Toggle switches detection on and off.
type Toggle interface {
	SetEnabled(enabled bool)
	IsEnabled() bool
}

type detectionRequest struct {
	Enabled *bool `json:"enabled"`
}

type detectionResponse struct {
	Enabled bool `json:"enabled"`
}

// DetectionHandler serves GET and PUT /api/detection.
type DetectionHandler struct {
	toggle Toggle
}

// NewDetectionHandler creates a DetectionHandler controlling t.
func NewDetectionHandler(t Toggle) *DetectionHandler {
	return &DetectionHandler{toggle: t}
}

func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.toggle.IsEnabled()})
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *DetectionHandler) update(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.toggle.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.toggle.IsEnabled()})
}
