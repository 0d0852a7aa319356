package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mymr-ai/mymr/internal/log"
	"github.com/mymr-ai/mymr/internal/memory"
)

// HistoryHandler handles conversation history endpoints.
type HistoryHandler struct {
	memory *memory.Store
	logger log.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(mem *memory.Store, logger log.Logger) *HistoryHandler {
	return &HistoryHandler{memory: mem, logger: logger}
}

// RegisterRoutes registers history routes on the given mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/chat/history/{patientID}", h.get)
	mux.HandleFunc("DELETE /api/chat/history/{patientID}", h.clear)
	mux.HandleFunc("GET /api/chat/stats", h.stats)
}

// HistoryResponse is the response body for GET /api/chat/history/{patientID}.
type HistoryResponse struct {
	PatientID string           `json:"patient_id"`
	Messages  []memory.Message `json:"messages"`
	Total     int              `json:"total"`
}

// patientIDFromPath extracts and validates the patientID path segment.
func patientIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	patientID := r.PathValue("patientID")
	if _, err := uuid.Parse(patientID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "patient_id must be a valid UUID")
		return "", false
	}
	return patientID, true
}

// get returns the patient's conversation history, oldest first.
// An unknown patient gets an empty list, not a 404: an absent history
// and an empty one are indistinguishable by design.
func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientIDFromPath(w, r)
	if !ok {
		return
	}

	messages := h.memory.History(patientID)
	writeJSON(w, http.StatusOK, HistoryResponse{
		PatientID: patientID,
		Messages:  messages,
		Total:     len(messages),
	})
}

// ClearResponse is the response body for DELETE /api/chat/history/{patientID}.
type ClearResponse struct {
	PatientID string `json:"patient_id"`
	Cleared   bool   `json:"cleared"`
}

// clear drops the patient's conversation history.
func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientIDFromPath(w, r)
	if !ok {
		return
	}

	cleared := h.memory.Clear(patientID)
	h.logger.Info("conversation history cleared", "patient_id", patientID, "existed", cleared)
	writeJSON(w, http.StatusOK, ClearResponse{PatientID: patientID, Cleared: cleared})
}

// stats returns memory store statistics across all patients.
func (h *HistoryHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.memory.Stats())
}
