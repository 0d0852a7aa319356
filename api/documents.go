package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mymr-ai/mymr/internal/log"
	"github.com/mymr-ai/mymr/internal/retrieval"
)

// maxDocumentContentBytes bounds a single ingested chunk. Record chunks
// are paragraph-sized; anything larger should be split upstream.
const maxDocumentContentBytes = 64 * 1024

// DocumentStore ingests document chunks. Satisfied by *retrieval.Store.
type DocumentStore interface {
	Add(ctx context.Context, doc retrieval.Document) error
}

// DocumentsHandler handles the document ingest endpoint.
type DocumentsHandler struct {
	store  DocumentStore
	logger log.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(store DocumentStore, logger log.Logger) *DocumentsHandler {
	return &DocumentsHandler{store: store, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.ingest)
}

// IngestRequest is the request body for POST /api/documents.
// ID is optional; a fresh UUID is assigned when absent.
type IngestRequest struct {
	ID           string `json:"id,omitempty"`
	Content      string `json:"content"`
	PatientID    string `json:"patient_id"`
	DocumentType string `json:"document_type,omitempty"`
	URI          string `json:"uri,omitempty"`
}

// IngestResponse is the response body for POST /api/documents.
type IngestResponse struct {
	ID string `json:"id"`
}

// ingest embeds and upserts one document chunk.
func (h *DocumentsHandler) ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}
	if len(req.Content) > maxDocumentContentBytes {
		writeError(w, http.StatusBadRequest, "invalid_request", "content too large")
		return
	}
	if _, err := uuid.Parse(req.PatientID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "patient_id must be a valid UUID")
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	metadata := map[string]string{retrieval.MetaPatientID: req.PatientID}
	if req.DocumentType != "" {
		metadata[retrieval.MetaDocumentType] = req.DocumentType
	}

	doc := retrieval.Document{
		ID:       req.ID,
		Content:  req.Content,
		Metadata: metadata,
		URI:      req.URI,
	}
	if err := h.store.Add(r.Context(), doc); err != nil {
		h.logger.Error("document ingest failed", "id", req.ID, "patient_id", req.PatientID, "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "unable to store document")
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{ID: req.ID})
}
