package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mymr-ai/mymr/internal/chat"
	"github.com/mymr-ai/mymr/internal/log"
	"github.com/mymr-ai/mymr/internal/retrieval"
)

// maxQueryLogLength bounds how much of a query lands in server logs.
// Queries can carry sensitive clinical detail; logs keep a prefix only.
const maxQueryLogLength = 80

// ChatService runs the chat pipeline. Satisfied by *chat.Service.
type ChatService interface {
	Answer(ctx context.Context, req chat.Request) (*chat.Exchange, error)
	Retrieve(ctx context.Context, req chat.Request) ([]retrieval.Passage, error)
	Fallback() *chat.Exchange
}

// ChatHandler handles the chat and retrieval endpoints.
type ChatHandler struct {
	svc    ChatService
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc ChatService, logger log.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/retrieve", h.handleRetrieve)
}

// ChatRequest is the request body for POST /api/chat and POST /api/retrieve.
type ChatRequest struct {
	Query        string `json:"query"`
	PatientID    string `json:"patient_id"`
	DocumentType string `json:"document_type,omitempty"`
}

// ChatResponse is the response envelope. The exchange travels as a
// single-element array for compatibility with clients that render a
// list of response segments.
type ChatResponse struct {
	CompleteResponse []chat.Exchange `json:"complete_response"`
}

// decodeChatRequest parses and validates the shared request body.
func decodeChatRequest(r *http.Request) (chat.Request, string, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return chat.Request{}, "invalid request body", false
	}
	if req.Query == "" {
		return chat.Request{}, "query is required", false
	}
	if req.PatientID == "" {
		return chat.Request{}, "patient_id is required", false
	}
	if _, err := uuid.Parse(req.PatientID); err != nil {
		return chat.Request{}, "patient_id must be a valid UUID", false
	}
	return chat.Request{
		PatientID:    req.PatientID,
		Query:        req.Query,
		DocumentType: req.DocumentType,
	}, "", true
}

// handleChat runs the full pipeline for one chat turn.
//
// Pipeline failures do not surface as HTTP errors: the client receives a
// well-formed envelope carrying the fixed fallback response, and the cause
// is logged server-side. Only malformed requests get a 4xx.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, msg, ok := decodeChatRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	exchange, err := h.svc.Answer(r.Context(), req)
	if err != nil {
		h.logger.Error("chat pipeline failed",
			"patient_id", req.PatientID,
			"query", truncateQuery(req.Query),
			"error", err,
		)
		exchange = h.svc.Fallback()
	}

	writeJSON(w, http.StatusOK, ChatResponse{CompleteResponse: []chat.Exchange{*exchange}})
}

// RetrieveResponse is the response body for POST /api/retrieve.
type RetrieveResponse struct {
	Passages []retrieval.Passage `json:"passages"`
	Total    int                 `json:"total"`
}

// handleRetrieve runs a retrieval-only search, bypassing classification
// and generation. Intended for debugging retrieval quality.
func (h *ChatHandler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	req, msg, ok := decodeChatRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	passages, err := h.svc.Retrieve(r.Context(), req)
	if err != nil {
		h.logger.Error("retrieval failed",
			"patient_id", req.PatientID,
			"query", truncateQuery(req.Query),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "retrieval_failed", "unable to search patient records")
		return
	}

	writeJSON(w, http.StatusOK, RetrieveResponse{Passages: passages, Total: len(passages)})
}

// truncateQuery shortens a query for logging.
func truncateQuery(q string) string {
	if len(q) <= maxQueryLogLength {
		return q
	}
	return q[:maxQueryLogLength] + "..."
}
