package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymr-ai/mymr/internal/log"
	"github.com/mymr-ai/mymr/internal/retrieval"
)

// fakeDocumentStore records ingested documents.
type fakeDocumentStore struct {
	err  error
	docs []retrieval.Document
}

func (f *fakeDocumentStore) Add(_ context.Context, doc retrieval.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func postDocument(t *testing.T, h *DocumentsHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ingest(w, req)
	return w
}

func TestDocumentsHandler_Ingest(t *testing.T) {
	store := &fakeDocumentStore{}
	h := NewDocumentsHandler(store, log.NewNop())

	w := postDocument(t, h,
		`{"content": "Lipid panel: LDL 98 mg/dL", "patient_id": "`+testPatientID+`", "document_type": "lab_report", "uri": "records/lab-2026-02.pdf"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID, "server must assign an ID when absent")

	require.Len(t, store.docs, 1)
	doc := store.docs[0]
	assert.Equal(t, resp.ID, doc.ID)
	assert.Equal(t, testPatientID, doc.Metadata[retrieval.MetaPatientID])
	assert.Equal(t, "lab_report", doc.Metadata[retrieval.MetaDocumentType])
	assert.Equal(t, "records/lab-2026-02.pdf", doc.URI)
}

func TestDocumentsHandler_IngestKeepsClientID(t *testing.T) {
	store := &fakeDocumentStore{}
	h := NewDocumentsHandler(store, log.NewNop())

	w := postDocument(t, h,
		`{"id": "chunk-7", "content": "note", "patient_id": "`+testPatientID+`"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.docs, 1)
	assert.Equal(t, "chunk-7", store.docs[0].ID)
	// No document_type given: metadata carries only the patient scope.
	assert.NotContains(t, store.docs[0].Metadata, retrieval.MetaDocumentType)
}

func TestDocumentsHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"content": `},
		{name: "missing content", body: `{"patient_id": "` + testPatientID + `"}`},
		{name: "missing patient id", body: `{"content": "note"}`},
		{name: "non-uuid patient id", body: `{"content": "note", "patient_id": "bob"}`},
		{name: "oversized content", body: `{"content": "` + strings.Repeat("x", maxDocumentContentBytes+1) + `", "patient_id": "` + testPatientID + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeDocumentStore{}
			h := NewDocumentsHandler(store, log.NewNop())

			w := postDocument(t, h, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, store.docs)
		})
	}
}

func TestDocumentsHandler_StoreFailure(t *testing.T) {
	store := &fakeDocumentStore{err: errors.New("embedder down")}
	h := NewDocumentsHandler(store, log.NewNop())

	w := postDocument(t, h,
		`{"content": "note", "patient_id": "`+testPatientID+`"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
