package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymr-ai/mymr/internal/chat"
	"github.com/mymr-ai/mymr/internal/log"
	"github.com/mymr-ai/mymr/internal/memory"
)

// newTestServer wires a full Server with fakes behind every route.
func newTestServer(svc ChatService) *Server {
	return NewServer(nil, svc, memory.NewStore(6), nil, log.NewNop())
}

func TestServer_RoutesChat(t *testing.T) {
	svc := &fakeChatService{exchange: &chat.Exchange{Response: "hello"}}
	srv := newTestServer(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"query": "Hello", "patient_id": "`+testPatientID+`"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.CompleteResponse, 1)
	assert.Equal(t, "hello", resp.CompleteResponse[0].Response)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeChatService{exchange: &chat.Exchange{}})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer(&fakeChatService{exchange: &chat.Exchange{}})

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_HandlerRecoversPanic(t *testing.T) {
	srv := newTestServer(&fakeChatService{exchange: &chat.Exchange{}})

	// nil documents store: the ingest handler will panic on use, and the
	// recovery middleware must turn that into a 500, not a crash.
	req := httptest.NewRequest(http.MethodPost, "/api/documents",
		strings.NewReader(`{"content": "note", "patient_id": "`+testPatientID+`"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
