package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/markopsai/chapii-demo/internal/assistant"
	"github.com/markopsai/chapii-demo/internal/notify"
	"github.com/markopsai/chapii-demo/internal/session"
	"github.com/markopsai/chapii-demo/internal/vapi"
)

type fakeSource struct {
	*session.Emitter
}

func (f *fakeSource) Start(context.Context, string) error { return nil }
func (f *fakeSource) Stop() error                         { return nil }

type fakeAPI struct {
	assistants []vapi.Assistant
}

func (f *fakeAPI) ListAssistants(context.Context) ([]vapi.Assistant, error) {
	return f.assistants, nil
}

func (f *fakeAPI) GetAssistant(_ context.Context, id string) (*vapi.Assistant, error) {
	for i := range f.assistants {
		if f.assistants[i].ID == id {
			return &f.assistants[i], nil
		}
	}
	return nil, errors.New("assistant not found")
}

func newTestServer(assistants ...vapi.Assistant) (*Server, *fakeSource, *assistant.Directory) {
	src := &fakeSource{Emitter: session.NewEmitter()}
	bridge := session.NewBridge(src)
	bridge.Attach()
	dir := assistant.NewDirectory(&fakeAPI{assistants: assistants})
	_ = dir.Refresh(context.Background())
	return New(bridge, dir, notify.New(time.Minute)), src, dir
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestServer_Healthz(t *testing.T) {
	srv, _, _ := newTestServer()
	if w := do(srv, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestServer_GetAssistants(t *testing.T) {
	srv, _, _ := newTestServer(vapi.Assistant{ID: "asst_1", Name: "Greeter"})
	w := do(srv, http.MethodGet, "/api/assistants", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp assistantsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Assistants) != 1 || resp.SelectedID != "asst_1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected error field: %q", resp.Error)
	}
}

func TestServer_GetAssistantByID(t *testing.T) {
	srv, _, _ := newTestServer(vapi.Assistant{ID: "asst_1", Name: "Greeter"})
	w := do(srv, http.MethodGet, "/api/assistants/asst_1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var a vapi.Assistant
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Name != "Greeter" {
		t.Fatalf("unexpected assistant: %+v", a)
	}
	if w := do(srv, http.MethodGet, "/api/assistants/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestServer_SelectAssistant(t *testing.T) {
	srv, _, dir := newTestServer(
		vapi.Assistant{ID: "asst_1", Name: "Greeter"},
		vapi.Assistant{ID: "asst_2", Name: "Closer"},
	)
	if w := do(srv, http.MethodPost, "/api/assistants/select", `{"id":"asst_2"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if dir.SelectedID() != "asst_2" {
		t.Fatalf("selection not applied: %q", dir.SelectedID())
	}
	if w := do(srv, http.MethodPost, "/api/assistants/select", `{"id":"nope"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", w.Code)
	}
	if w := do(srv, http.MethodPost, "/api/assistants/select", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", w.Code)
	}
}

func TestServer_ToggleWithoutAssistant(t *testing.T) {
	srv, _, _ := newTestServer() // empty directory, nothing selected
	w := do(srv, http.MethodPost, "/api/call/toggle", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_ToggleAndState(t *testing.T) {
	srv, src, _ := newTestServer(vapi.Assistant{ID: "asst_1", Name: "Greeter"})
	if w := do(srv, http.MethodPost, "/api/call/toggle", ""); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	src.Emit(session.Event{Type: session.EventCallStart})
	src.Emit(session.Event{Type: session.EventMessage, Message: &session.Message{
		Type: session.MessageTypeTranscript, Role: session.RoleUser,
		TranscriptType: session.TranscriptFinal, Transcript: "my name is Alice Smith, hi",
	}})

	w := do(srv, http.MethodGet, "/api/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != session.StatusActive {
		t.Fatalf("expected active status, got %s", resp.Status)
	}
	if len(resp.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(resp.Messages))
	}
	if resp.Extracted["name"] != "Alice Smith" {
		t.Fatalf("expected extracted name in state, got %v", resp.Extracted)
	}
}

func TestServer_ClearExtracted(t *testing.T) {
	srv, src, _ := newTestServer(vapi.Assistant{ID: "asst_1"})
	src.Emit(session.Event{Type: session.EventMessage, Message: &session.Message{
		Type: session.MessageTypeTranscript, Role: session.RoleUser,
		TranscriptType: session.TranscriptFinal, Transcript: "reach me at a@b.com",
	}})
	if w := do(srv, http.MethodPost, "/api/extracted/clear", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	var resp stateResponse
	w := do(srv, http.MethodGet, "/api/state", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Extracted) != 0 {
		t.Fatalf("expected cleared record, got %v", resp.Extracted)
	}
}
