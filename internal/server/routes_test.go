package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lazypower/tabwarden/internal/config"
	"github.com/lazypower/tabwarden/internal/engine"
	"github.com/lazypower/tabwarden/internal/host"
	"github.com/lazypower/tabwarden/internal/llm"
	"github.com/lazypower/tabwarden/internal/store"
)

func testServer(t *testing.T) (*Server, *engine.Engine, *host.Bridge) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	bridge := host.NewBridge()
	eng := engine.New(db, bridge, bridge, bridge)
	eng.Settings = cfg.Get

	return New(db, eng, bridge, cfg, "test"), eng, bridge
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := testServer(t)
	w := get(t, s, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["extension"] != false {
		t.Errorf("extension = %v, want false before first event", resp["extension"])
	}
}

func TestEventFlow(t *testing.T) {
	s, eng, bridge := testServer(t)

	w := postJSON(t, s, "/api/events", map[string]any{
		"type": "created",
		"tab":  host.Tab{ID: "t1", URL: "https://example.com", Title: "Example"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("created: status = %d: %s", w.Code, w.Body)
	}

	w = postJSON(t, s, "/api/events", map[string]any{
		"type": "activated", "tab_id": "t1", "ts": 5000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("activated: status = %d: %s", w.Code, w.Body)
	}

	ts, err := eng.DB.LastActive("t1", 0)
	if err != nil {
		t.Fatalf("LastActive: %v", err)
	}
	if ts != 5000 {
		t.Errorf("LastActive = %d, want 5000", ts)
	}

	w = postJSON(t, s, "/api/events", map[string]any{"type": "removed", "tab_id": "t1"})
	if w.Code != http.StatusOK {
		t.Fatalf("removed: status = %d: %s", w.Code, w.Body)
	}
	if ts, _ := eng.DB.LastActive("t1", 7); ts != 7 {
		t.Errorf("ledger entry should be gone after removal")
	}
	if tabs, _ := bridge.List(nil); len(tabs) != 0 {
		t.Errorf("mirror should be empty, got %v", tabs)
	}
}

func TestSnapshotReconciles(t *testing.T) {
	s, eng, _ := testServer(t)

	eng.DB.TouchActivity("stale", 1000)

	w := postJSON(t, s, "/api/events", map[string]any{
		"type": "snapshot",
		"tabs": []host.Tab{
			{ID: "t1", URL: "https://a.example"},
			{ID: "t2", URL: "https://b.example"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot: status = %d: %s", w.Code, w.Body)
	}

	all, err := eng.DB.AllActivity()
	if err != nil {
		t.Fatalf("AllActivity: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ledger = %v, want t1 and t2 only", all)
	}
	if _, ok := all["stale"]; ok {
		t.Error("stale entry should be pruned by snapshot reconcile")
	}
}

func TestUnknownEventType(t *testing.T) {
	s, _, _ := testServer(t)
	w := postJSON(t, s, "/api/events", map[string]any{"type": "exploded"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestActionsDrain(t *testing.T) {
	s, _, bridge := testServer(t)

	bridge.Upsert(host.Tab{ID: "t1", URL: "https://a.example"})
	bridge.Group(nil, "Research", "blue", []string{"t1", "t2"})

	w := get(t, s, "/api/actions")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Actions []host.Action `json:"actions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Actions) != 1 || resp.Actions[0].Type != "group" {
		t.Errorf("actions = %+v, want one group action", resp.Actions)
	}

	// Queue is drained
	w = get(t, s, "/api/actions")
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Actions) != 0 {
		t.Errorf("second drain = %+v, want empty", resp.Actions)
	}
}

func TestSettingsRedactsCredential(t *testing.T) {
	s, _, _ := testServer(t)
	w := get(t, s, "/api/settings")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("anthropic_key")) {
		t.Error("settings response must not expose the credential")
	}
	var resp config.Settings
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sweep.IdleUnit == "" {
		t.Error("settings response missing sweep config")
	}
}

func TestSweepEndpoint(t *testing.T) {
	s, _, _ := testServer(t)
	w := postJSON(t, s, "/api/sweep", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp struct {
		Closed int `json:"closed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Closed != 0 {
		t.Errorf("closed = %d, want 0 on empty mirror", resp.Closed)
	}
}

func TestInferEndpointErrors(t *testing.T) {
	s, eng, bridge := testServer(t)

	bridge.Upsert(host.Tab{ID: "t1", URL: "https://a.example"})
	bridge.Upsert(host.Tab{ID: "t2", URL: "https://b.example"})

	// Default settings: anthropic provider, no key
	w := postJSON(t, s, "/api/infer", map[string]any{})
	if w.Code != http.StatusPreconditionFailed {
		t.Errorf("no credential: status = %d, want 412: %s", w.Code, w.Body)
	}

	eng.LLM = &llm.MockClient{Err: errors.New("boom")}
	w = postJSON(t, s, "/api/infer", map[string]any{})
	if w.Code != http.StatusBadGateway {
		t.Errorf("service error: status = %d, want 502: %s", w.Code, w.Body)
	}

	eng.LLM = &llm.MockClient{Response: &llm.Response{Content: `{"workspaces": []}`}}
	w = postJSON(t, s, "/api/infer", map[string]any{})
	if w.Code != http.StatusOK {
		t.Errorf("empty result: status = %d, want 200: %s", w.Code, w.Body)
	}
}

func TestHistoryAndLogEndpoints(t *testing.T) {
	s, eng, _ := testServer(t)

	eng.DB.AddClosed("https://example.com", "Example", "idle", 1000)
	eng.DB.AddLog("closed 1 idle tab(s)")

	w := get(t, s, "/api/history")
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var hist struct {
		History []store.ClosedEntry `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.History) != 1 || hist.History[0].Reason != "idle" {
		t.Errorf("history = %+v", hist.History)
	}

	w = get(t, s, "/api/log")
	if w.Code != http.StatusOK {
		t.Fatalf("log status = %d", w.Code)
	}
	var lg struct {
		Log []store.LogEntry `json:"log"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &lg); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if len(lg.Log) != 1 {
		t.Errorf("log = %+v", lg.Log)
	}
}
