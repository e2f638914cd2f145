package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/lazypower/tabwarden/internal/engine"
	"github.com/lazypower/tabwarden/internal/host"
	"github.com/lazypower/tabwarden/internal/llm"
)

// tabEvent is one lifecycle event pushed by the extension.
type tabEvent struct {
	Type string     `json:"type"` // "created", "activated", "removed", "snapshot"
	Tab  *host.Tab  `json:"tab,omitempty"`
	ID   string     `json:"tab_id,omitempty"`
	TS   int64      `json:"ts,omitempty"` // epoch ms; defaults to server time
	Tabs []host.Tab `json:"tabs,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var ev tabEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if ev.TS == 0 {
		ev.TS = time.Now().UnixMilli()
	}

	var err error
	switch ev.Type {
	case "created":
		if ev.Tab == nil {
			http.Error(w, `{"error":"created event requires tab"}`, http.StatusBadRequest)
			return
		}
		s.bridge.Upsert(*ev.Tab)
		err = s.engine.TabCreated(*ev.Tab)
	case "activated":
		id := ev.ID
		if id == "" && ev.Tab != nil {
			id = ev.Tab.ID
		}
		if id == "" {
			http.Error(w, `{"error":"activated event requires tab_id"}`, http.StatusBadRequest)
			return
		}
		if ev.Tab != nil {
			s.bridge.Upsert(*ev.Tab)
		}
		s.bridge.SetActive(id)
		err = s.engine.TabActivated(id, ev.TS)
	case "removed":
		if ev.ID == "" {
			http.Error(w, `{"error":"removed event requires tab_id"}`, http.StatusBadRequest)
			return
		}
		s.bridge.Drop(ev.ID)
		err = s.engine.TabRemoved(ev.ID)
	case "snapshot":
		s.bridge.ReplaceAll(ev.Tabs)
		ids := make([]string, len(ev.Tabs))
		for i, t := range ev.Tabs {
			ids[i] = t.ID
		}
		err = s.engine.ReconcileSnapshot(ids)
	default:
		http.Error(w, `{"error":"unknown event type"}`, http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Printf("event %s: %v", ev.Type, err)
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	actions := s.bridge.Drain()
	if actions == nil {
		actions = []host.Action{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.bridge.List(r.Context())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": tabs})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Get())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.RecentClosed(100)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.RecentLog(20)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"log": entries})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	closed := s.engine.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	applied, err := s.engine.InferWorkspaces(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrNoCredential):
			writeJSON(w, http.StatusPreconditionFailed, map[string]string{
				"error": "no_credential", "detail": err.Error(),
			})
		case errors.Is(err, engine.ErrService):
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "service_error", "detail": err.Error(),
			})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "internal", "detail": err.Error(),
			})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": applied})
}
