package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/tabwarden/internal/config"
	"github.com/lazypower/tabwarden/internal/engine"
	"github.com/lazypower/tabwarden/internal/host"
	"github.com/lazypower/tabwarden/internal/store"
)

// Server is the tabwarden HTTP API. The browser extension pushes tab events to
// it and polls it for pending actions; operators read settings, history, and
// the action log, and can trigger a sweep or inference run directly.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	bridge  *host.Bridge
	cfg     *config.Manager
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server.
func New(db *store.DB, eng *engine.Engine, bridge *host.Bridge, cfg *config.Manager, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		bridge:  bridge,
		cfg:     cfg,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Extension-facing
		r.Post("/events", s.handleEvents)
		r.Get("/actions", s.handleActions)

		// Read-only surfaces for the settings/history UI
		r.Get("/tabs", s.handleTabs)
		r.Get("/settings", s.handleSettings)
		r.Get("/history", s.handleHistory)
		r.Get("/log", s.handleLog)

		// Run-now entry points
		r.Post("/sweep", s.handleSweep)
		r.Post("/infer", s.handleInfer)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"db":        dbOK,
		"db_path":   s.db.Path,
		"extension": s.bridge.Connected(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
