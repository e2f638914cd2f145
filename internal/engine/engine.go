// Package engine implements the tab lifecycle core: the activity ledger,
// engagement and relationship tracking, the eviction sweep, and workspace
// inference. All derived state lives in the store; the engine re-reads it at
// every decision point so a daemon restart never works from stale memory.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lazypower/tabwarden/internal/config"
	"github.com/lazypower/tabwarden/internal/host"
	"github.com/lazypower/tabwarden/internal/llm"
	"github.com/lazypower/tabwarden/internal/store"
)

// Engine reacts to tab lifecycle events and runs the periodic sweep.
type Engine struct {
	DB      *store.DB
	Dir     host.Directory
	Remover host.Remover
	Grouper host.Grouper
	Sampler host.MemorySampler // optional; nil disables the memory policy

	// Settings returns the current configuration snapshot. Re-read on every
	// sweep and inference run so config reloads take effect without restart.
	Settings func() config.Settings

	// LLM overrides the categorization client when set (tests, dry runs).
	// When nil, a client is built from Settings for each inference run.
	LLM llm.Client

	mu         sync.Mutex // serializes event handling
	focusID    string
	focusStart int64

	stopCh chan struct{}
}

// New creates an Engine over the given store and host capabilities.
func New(db *store.DB, dir host.Directory, remover host.Remover, grouper host.Grouper) *Engine {
	return &Engine{
		DB:      db,
		Dir:     dir,
		Remover: remover,
		Grouper: grouper,
		Settings: func() config.Settings {
			return config.Default()
		},
		stopCh: make(chan struct{}),
	}
}

// TabCreated seeds the ledger for a newly observed tab.
func (e *Engine) TabCreated(t host.Tab) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.DB.TouchActivity(t.ID, time.Now().UnixMilli())
}

// TabRemoved drops the ledger entry for a closed tab. Engagement and
// relationship records are kept — they still feed inference for tabs that
// come back, and stale pairs are filtered at read time.
func (e *Engine) TabRemoved(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.DB.ForgetActivity(id)
}

// ReconcileSnapshot aligns the ledger with a full live-tab snapshot: unseeded
// live tabs get "now", entries for vanished tabs are pruned.
func (e *Engine) ReconcileSnapshot(liveIDs []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.DB.ReconcileActivity(liveIDs, time.Now().UnixMilli())
}

// StartSweepTimer runs a sweep on startup and then on the configured interval.
func (e *Engine) StartSweepTimer() {
	if n := e.Sweep(context.Background()); n > 0 {
		log.Printf("sweep: closed %d tabs at startup", n)
	}

	interval := time.Duration(e.Settings().Sweep.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := e.Sweep(context.Background()); n > 0 {
					log.Printf("sweep: closed %d tabs", n)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	close(e.stopCh)
}
