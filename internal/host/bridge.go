package host

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Action is one pending command for the extension to execute.
type Action struct {
	Type   string   `json:"type"` // "close", "group", "window"
	TabIDs []string `json:"tab_ids"`
	Name   string   `json:"name,omitempty"`
	Color  string   `json:"color,omitempty"`
}

// Bridge mirrors the browser's tab set from pushed events and queues actions for
// the extension to pick up. It implements Directory, Remover, Grouper, and
// MemorySampler against that mirror.
//
// The mirror is optimistic: Remove drops tabs locally as soon as the close action
// is queued, so the next policy in a sweep cycle sees the post-removal set without
// waiting for the extension's round trip.
type Bridge struct {
	mu        sync.Mutex
	tabs      map[string]Tab
	memory    map[string]int64
	pending   []Action
	connected bool
}

// NewBridge creates an empty bridge. It is not connected until the extension
// reports its first snapshot or event.
func NewBridge() *Bridge {
	return &Bridge{
		tabs:   make(map[string]Tab),
		memory: make(map[string]int64),
	}
}

// Connected reports whether the extension has checked in at least once.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Upsert records a created or updated tab.
func (b *Bridge) Upsert(t Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	b.tabs[t.ID] = t
	if t.MemoryBytes > 0 {
		b.memory[t.ID] = t.MemoryBytes
	}
}

// SetActive marks one tab focused and clears the flag on all others.
func (b *Bridge) SetActive(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	for k, t := range b.tabs {
		t.Active = k == id
		b.tabs[k] = t
	}
}

// Drop removes a tab from the mirror (browser-initiated close).
func (b *Bridge) Drop(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	delete(b.tabs, id)
	delete(b.memory, id)
}

// ReplaceAll swaps the whole mirror for a fresh snapshot from the extension.
// Memory samples ride along on snapshot tabs when the extension holds the
// processes permission; otherwise the sample map simply stays empty.
func (b *Bridge) ReplaceAll(tabs []Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	b.tabs = make(map[string]Tab, len(tabs))
	b.memory = make(map[string]int64, len(tabs))
	for _, t := range tabs {
		b.tabs[t.ID] = t
		if t.MemoryBytes > 0 {
			b.memory[t.ID] = t.MemoryBytes
		}
	}
}

// List returns the mirrored live tabs in stable (ID) order.
func (b *Bridge) List(ctx context.Context) ([]Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Tab, 0, len(b.tabs))
	for _, t := range b.tabs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Remove queues a close action for the given tabs and drops them from the
// mirror. Fails if the extension has never connected — there is nothing to
// deliver the action to.
func (b *Bridge) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return fmt.Errorf("remove %d tabs: extension not connected", len(ids))
	}
	for _, id := range ids {
		delete(b.tabs, id)
		delete(b.memory, id)
	}
	b.pending = append(b.pending, Action{Type: "close", TabIDs: ids})
	return nil
}

// Group queues a tab-group action.
func (b *Bridge) Group(ctx context.Context, name, color string, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return fmt.Errorf("group %q: extension not connected", name)
	}
	b.pending = append(b.pending, Action{Type: "group", TabIDs: ids, Name: name, Color: color})
	return nil
}

// NewWindow queues a move-to-new-window action. The extension creates the window
// with the first tab and moves the rest into it.
func (b *Bridge) NewWindow(ctx context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return fmt.Errorf("new window: extension not connected")
	}
	b.pending = append(b.pending, Action{Type: "window", TabIDs: ids})
	return nil
}

// Sample returns the latest per-tab memory readings. Nil when the extension has
// reported none (permission not granted, or no snapshot yet).
func (b *Bridge) Sample(ctx context.Context) (map[string]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.memory) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(b.memory))
	for k, v := range b.memory {
		out[k] = v
	}
	return out, nil
}

// Drain returns and clears all pending actions.
func (b *Bridge) Drain() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}
