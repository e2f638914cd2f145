package host

import (
	"context"
	"testing"
)

func TestBridgeMirror(t *testing.T) {
	b := NewBridge()
	ctx := context.Background()

	b.Upsert(Tab{ID: "t1", URL: "https://a.example"})
	b.Upsert(Tab{ID: "t2", URL: "https://b.example"})
	b.SetActive("t2")

	tabs, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("got %d tabs, want 2", len(tabs))
	}
	if tabs[0].ID != "t1" || tabs[1].ID != "t2" {
		t.Errorf("expected stable ID order, got %v", tabs)
	}
	if tabs[0].Active || !tabs[1].Active {
		t.Errorf("SetActive should mark exactly t2, got %+v", tabs)
	}

	b.Drop("t1")
	tabs, _ = b.List(ctx)
	if len(tabs) != 1 || tabs[0].ID != "t2" {
		t.Errorf("after Drop, tabs = %v", tabs)
	}
}

func TestBridgeRemoveQueuesAction(t *testing.T) {
	b := NewBridge()
	ctx := context.Background()

	b.Upsert(Tab{ID: "t1", URL: "https://a.example"})
	b.Upsert(Tab{ID: "t2", URL: "https://b.example"})

	if err := b.Remove(ctx, []string{"t1"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	// Dropped from the mirror immediately
	tabs, _ := b.List(ctx)
	if len(tabs) != 1 {
		t.Errorf("mirror size = %d, want 1", len(tabs))
	}

	actions := b.Drain()
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Type != "close" || len(actions[0].TabIDs) != 1 || actions[0].TabIDs[0] != "t1" {
		t.Errorf("action = %+v, want close t1", actions[0])
	}

	// Drain clears the queue
	if again := b.Drain(); len(again) != 0 {
		t.Errorf("second drain returned %+v", again)
	}
}

func TestBridgeNotConnected(t *testing.T) {
	b := NewBridge()
	ctx := context.Background()

	if err := b.Remove(ctx, []string{"t1"}); err == nil {
		t.Error("Remove should fail before the extension connects")
	}
	if err := b.Group(ctx, "w", "blue", []string{"t1", "t2"}); err == nil {
		t.Error("Group should fail before the extension connects")
	}

	// Empty removal is a no-op even when disconnected
	if err := b.Remove(ctx, nil); err != nil {
		t.Errorf("empty Remove: %v", err)
	}
}

func TestBridgeSample(t *testing.T) {
	b := NewBridge()
	ctx := context.Background()

	b.Upsert(Tab{ID: "t1", URL: "https://a.example"})
	samples, err := b.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if samples != nil {
		t.Errorf("no memory reported: samples should be nil, got %v", samples)
	}

	b.ReplaceAll([]Tab{
		{ID: "t1", URL: "https://a.example", MemoryBytes: 1024},
		{ID: "t2", URL: "https://b.example"},
	})
	samples, _ = b.Sample(ctx)
	if len(samples) != 1 || samples["t1"] != 1024 {
		t.Errorf("samples = %v, want t1: 1024", samples)
	}
}

func TestPrivileged(t *testing.T) {
	cases := map[string]bool{
		"chrome://settings":            true,
		"about:blank":                  true,
		"devtools://devtools/inspect":  true,
		"chrome-extension://abc/p.htm": true,
		"":                             true,
		"https://example.com":          false,
		"http://chrome.example.com":    false,
	}
	for url, want := range cases {
		if got := Privileged(url); got != want {
			t.Errorf("Privileged(%q) = %v, want %v", url, got, want)
		}
	}
}
