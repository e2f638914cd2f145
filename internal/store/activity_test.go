package store

import (
	"testing"
)

func TestTouchAndLastActive(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.TouchActivity("tab-1", 1000); err != nil {
		t.Fatalf("TouchActivity: %v", err)
	}

	ts, err := db.LastActive("tab-1", 9999)
	if err != nil {
		t.Fatalf("LastActive: %v", err)
	}
	if ts != 1000 {
		t.Errorf("LastActive = %d, want 1000", ts)
	}

	// Re-touch overwrites
	if err := db.TouchActivity("tab-1", 2000); err != nil {
		t.Fatalf("TouchActivity again: %v", err)
	}
	ts, _ = db.LastActive("tab-1", 9999)
	if ts != 2000 {
		t.Errorf("LastActive after re-touch = %d, want 2000", ts)
	}
}

func TestLastActiveFallback(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	ts, err := db.LastActive("never-seen", 4242)
	if err != nil {
		t.Fatalf("LastActive: %v", err)
	}
	if ts != 4242 {
		t.Errorf("fallback = %d, want 4242", ts)
	}
}

func TestForgetActivity(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.TouchActivity("tab-1", 1000)
	if err := db.ForgetActivity("tab-1"); err != nil {
		t.Fatalf("ForgetActivity: %v", err)
	}

	ts, _ := db.LastActive("tab-1", 7)
	if ts != 7 {
		t.Errorf("forgotten tab should hit fallback, got %d", ts)
	}
}

func TestReconcileActivity(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	db.TouchActivity("tab-1", 1000)
	db.TouchActivity("tab-gone", 500)

	// tab-2 is live but unseeded; tab-gone is no longer live
	if err := db.ReconcileActivity([]string{"tab-1", "tab-2"}, 5000); err != nil {
		t.Fatalf("ReconcileActivity: %v", err)
	}

	all, err := db.AllActivity()
	if err != nil {
		t.Fatalf("AllActivity: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ledger size = %d, want 2 (%v)", len(all), all)
	}
	if all["tab-1"] != 1000 {
		t.Errorf("tab-1 = %d, want 1000 (existing entries untouched)", all["tab-1"])
	}
	if all["tab-2"] != 5000 {
		t.Errorf("tab-2 = %d, want 5000 (seeded with now)", all["tab-2"])
	}
	if _, ok := all["tab-gone"]; ok {
		t.Error("tab-gone should have been pruned")
	}
}
