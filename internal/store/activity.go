package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// TouchActivity records ts (epoch milliseconds) as the last-active time for a tab.
// Upsert: first observation and repeat activations take the same path, so replaying
// an event after a restart is harmless.
func (db *DB) TouchActivity(tabID string, ts int64) error {
	_, err := db.Exec(`
		INSERT INTO tab_activity (tab_id, last_active) VALUES (?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET last_active = excluded.last_active
	`, tabID, ts)
	if err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

// ForgetActivity removes the ledger entry for a closed tab.
func (db *DB) ForgetActivity(tabID string) error {
	_, err := db.Exec("DELETE FROM tab_activity WHERE tab_id = ?", tabID)
	if err != nil {
		return fmt.Errorf("forget activity: %w", err)
	}
	return nil
}

// LastActive returns the recorded last-active time for a tab, or fallback if the
// tab has never been observed. Callers pass "now" as the fallback so that unseen
// tabs are treated as just-active and never evicted on their first cycle.
func (db *DB) LastActive(tabID string, fallback int64) (int64, error) {
	var ts int64
	err := db.QueryRow("SELECT last_active FROM tab_activity WHERE tab_id = ?", tabID).Scan(&ts)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("last active: %w", err)
	}
	return ts, nil
}

// AllActivity returns the full ledger as a tab_id → last_active map.
func (db *DB) AllActivity() (map[string]int64, error) {
	rows, err := db.Query("SELECT tab_id, last_active FROM tab_activity")
	if err != nil {
		return nil, fmt.Errorf("all activity: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var ts int64
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out[id] = ts
	}
	return out, rows.Err()
}

// ReconcileActivity seeds a ledger entry (last_active = now) for every live tab
// that has none, and drops entries for tabs no longer live. This is the recovery
// path: the ledger is rebuildable from a live tab snapshot alone.
func (db *DB) ReconcileActivity(liveIDs []string, now int64) error {
	existing, err := db.AllActivity()
	if err != nil {
		return err
	}

	live := make(map[string]bool, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = true
		if _, ok := existing[id]; !ok {
			if err := db.TouchActivity(id, now); err != nil {
				return err
			}
		}
	}

	var stale []string
	for id := range existing {
		if !live[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		placeholders := strings.Repeat("?,", len(stale)-1) + "?"
		args := make([]any, len(stale))
		for i, id := range stale {
			args[i] = id
		}
		if _, err := db.Exec("DELETE FROM tab_activity WHERE tab_id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("reconcile prune: %w", err)
		}
	}
	return nil
}
