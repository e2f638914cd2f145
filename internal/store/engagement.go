package store

import (
	"database/sql"
	"fmt"
)

// Engagement holds cumulative dwell time and visit count for a tab.
type Engagement struct {
	TabID        string
	TotalSeconds float64
	Visits       int
}

// Relationship is a weighted co-usage edge between two tabs. TabA < TabB always
// (canonical ordering — the pair is unordered, the key is not).
type Relationship struct {
	TabA              string
	TabB              string
	Transitions       int
	TotalDwellSeconds float64
}

// AvgDwellSeconds returns the mean dwell of the departing tab across transitions.
func (r Relationship) AvgDwellSeconds() float64 {
	if r.Transitions == 0 {
		return 0
	}
	return r.TotalDwellSeconds / float64(r.Transitions)
}

// pairKey returns the canonical ordering of two tab IDs.
func pairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// AddEngagement merges one completed dwell into a tab's engagement record.
// Additive upsert: safe to apply against whatever is already persisted, with no
// dependency on in-memory state from before a restart.
func (db *DB) AddEngagement(tabID string, dwellSeconds float64) error {
	_, err := db.Exec(`
		INSERT INTO tab_engagement (tab_id, total_seconds, visits) VALUES (?, ?, 1)
		ON CONFLICT(tab_id) DO UPDATE SET
			total_seconds = total_seconds + excluded.total_seconds,
			visits = visits + 1
	`, tabID, dwellSeconds)
	if err != nil {
		return fmt.Errorf("add engagement: %w", err)
	}
	return nil
}

// GetEngagement returns the engagement record for a tab, or nil if none exists.
func (db *DB) GetEngagement(tabID string) (*Engagement, error) {
	var e Engagement
	err := db.QueryRow(`
		SELECT tab_id, total_seconds, visits FROM tab_engagement WHERE tab_id = ?
	`, tabID).Scan(&e.TabID, &e.TotalSeconds, &e.Visits)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get engagement: %w", err)
	}
	return &e, nil
}

// AllEngagement returns every engagement record keyed by tab ID.
func (db *DB) AllEngagement() (map[string]Engagement, error) {
	rows, err := db.Query("SELECT tab_id, total_seconds, visits FROM tab_engagement")
	if err != nil {
		return nil, fmt.Errorf("all engagement: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Engagement)
	for rows.Next() {
		var e Engagement
		if err := rows.Scan(&e.TabID, &e.TotalSeconds, &e.Visits); err != nil {
			return nil, fmt.Errorf("scan engagement: %w", err)
		}
		out[e.TabID] = e
	}
	return out, rows.Err()
}

// AddTransition merges one qualifying focus transition into the relationship edge
// for the unordered pair {a, b}. dwellSeconds is the dwell of the departing tab.
func (db *DB) AddTransition(a, b string, dwellSeconds float64) error {
	ka, kb := pairKey(a, b)
	_, err := db.Exec(`
		INSERT INTO tab_relationships (tab_a, tab_b, transitions, total_dwell_seconds)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(tab_a, tab_b) DO UPDATE SET
			transitions = transitions + 1,
			total_dwell_seconds = total_dwell_seconds + excluded.total_dwell_seconds
	`, ka, kb, dwellSeconds)
	if err != nil {
		return fmt.Errorf("add transition: %w", err)
	}
	return nil
}

// GetRelationship returns the edge for the unordered pair {a, b}, or nil.
func (db *DB) GetRelationship(a, b string) (*Relationship, error) {
	ka, kb := pairKey(a, b)
	var r Relationship
	err := db.QueryRow(`
		SELECT tab_a, tab_b, transitions, total_dwell_seconds
		FROM tab_relationships WHERE tab_a = ? AND tab_b = ?
	`, ka, kb).Scan(&r.TabA, &r.TabB, &r.Transitions, &r.TotalDwellSeconds)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return &r, nil
}

// AllRelationships returns every edge with at least minTransitions transitions.
func (db *DB) AllRelationships(minTransitions int) ([]Relationship, error) {
	rows, err := db.Query(`
		SELECT tab_a, tab_b, transitions, total_dwell_seconds
		FROM tab_relationships WHERE transitions >= ?
	`, minTransitions)
	if err != nil {
		return nil, fmt.Errorf("all relationships: %w", err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.TabA, &r.TabB, &r.Transitions, &r.TotalDwellSeconds); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
