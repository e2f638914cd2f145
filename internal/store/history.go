package store

import (
	"fmt"
	"time"
)

// Retention bounds. History feeds the "recently closed" view; the action log is a
// short operational trail. Both are newest-first and truncated on every append.
const (
	maxHistoryEntries = 100
	maxLogEntries     = 20
)

// ClosedEntry records one evicted tab.
type ClosedEntry struct {
	ID       int64
	URL      string
	Title    string
	Reason   string // "idle", "duplicate", "memory"
	ClosedAt int64
}

// LogEntry records one engine action.
type LogEntry struct {
	ID        int64
	Message   string
	CreatedAt int64
}

// AddClosed appends a closed-tab record and truncates history to the newest 100.
func (db *DB) AddClosed(url, title, reason string, closedAt int64) error {
	_, err := db.Exec(`
		INSERT INTO closed_history (url, title, reason, closed_at) VALUES (?, ?, ?, ?)
	`, url, title, reason, closedAt)
	if err != nil {
		return fmt.Errorf("add closed: %w", err)
	}

	_, err = db.Exec(`
		DELETE FROM closed_history WHERE id NOT IN (
			SELECT id FROM closed_history ORDER BY id DESC LIMIT ?
		)
	`, maxHistoryEntries)
	if err != nil {
		return fmt.Errorf("truncate history: %w", err)
	}
	return nil
}

// RecentClosed returns closed-tab records, newest first.
func (db *DB) RecentClosed(limit int) ([]ClosedEntry, error) {
	rows, err := db.Query(`
		SELECT id, url, title, reason, closed_at
		FROM closed_history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent closed: %w", err)
	}
	defer rows.Close()

	var out []ClosedEntry
	for rows.Next() {
		var e ClosedEntry
		if err := rows.Scan(&e.ID, &e.URL, &e.Title, &e.Reason, &e.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan closed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddLog appends an action-log line and truncates the log to the newest 20.
func (db *DB) AddLog(message string) error {
	_, err := db.Exec(`
		INSERT INTO action_log (message, created_at) VALUES (?, ?)
	`, message, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("add log: %w", err)
	}

	_, err = db.Exec(`
		DELETE FROM action_log WHERE id NOT IN (
			SELECT id FROM action_log ORDER BY id DESC LIMIT ?
		)
	`, maxLogEntries)
	if err != nil {
		return fmt.Errorf("truncate log: %w", err)
	}
	return nil
}

// RecentLog returns action-log lines, newest first.
func (db *DB) RecentLog(limit int) ([]LogEntry, error) {
	rows, err := db.Query(`
		SELECT id, message, created_at FROM action_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
