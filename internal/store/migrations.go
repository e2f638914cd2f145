package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "tab_activity: last-active ledger per tab",
		SQL: `
CREATE TABLE tab_activity (
    tab_id      TEXT PRIMARY KEY,
    last_active INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "tab_engagement: dwell time and visit counts",
		SQL: `
CREATE TABLE tab_engagement (
    tab_id        TEXT PRIMARY KEY,
    total_seconds REAL NOT NULL DEFAULT 0,
    visits        INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		Version:     3,
		Description: "tab_relationships: pairwise co-usage graph",
		SQL: `
CREATE TABLE tab_relationships (
    tab_a               TEXT NOT NULL,
    tab_b               TEXT NOT NULL,
    transitions         INTEGER NOT NULL DEFAULT 0,
    total_dwell_seconds REAL NOT NULL DEFAULT 0,

    PRIMARY KEY (tab_a, tab_b),
    CHECK (tab_a < tab_b)
);

CREATE INDEX idx_rel_transitions ON tab_relationships(transitions DESC);
`,
	},
	{
		Version:     4,
		Description: "closed_history: bounded record of evicted tabs",
		SQL: `
CREATE TABLE closed_history (
    id        INTEGER PRIMARY KEY,
    url       TEXT NOT NULL,
    title     TEXT,
    reason    TEXT NOT NULL CHECK (reason IN ('idle', 'duplicate', 'memory')),
    closed_at INTEGER NOT NULL
);

CREATE INDEX idx_history_closed_at ON closed_history(closed_at DESC);
`,
	},
	{
		Version:     5,
		Description: "action_log: bounded engine action log",
		SQL: `
CREATE TABLE action_log (
    id         INTEGER PRIMARY KEY,
    message    TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_log_created_at ON action_log(created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
