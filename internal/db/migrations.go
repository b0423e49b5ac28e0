package db

import (
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
-- Invoice headers. total_time_spent is frozen at creation.
CREATE TABLE invoices (
    id TEXT PRIMARY KEY,
    space_id INTEGER NOT NULL,
    space_title TEXT NOT NULL DEFAULT '',
    board_id INTEGER NOT NULL,
    board_title TEXT NOT NULL DEFAULT '',
    total_time_spent INTEGER NOT NULL DEFAULT 0,
    total_cards INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'sent', 'paid')),
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Billed card snapshots
CREATE TABLE invoice_cards (
    id TEXT PRIMARY KEY,
    invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
    card_id INTEGER NOT NULL,
    card_title TEXT NOT NULL,
    card_description TEXT,
    time_spent INTEGER NOT NULL DEFAULT 0,
    api_time_spent INTEGER NOT NULL DEFAULT 0,
    manual_time_spent INTEGER NOT NULL DEFAULT 0,
    tags TEXT NOT NULL DEFAULT '[]',
    card_created_at TEXT,
    created_at TEXT NOT NULL
);

-- Manual time logged against Kaiten cards
CREATE TABLE time_entries (
    id TEXT PRIMARY KEY,
    card_id INTEGER NOT NULL,
    hours INTEGER NOT NULL DEFAULT 0 CHECK (hours BETWEEN 0 AND 23),
    minutes INTEGER NOT NULL DEFAULT 0 CHECK (minutes BETWEEN 0 AND 59),
    description TEXT,
    date TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE VIEW time_tracking_summary AS
SELECT
    card_id,
    SUM(hours * 60 + minutes) / 60 AS total_hours,
    SUM(hours * 60 + minutes) % 60 AS total_minutes,
    SUM(hours * 60 + minutes) AS total_minutes_all,
    COUNT(*) AS entries_count,
    MAX(date) AS last_entry_date
FROM time_entries
GROUP BY card_id;

CREATE INDEX idx_invoices_created ON invoices(created_at);
CREATE INDEX idx_invoices_status ON invoices(status);
CREATE INDEX idx_invoice_cards_invoice ON invoice_cards(invoice_id);
CREATE INDEX idx_time_entries_card ON time_entries(card_id);
CREATE INDEX idx_time_entries_date ON time_entries(date);
`,
	},
}

// RunMigrations applies all pending database migrations
func (db *DB) RunMigrations() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}

// SchemaVersion returns the highest applied migration
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}
