package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations is an ordered list of SQL statements to run.
// listings comes first so visits can reference it.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id         TEXT    PRIMARY KEY,
		owner_id   TEXT    NOT NULL,
		title      TEXT    NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id                    TEXT    PRIMARY KEY,
		listing_id            TEXT    NOT NULL REFERENCES listings(id),
		tenant_id             TEXT    NOT NULL,
		visit_datetime        TEXT    NOT NULL,
		status                TEXT    NOT NULL DEFAULT 'scheduled'
		                      CHECK (status IN ('scheduled', 'completed', 'cancelled')),
		visit_notes           TEXT    NOT NULL DEFAULT '',
		tenant_feedback       TEXT    NOT NULL DEFAULT '',
		tenant_decision       TEXT    NOT NULL DEFAULT ''
		                      CHECK (tenant_decision IN ('', 'interested', 'not_interested', 'undecided')),
		owner_decision        TEXT    NOT NULL DEFAULT ''
		                      CHECK (owner_decision IN ('', 'interested', 'not_interested', 'undecided')),
		tenant_decision_notes TEXT    NOT NULL DEFAULT '',
		owner_decision_notes  TEXT    NOT NULL DEFAULT '',
		created_at            DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at            DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_tenant ON visits(tenant_id)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent, checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"visits", "rep_id", "TEXT NOT NULL DEFAULT ''"},
		{"visits", "rep_feedback", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("closing rows", "error", cerr)
		}
	}()

	found := false
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}
	if found {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
