// Package db opens the sandbox's SQLite store and keeps its schema current.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMS is how long a writer waits on a locked database before
// SQLITE_BUSY is returned.
const busyTimeoutMS = 5000

// ErrForeignKeysOff is returned when the driver ignored the foreign key
// setting, so listing references would go unchecked.
var ErrForeignKeysOff = errors.New("sqlite foreign key enforcement is off")

// DefaultPath returns the default sandbox database path: ~/.config/nb/sandbox.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "nb", "sandbox.db"), nil
}

// dsn appends the connection settings to path. go-sqlite3 applies them to
// every pooled connection, not only the first one.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", fmt.Sprint(busyTimeoutMS))
	return path + "?" + q.Encode()
}

// Open opens (or creates) the sandbox database at path and migrates it.
// Visits must reference a known listing.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	for _, step := range []func(*sql.DB) error{checkForeignKeys, migrate} {
		if err := step(db); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("%w (also failed to close: %v)", err, cerr)
			}
			return nil, err
		}
	}

	return db, nil
}

func checkForeignKeys(db *sql.DB) error {
	var on int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		return fmt.Errorf("reading foreign_keys: %w", err)
	}
	if on != 1 {
		return ErrForeignKeysOff
	}
	return nil
}
