// Package database opens the console's SQLite history file and keeps its
// schema current.
//
// The operations table holds one row per console or CLI action: a uuid id,
// the action and its target, the operator who ran it, a status of running,
// success, failed or aborted, an optional failure detail, and the start and
// finish times. Rows are indexed by started_at for the recent-operations
// view. Applied migrations are tracked by name in the migrations table, so
// Migrate is safe to call on every start.
package database

import (
	"database/sql"
	"os"
	"path/filepath"

	// SQLite driver for database/sql
	_ "github.com/mattn/go-sqlite3"
)

// DB is the history database handle.
type DB struct {
	*sql.DB
}

// New opens the history file at dbPath, creating its directory with
// owner and group access only. Writers wait up to five seconds for a lock
// held by a concurrent panelctl run.
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// Migrate runs all pending database migrations.
func (db *DB) Migrate() error {
	return runMigrations(db.DB)
}
