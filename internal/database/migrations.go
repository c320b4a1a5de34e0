package database

import (
	"database/sql"
	"fmt"
)

type migration struct {
	name       string
	statements []string
}

var migrations = []migration{
	{
		name: "2026_10_01_create_operations_table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS operations (
				id TEXT PRIMARY KEY,
				action TEXT NOT NULL,
				target TEXT,
				status TEXT NOT NULL DEFAULT 'running',
				detail TEXT,
				started_at DATETIME NOT NULL,
				finished_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_operations_started_at ON operations(started_at)`,
			`CREATE INDEX IF NOT EXISTS idx_operations_status ON operations(status)`,
		},
	},
	{
		name: "2026_10_08_add_operations_operator",
		statements: []string{
			`ALTER TABLE operations ADD COLUMN operator TEXT NOT NULL DEFAULT ''`,
		},
	},
}

func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		migration TEXT UNIQUE NOT NULL,
		batch INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func hasMigrationRun(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE migration = ?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(db *sql.DB, name string, batch int) error {
	_, err := db.Exec("INSERT INTO migrations (migration, batch) VALUES (?, ?)", name, batch)
	return err
}

func nextBatch(db *sql.DB) (int, error) {
	var batch sql.NullInt64
	if err := db.QueryRow("SELECT MAX(batch) FROM migrations").Scan(&batch); err != nil {
		return 0, err
	}
	return int(batch.Int64) + 1, nil
}

func runMigrations(db *sql.DB) error {
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		done, err := hasMigrationRun(db, m.name)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.statements {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %s failed: %w", m.name, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO migrations (migration, batch) VALUES (?, ?)", m.name, batch); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
