// Package store provides the optional sqlite-backed persistence tier: a
// second cache layer that survives process restarts and a request journal
// for offline inspection. Neither sits on the hot path unless configured.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const CurrentSchemaVersion = 1

// DB wraps the SQLite database.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the SQLite database at path and migrates it to the
// current schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps concurrent readers cheap on mobile storage.
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs database migrations.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for version := currentVersion + 1; version <= CurrentSchemaVersion; version++ {
		if err := db.runMigration(version); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}

	return nil
}

func (db *DB) runMigration(version int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	switch version {
	case 1:
		if err := migration1(tx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migration version: %d", version)
	}

	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// migration1 creates the initial schema.
func migration1(tx *sql.Tx) error {
	schema := `
	-- Persisted response snapshots, keyed by request fingerprint
	CREATE TABLE responses (
		fingerprint TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		status_code INTEGER NOT NULL,
		url TEXT NOT NULL,
		stored_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Journal of executed requests for offline inspection
	CREATE TABLE request_journal (
		id TEXT PRIMARY KEY,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		status_code INTEGER,
		error TEXT,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX idx_journal_created ON request_journal(created_at);
	`

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
