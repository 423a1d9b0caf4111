package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

func OpenDB(dbPath string) (*sql.DB, error) {
	parentDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrateSchema(db, dbPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *sql.DB, dbPath string) error {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var currentVersion int
	if err == sql.ErrNoRows {
		currentVersion = 0
	} else if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	} else {
		err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&currentVersion)
		if err == sql.ErrNoRows {
			currentVersion = 0
		} else if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	if currentVersion > currentSchemaVersion {
		return fmt.Errorf(
			"database schema version %d is newer than this camwatch version supports (max: %d); upgrade camwatch or delete %s to start fresh",
			currentVersion, currentSchemaVersion, dbPath,
		)
	}

	if currentVersion < currentSchemaVersion {
		if err := applyMigrations(db, currentVersion); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
	}

	return nil
}

func applyMigrations(db *sql.DB, fromVersion int) error {
	if fromVersion == 0 {
		if err := migrateV0ToV1(db); err != nil {
			return fmt.Errorf("migration v0→v1: %w", err)
		}
	}

	return nil
}

func migrateV0ToV1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []struct {
		name string
		sql  string
	}{
		{"schema_version table", `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)`},
		{"schema version", "INSERT INTO schema_version (version) VALUES (1)"},
		{"alert_history table", `
			CREATE TABLE IF NOT EXISTS alert_history (
				alert_id TEXT PRIMARY KEY,
				detector_id TEXT NOT NULL,
				alert_type TEXT,
				severity TEXT,
				what TEXT,
				confidence REAL,
				fired_at TEXT NOT NULL,
				status TEXT NOT NULL,
				status_code INTEGER,
				attempts INTEGER,
				error TEXT,
				payload TEXT,
				updated_at TEXT
			)`},
		{"delivery_attempts table", `
			CREATE TABLE IF NOT EXISTS delivery_attempts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				alert_id TEXT NOT NULL REFERENCES alert_history(alert_id) ON DELETE CASCADE,
				attempt INTEGER NOT NULL,
				status_code INTEGER,
				error TEXT,
				duration_ms REAL,
				attempted_at TEXT NOT NULL
			)`},
		{"alert_daily_summaries table", `
			CREATE TABLE IF NOT EXISTS alert_daily_summaries (
				date TEXT NOT NULL,
				detector_id TEXT NOT NULL,
				fired INTEGER NOT NULL DEFAULT 0,
				delivered INTEGER NOT NULL DEFAULT 0,
				failed INTEGER NOT NULL DEFAULT 0,
				dropped INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (date, detector_id)
			)`},
		{"idx_alert_history_fired", "CREATE INDEX IF NOT EXISTS idx_alert_history_fired ON alert_history(fired_at)"},
		{"idx_alert_history_detector", "CREATE INDEX IF NOT EXISTS idx_alert_history_detector ON alert_history(detector_id)"},
		{"idx_alert_history_status", "CREATE INDEX IF NOT EXISTS idx_alert_history_status ON alert_history(status)"},
		{"idx_delivery_attempts_alert", "CREATE INDEX IF NOT EXISTS idx_delivery_attempts_alert ON delivery_attempts(alert_id)"},
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt.sql); err != nil {
			return fmt.Errorf("creating %s: %w", stmt.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
