package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSchema_CreateFresh(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	var version int
	if err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		t.Fatalf("failed to read schema_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version: want %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"schema_version", "alert_history", "delivery_attempts", "alert_daily_summaries"}
	for _, tableName := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", tableName).Scan(&name)
		if err == sql.ErrNoRows {
			t.Errorf("table %q not found", tableName)
		} else if err != nil {
			t.Fatalf("error checking table %q: %v", tableName, err)
		}
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to read journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode: want wal, got %s", journalMode)
	}
}

func TestSchema_ReopenDoesNotMigrateAgain(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("first OpenDB failed: %v", err)
	}
	_ = db.Close()

	db, err = OpenDB(dbPath)
	if err != nil {
		t.Fatalf("second OpenDB failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("schema_version rows: want 1, got %d", rows)
	}
}

func TestSchema_CreateParentDirs(t *testing.T) {
	parentDir := filepath.Join(t.TempDir(), "a", "b", "c")
	db, err := OpenDB(filepath.Join(parentDir, "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(parentDir); os.IsNotExist(err) {
		t.Error("parent directories were not created")
	}
}

func TestSchema_ForwardVersionRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	futureDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create future DB: %v", err)
	}
	if _, err := futureDB.Exec("CREATE TABLE schema_version (version INTEGER)"); err != nil {
		t.Fatalf("failed to create schema_version table: %v", err)
	}
	if _, err := futureDB.Exec("INSERT INTO schema_version (version) VALUES (999)"); err != nil {
		t.Fatalf("failed to insert future version: %v", err)
	}
	_ = futureDB.Close()

	_, err = OpenDB(dbPath)
	if err == nil {
		t.Fatal("OpenDB should have failed for forward schema version, but succeeded")
	}

	for _, phrase := range []string{"999", "newer", "upgrade camwatch", dbPath} {
		if !strings.Contains(err.Error(), phrase) {
			t.Errorf("error message missing %q: %s", phrase, err.Error())
		}
	}
}
