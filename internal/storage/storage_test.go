package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"advisor/internal/logging"
)

func TestOpenCreatesSchema(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir, logging.Nop())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "advisor.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	for _, table := range []string{"schema_version", "result_cache", "analysis_history"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	var version int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("schema version not set: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir, logging.Nop())
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	db.Close()

	db, err = Open(dir, logging.Nop())
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Errorf("ping failed after reopen: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, err := Open(t.TempDir(), logging.Nop())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer db.Close()

	wantErr := os.ErrInvalid
	err = db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO result_cache (key, payload, expires_at, created_at) VALUES ('k', x'00', '2099-01-01T00:00:00Z', '2020-01-01T00:00:00Z')",
		); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the callback error, got %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM result_cache").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rollback did not discard the insert, count=%d", count)
	}
}
