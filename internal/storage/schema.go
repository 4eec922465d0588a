package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables. Statements are idempotent so an
// existing database passes through unchanged.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createResultCacheTable(tx); err != nil {
			return err
		}
		if err := createAnalysisHistoryTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// createResultCacheTable holds cached analysis results keyed by
// fingerprint. Payloads are zstd-compressed JSON; expiry is checked lazily
// on read.
func createResultCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			key         TEXT PRIMARY KEY,
			payload     BLOB NOT NULL,
			expires_at  TEXT NOT NULL,
			created_at  TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create result_cache table: %w", err)
	}
	return nil
}

func createAnalysisHistoryTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_history (
			id               TEXT PRIMARY KEY,
			fingerprint      TEXT NOT NULL,
			code_snippet     TEXT,
			suggestions_json TEXT NOT NULL,
			analysis_time_ms INTEGER NOT NULL,
			language_version TEXT,
			created_at       TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create analysis_history table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_fingerprint
		ON analysis_history (fingerprint)
	`)
	if err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}
	return nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
