package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"advisor/internal/storage"
)

// SQLiteBackend is the primary cache backend. Payloads are zstd-compressed
// and expiry is enforced lazily: an expired row is deleted on the read that
// finds it.
type SQLiteBackend struct {
	db      *storage.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewSQLiteBackend creates the sqlite cache backend over an open database.
func NewSQLiteBackend(db *storage.DB) (*SQLiteBackend, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &SQLiteBackend{
		db:      db,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Name identifies the backend in logs and health output.
func (b *SQLiteBackend) Name() string { return "sqlite" }

// Get retrieves a cached payload. Expired entries are deleted and reported
// as a miss.
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	var expiresAt string

	err := b.db.QueryRow(`
		SELECT payload, expires_at
		FROM result_cache
		WHERE key = ?
	`, key).Scan(&payload, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	expiresAtTime, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, false, fmt.Errorf("invalid expires_at format: %w", err)
	}

	if time.Now().After(expiresAtTime) {
		_, _ = b.db.Exec("DELETE FROM result_cache WHERE key = ?", key)
		return nil, false, nil
	}

	value, err := b.decoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress cache payload: %w", err)
	}

	return value, true, nil
}

// Set stores a payload with the given TTL.
func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	expiresAt := now.Add(ttl)

	compressed := b.encoder.EncodeAll(value, nil)

	_, err := b.db.Exec(`
		INSERT OR REPLACE INTO result_cache (key, payload, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, key, compressed, expiresAt.Format(time.RFC3339), now.Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// IsAvailable probes the database connection.
func (b *SQLiteBackend) IsAvailable(ctx context.Context) bool {
	return b.db.Ping() == nil
}

// CleanupExpired removes all expired rows. Intended for periodic
// housekeeping; correctness does not depend on it.
func (b *SQLiteBackend) CleanupExpired() error {
	now := time.Now().Format(time.RFC3339)
	if _, err := b.db.Exec("DELETE FROM result_cache WHERE expires_at < ?", now); err != nil {
		return fmt.Errorf("failed to cleanup cache: %w", err)
	}
	return nil
}

// Stats returns entry count and payload bytes for diagnostics.
func (b *SQLiteBackend) Stats() (entries int, sizeBytes int64, err error) {
	err = b.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0)
		FROM result_cache
	`).Scan(&entries, &sizeBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get cache stats: %w", err)
	}
	return entries, sizeBytes, nil
}
