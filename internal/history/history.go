// Package history persists a record of completed analyses for later
// inspection. Recording is best-effort: the analysis pipeline never fails
// because a history write did.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"advisor/internal/logging"
	"advisor/internal/rules"
	"advisor/internal/storage"
)

// Entry is one persisted analysis outcome.
type Entry struct {
	ID              string             `json:"id"`
	Fingerprint     string             `json:"fingerprint"`
	CodeSnippet     string             `json:"code_snippet"`
	Suggestions     []rules.Suggestion `json:"suggestions"`
	AnalysisTimeMs  int64              `json:"analysis_time_ms"`
	LanguageVersion string             `json:"language_version"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Store reads and writes analysis history rows.
type Store struct {
	db              *storage.DB
	logger          *logging.Logger
	maxSnippetBytes int
}

// NewStore creates a history store. Snippets longer than maxSnippetBytes
// are truncated before persisting; zero disables truncation.
func NewStore(db *storage.DB, maxSnippetBytes int, logger *logging.Logger) *Store {
	return &Store{
		db:              db,
		logger:          logger,
		maxSnippetBytes: maxSnippetBytes,
	}
}

// Record persists one analysis outcome and returns its generated ID.
func (s *Store) Record(fingerprint string, snippet []byte, suggestions []rules.Suggestion, analysisTimeMs int64, languageVersion string) (string, error) {
	if suggestions == nil {
		suggestions = []rules.Suggestion{}
	}
	suggestionsJSON, err := json.Marshal(suggestions)
	if err != nil {
		return "", fmt.Errorf("failed to encode suggestions: %w", err)
	}

	if s.maxSnippetBytes > 0 && len(snippet) > s.maxSnippetBytes {
		snippet = snippet[:s.maxSnippetBytes]
	}

	id := uuid.New().String()
	_, err = s.db.Exec(`
		INSERT INTO analysis_history
			(id, fingerprint, code_snippet, suggestions_json, analysis_time_ms, language_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, fingerprint, string(snippet), string(suggestionsJSON),
		analysisTimeMs, languageVersion, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to record analysis: %w", err)
	}
	return id, nil
}

// RecordAsync persists an outcome on a background goroutine, logging any
// failure instead of returning it.
func (s *Store) RecordAsync(fingerprint string, snippet []byte, suggestions []rules.Suggestion, analysisTimeMs int64, languageVersion string) {
	snippetCopy := make([]byte, len(snippet))
	copy(snippetCopy, snippet)

	go func() {
		if _, err := s.Record(fingerprint, snippetCopy, suggestions, analysisTimeMs, languageVersion); err != nil {
			s.logger.Warn("Failed to record analysis history", map[string]interface{}{
				"fingerprint": fingerprint,
				"error":       err.Error(),
			})
		}
	}()
}

// List returns the most recent entries, newest first. A non-empty
// fingerprint restricts the listing to that snippet identity.
func (s *Store) List(fingerprint string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, fingerprint, code_snippet, suggestions_json, analysis_time_ms, language_version, created_at
		FROM analysis_history
	`
	args := []interface{}{}
	if fingerprint != "" {
		query += " WHERE fingerprint = ?"
		args = append(args, fingerprint)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var suggestionsJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.CodeSnippet, &suggestionsJSON,
			&e.AnalysisTimeMs, &e.LanguageVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(suggestionsJSON), &e.Suggestions); err != nil {
			s.logger.Warn("Skipping history row with invalid suggestions payload", map[string]interface{}{
				"id":    e.ID,
				"error": err.Error(),
			})
			continue
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM analysis_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}
