package history

import (
	"strings"
	"testing"

	"advisor/internal/logging"
	"advisor/internal/rules"
	"advisor/internal/storage"
)

func newTestStore(t *testing.T, maxSnippetBytes int) *Store {
	t.Helper()
	db, err := storage.Open(t.TempDir(), logging.Nop())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, maxSnippetBytes, logging.Nop())
}

func sampleSuggestions() []rules.Suggestion {
	line := 3
	return []rules.Suggestion{
		{
			RuleID:   "print_statement",
			Message:  "Replace print() with logging",
			Severity: rules.SeverityInfo,
			Line:     &line,
			Metadata: map[string]interface{}{},
		},
	}
}

func TestStoreRecordAndList(t *testing.T) {
	s := newTestStore(t, 0)

	id, err := s.Record("fp-abc", []byte("print('hi')\n"), sampleSuggestions(), 42, "3.12")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected generated entry ID")
	}

	entries, err := s.List("", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.ID != id {
		t.Errorf("Expected ID %q, got %q", id, e.ID)
	}
	if e.Fingerprint != "fp-abc" {
		t.Errorf("Expected fingerprint fp-abc, got %q", e.Fingerprint)
	}
	if e.AnalysisTimeMs != 42 {
		t.Errorf("Expected analysis time 42, got %d", e.AnalysisTimeMs)
	}
	if e.LanguageVersion != "3.12" {
		t.Errorf("Expected language version 3.12, got %q", e.LanguageVersion)
	}
	if len(e.Suggestions) != 1 || e.Suggestions[0].RuleID != "print_statement" {
		t.Errorf("Expected persisted suggestions to round-trip, got %+v", e.Suggestions)
	}
	if e.CreatedAt.IsZero() {
		t.Error("Expected created_at to be populated")
	}
}

func TestStoreRecordNilSuggestions(t *testing.T) {
	s := newTestStore(t, 0)

	if _, err := s.Record("fp-clean", []byte("x = 1\n"), nil, 5, "3.12"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := s.List("fp-clean", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Suggestions == nil || len(entries[0].Suggestions) != 0 {
		t.Errorf("Expected empty suggestion list, got %+v", entries[0].Suggestions)
	}
}

func TestStoreListFiltersByFingerprint(t *testing.T) {
	s := newTestStore(t, 0)

	if _, err := s.Record("fp-a", []byte("a = 1\n"), nil, 1, "3.12"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := s.Record("fp-b", []byte("b = 2\n"), nil, 2, "3.12"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := s.Record("fp-a", []byte("a = 1\n"), nil, 3, "3.12"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := s.List("fp-a", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries for fp-a, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Fingerprint != "fp-a" {
			t.Errorf("Expected only fp-a entries, got %q", e.Fingerprint)
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 total entries, got %d", n)
	}
}

func TestStoreListRespectsLimit(t *testing.T) {
	s := newTestStore(t, 0)

	for i := 0; i < 5; i++ {
		if _, err := s.Record("fp", []byte("x = 1\n"), nil, int64(i), "3.12"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := s.List("", 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(entries))
	}
}

func TestStoreTruncatesLongSnippets(t *testing.T) {
	s := newTestStore(t, 16)

	long := strings.Repeat("x", 100)
	if _, err := s.Record("fp-long", []byte(long), nil, 1, "3.12"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := s.List("fp-long", 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if got := len(entries[0].CodeSnippet); got != 16 {
		t.Errorf("Expected snippet truncated to 16 bytes, got %d", got)
	}
}
