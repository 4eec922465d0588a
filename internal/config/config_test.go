package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cache.ResultTtlSeconds != 3600 {
		t.Errorf("expected default result TTL 3600, got %d", cfg.Cache.ResultTtlSeconds)
	}
	if cfg.Rules.MaxFunctionLines != 50 {
		t.Errorf("expected default max function lines 50, got %d", cfg.Rules.MaxFunctionLines)
	}
	if cfg.Rules.MaxCyclomaticComplexity != 10 {
		t.Errorf("expected default max complexity 10, got %d", cfg.Rules.MaxCyclomaticComplexity)
	}
	if !cfg.History.Enabled {
		t.Error("history should be enabled by default")
	}
	if cfg.Advisor.Enabled {
		t.Error("report enrichment should be disabled by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".advisor")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `{
  "version": 1,
  "cache": {"resultTtlSeconds": 120, "leaseTtlSeconds": 5},
  "rules": {"maxFunctionLines": 30}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cache.ResultTtlSeconds != 120 {
		t.Errorf("expected result TTL 120 from file, got %d", cfg.Cache.ResultTtlSeconds)
	}
	if cfg.Cache.LeaseTtlSeconds != 5 {
		t.Errorf("expected lease TTL 5 from file, got %d", cfg.Cache.LeaseTtlSeconds)
	}
	if cfg.Rules.MaxFunctionLines != 30 {
		t.Errorf("expected max function lines 30 from file, got %d", cfg.Rules.MaxFunctionLines)
	}
	// Unset fields keep defaults
	if cfg.Cache.FallbackMaxEntries != 1024 {
		t.Errorf("expected default fallback capacity 1024, got %d", cfg.Cache.FallbackMaxEntries)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.LeaseTtlSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero lease TTL")
	}

	cfg = DefaultConfig()
	cfg.Version = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unsupported version")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Cache.ResultTtlSeconds = 777

	if err := cfg.Save(root); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Cache.ResultTtlSeconds != 777 {
		t.Errorf("expected saved TTL 777, got %d", loaded.Cache.ResultTtlSeconds)
	}
}
