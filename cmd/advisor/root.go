package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"advisor/internal/analyzer"
	"advisor/internal/cache"
	"advisor/internal/config"
	"advisor/internal/history"
	"advisor/internal/logging"
	"advisor/internal/parser"
	"advisor/internal/rules"
	"advisor/internal/storage"
	"advisor/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag is the CLI --root flag value, the directory holding the
	// .advisor configuration and database
	rootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Advisor - static analysis service for Python snippets",
	Long: `Advisor analyzes Python code snippets with a fixed set of static-analysis
rules and serves reproducible, cacheable improvement suggestions over HTTP
or from the command line.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("advisor version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "",
		"Working root holding .advisor config and data (default: current directory)")
}

// resolveRoot determines the working root from the CLI flag or the current
// directory.
func resolveRoot() (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return wd, nil
}

// app bundles the wired service stack shared by the CLI commands.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	service *analyzer.Service
	history *history.Store
	db      *storage.DB
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// buildApp loads configuration and wires the full analysis stack. When the
// database cannot be opened the primary cache degrades to the in-process
// fallback instead of failing startup.
func buildApp() (*app, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(cfg.Logging.Level),
	})

	fallback := cache.NewMemoryBackend(cfg.Cache.FallbackMaxEntries)
	leaseTTL := time.Duration(cfg.Cache.LeaseTtlSeconds) * time.Second
	resultTTL := time.Duration(cfg.Cache.ResultTtlSeconds) * time.Second

	var primary cache.Backend = fallback
	var db *storage.DB
	var hist *history.Store

	db, err = storage.Open(dataDir(root, cfg), logger)
	if err != nil {
		logger.Warn("Failed to open database, running on in-process cache only", map[string]interface{}{
			"error": err.Error(),
		})
		db = nil
	} else {
		sqliteBackend, backendErr := cache.NewSQLiteBackend(db)
		if backendErr != nil {
			logger.Warn("Failed to initialize sqlite cache backend", map[string]interface{}{
				"error": backendErr.Error(),
			})
		} else {
			primary = sqliteBackend
		}
		if cfg.History.Enabled {
			hist = history.NewStore(db, cfg.History.MaxSnippetBytes, logger)
		}
	}

	facade := cache.NewFacade(primary, fallback, leaseTTL, logger)
	engine := rules.NewEngine(rules.Canonical(cfg.Rules), logger)
	service := analyzer.NewService(parser.NewAdapter(), engine, facade, resultTTL, logger,
		analyzer.Options{History: hist})

	return &app{
		cfg:     cfg,
		logger:  logger,
		service: service,
		history: hist,
		db:      db,
	}, nil
}

func dataDir(root string, cfg *config.Config) string {
	if cfg.Cache.Path == "" {
		return root
	}
	if filepath.IsAbs(cfg.Cache.Path) {
		return cfg.Cache.Path
	}
	return filepath.Join(root, cfg.Cache.Path)
}
