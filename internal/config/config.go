// Package config loads the advisor configuration. The configuration is
// built once at process start and never mutated afterwards; constructors
// receive it by value or as a read-only pointer.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete advisor configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Rules   RulesConfig   `json:"rules" mapstructure:"rules"`
	History HistoryConfig `json:"history" mapstructure:"history"`
	Advisor AdvisorConfig `json:"advisor" mapstructure:"advisor"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr           string `json:"addr" mapstructure:"addr"`
	ReadTimeoutMs  int    `json:"readTimeoutMs" mapstructure:"readTimeoutMs"`
	WriteTimeoutMs int    `json:"writeTimeoutMs" mapstructure:"writeTimeoutMs"`
	IdleTimeoutMs  int    `json:"idleTimeoutMs" mapstructure:"idleTimeoutMs"`
}

// CacheConfig contains cache facade configuration
type CacheConfig struct {
	// Path is the directory holding the sqlite database backing the
	// primary cache and the analysis history
	Path string `json:"path" mapstructure:"path"`
	// ResultTtlSeconds is the TTL applied to cached analysis results
	ResultTtlSeconds int `json:"resultTtlSeconds" mapstructure:"resultTtlSeconds"`
	// LeaseTtlSeconds bounds how long a dedup lease may be held; a crashed
	// holder releases its waiters after this interval
	LeaseTtlSeconds int `json:"leaseTtlSeconds" mapstructure:"leaseTtlSeconds"`
	// FallbackMaxEntries bounds the in-process fallback backend
	FallbackMaxEntries int `json:"fallbackMaxEntries" mapstructure:"fallbackMaxEntries"`
}

// RulesConfig contains rule thresholds
type RulesConfig struct {
	MaxFunctionLines        int `json:"maxFunctionLines" mapstructure:"maxFunctionLines"`
	MaxCyclomaticComplexity int `json:"maxCyclomaticComplexity" mapstructure:"maxCyclomaticComplexity"`
}

// HistoryConfig controls persistence of analysis records
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// MaxSnippetBytes truncates stored code snippets; 0 stores the full text
	MaxSnippetBytes int `json:"maxSnippetBytes" mapstructure:"maxSnippetBytes"`
}

// AdvisorConfig configures the optional report-enrichment layer
type AdvisorConfig struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	Provider       string `json:"provider" mapstructure:"provider"`
	Model          string `json:"model" mapstructure:"model"`
	BaseURL        string `json:"baseUrl" mapstructure:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	// APIKey is only ever read from the environment, never from the file
	APIKey string `json:"-" mapstructure:"-"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeoutMs:  15000,
			WriteTimeoutMs: 15000,
			IdleTimeoutMs:  60000,
		},
		Cache: CacheConfig{
			Path:               ".advisor",
			ResultTtlSeconds:   3600,
			LeaseTtlSeconds:    30,
			FallbackMaxEntries: 1024,
		},
		Rules: RulesConfig{
			MaxFunctionLines:        50,
			MaxCyclomaticComplexity: 10,
		},
		History: HistoryConfig{
			Enabled:         true,
			MaxSnippetBytes: 0,
		},
		Advisor: AdvisorConfig{
			Enabled:        false,
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			TimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .advisor/config.json under root,
// falling back to defaults when the file is absent. Environment variables
// with the ADVISOR_ prefix override file values (ADVISOR_SERVER_ADDR,
// ADVISOR_CACHE_RESULTTTLSECONDS, ...).
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.readTimeoutMs", defaults.Server.ReadTimeoutMs)
	v.SetDefault("server.writeTimeoutMs", defaults.Server.WriteTimeoutMs)
	v.SetDefault("server.idleTimeoutMs", defaults.Server.IdleTimeoutMs)
	v.SetDefault("cache.path", defaults.Cache.Path)
	v.SetDefault("cache.resultTtlSeconds", defaults.Cache.ResultTtlSeconds)
	v.SetDefault("cache.leaseTtlSeconds", defaults.Cache.LeaseTtlSeconds)
	v.SetDefault("cache.fallbackMaxEntries", defaults.Cache.FallbackMaxEntries)
	v.SetDefault("rules.maxFunctionLines", defaults.Rules.MaxFunctionLines)
	v.SetDefault("rules.maxCyclomaticComplexity", defaults.Rules.MaxCyclomaticComplexity)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.maxSnippetBytes", defaults.History.MaxSnippetBytes)
	v.SetDefault("advisor.enabled", defaults.Advisor.Enabled)
	v.SetDefault("advisor.provider", defaults.Advisor.Provider)
	v.SetDefault("advisor.model", defaults.Advisor.Model)
	v.SetDefault("advisor.baseUrl", defaults.Advisor.BaseURL)
	v.SetDefault("advisor.timeoutSeconds", defaults.Advisor.TimeoutSeconds)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".advisor"))

	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Advisor.APIKey = os.Getenv("ADVISOR_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .advisor/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".advisor")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Cache.ResultTtlSeconds < 0 {
		return &ConfigError{Field: "cache.resultTtlSeconds", Message: "must not be negative"}
	}
	if c.Cache.LeaseTtlSeconds <= 0 {
		return &ConfigError{Field: "cache.leaseTtlSeconds", Message: "must be positive"}
	}
	if c.Cache.FallbackMaxEntries <= 0 {
		return &ConfigError{Field: "cache.fallbackMaxEntries", Message: "must be positive"}
	}
	if c.Rules.MaxFunctionLines <= 0 {
		return &ConfigError{Field: "rules.maxFunctionLines", Message: "must be positive"}
	}
	if c.Rules.MaxCyclomaticComplexity <= 0 {
		return &ConfigError{Field: "rules.maxCyclomaticComplexity", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
