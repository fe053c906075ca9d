package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultDBFile is used when AGENTDESK_DB_PATH is unset and no home
// directory can be found.
const DefaultDBFile = "agentdesk.db"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Storage   StorageConfig
	Terminal  TerminalConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// StorageConfig holds database configuration.
type StorageConfig struct {
	Path            string        `envconfig:"AGENTDESK_DB_PATH"`
	BreakerFailures uint32        `envconfig:"STORAGE_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"STORAGE_BREAKER_TIMEOUT" default:"30s"`
}

// TerminalConfig holds defaults applied to new sessions.
type TerminalConfig struct {
	DefaultCols uint16 `envconfig:"TERM_DEFAULT_COLS" default:"120"`
	DefaultRows uint16 `envconfig:"TERM_DEFAULT_ROWS" default:"30"`
	PresetsFile string `envconfig:"TERM_PRESETS_FILE"`
	Term        string `envconfig:"TERM_ENV" default:"xterm-256color"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Storage.Path = resolveDBPath(cfg.Storage.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Storage: StorageConfig{
			Path:            resolveDBPath(""),
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Terminal: TerminalConfig{
			DefaultCols: 120,
			DefaultRows: 30,
			Term:        "xterm-256color",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate rejects values that would only fail later.
func (c *Config) Validate() error {
	if c.Terminal.DefaultCols == 0 || c.Terminal.DefaultRows == 0 {
		return fmt.Errorf("invalid config: terminal size must be positive, got %dx%d",
			c.Terminal.DefaultCols, c.Terminal.DefaultRows)
	}
	if c.Storage.BreakerFailures == 0 {
		return fmt.Errorf("invalid config: STORAGE_BREAKER_FAILURES must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid config: rate limit must be positive when enabled")
	}
	return nil
}

// resolveDBPath expands a leading ~ and falls back to ~/.agentdesk/agentdesk.db.
func resolveDBPath(path string) string {
	home, err := os.UserHomeDir()
	if path == "" {
		if err != nil || home == "" {
			return DefaultDBFile
		}
		return filepath.Join(home, ".agentdesk", DefaultDBFile)
	}
	if err == nil && (path == "~" || strings.HasPrefix(path, "~/")) {
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
