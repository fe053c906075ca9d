package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Addr())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Storage config
	assert.Equal(t, DefaultDBFile, filepath.Base(cfg.Storage.Path))
	assert.Equal(t, uint32(5), cfg.Storage.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Storage.BreakerTimeout)

	// Terminal config
	assert.Equal(t, uint16(120), cfg.Terminal.DefaultCols)
	assert.Equal(t, uint16(30), cfg.Terminal.DefaultRows)
	assert.Equal(t, "xterm-256color", cfg.Terminal.Term)
	assert.Empty(t, cfg.Terminal.PresetsFile)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                     "9000",
		"HOST":                     "0.0.0.0",
		"LOG_LEVEL":                "debug",
		"LOG_DEV":                  "true",
		"AGENTDESK_DB_PATH":        "/var/lib/agentdesk/test.db",
		"STORAGE_BREAKER_FAILURES": "3",
		"STORAGE_BREAKER_TIMEOUT":  "5s",
		"TERM_DEFAULT_COLS":        "200",
		"TERM_DEFAULT_ROWS":        "50",
		"TERM_PRESETS_FILE":        "/etc/agentdesk/presets.yaml",
		"TERM_ENV":                 "screen-256color",
		"RATE_LIMIT_RPS":           "500",
		"RATE_LIMIT_BURST":         "1000",
		"RATE_LIMIT_ENABLED":       "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, "/var/lib/agentdesk/test.db", cfg.Storage.Path)
	assert.Equal(t, uint32(3), cfg.Storage.BreakerFailures)
	assert.Equal(t, 5*time.Second, cfg.Storage.BreakerTimeout)

	assert.Equal(t, uint16(200), cfg.Terminal.DefaultCols)
	assert.Equal(t, uint16(50), cfg.Terminal.DefaultRows)
	assert.Equal(t, "/etc/agentdesk/presets.yaml", cfg.Terminal.PresetsFile)
	assert.Equal(t, "screen-256color", cfg.Terminal.Term)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "non-numeric cols", key: "TERM_DEFAULT_COLS", val: "wide"},
		{name: "zero rows", key: "TERM_DEFAULT_ROWS", val: "0"},
		{name: "bad duration", key: "STORAGE_BREAKER_TIMEOUT", val: "soon"},
		{name: "zero breaker failures", key: "STORAGE_BREAKER_FAILURES", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default().Terminal, cfg.Terminal)
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	assert.Equal(t, filepath.Join(home, ".agentdesk", DefaultDBFile), resolveDBPath(""))
	assert.Equal(t, filepath.Join(home, "data", "x.db"), resolveDBPath("~/data/x.db"))
	assert.Equal(t, "/abs/x.db", resolveDBPath("/abs/x.db"))
	assert.Equal(t, "rel.db", resolveDBPath("rel.db"))
}
