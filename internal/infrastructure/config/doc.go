// Package config loads service configuration from environment variables
// using envconfig. Every field has a default; Load fails only on values
// that do not parse or would be rejected later (zero terminal size, a
// breaker that can never trip).
//
// Environment Variables:
//   - PORT, HOST: HTTP listen address (default 127.0.0.1:8000)
//   - LOG_LEVEL, LOG_DEV: logger level and console mode
//   - AGENTDESK_DB_PATH: sqlite file (default ~/.agentdesk/agentdesk.db)
//   - STORAGE_BREAKER_FAILURES, STORAGE_BREAKER_TIMEOUT: write breaker
//   - TERM_DEFAULT_COLS, TERM_DEFAULT_ROWS, TERM_ENV: session defaults
//   - TERM_PRESETS_FILE: optional YAML file overriding tool presets
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED: per-client limits
package config
