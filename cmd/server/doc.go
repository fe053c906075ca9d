// Command agentdesk is the AgentDesk backend: it runs AI coding agents in
// pseudo-terminals and serves them to the desktop UI.
//
// Usage:
//
//	# Serve on 127.0.0.1:8000 (the default command)
//	agentdesk serve
//
//	# Relaunch the sessions that were running at the last shutdown
//	agentdesk serve --restore
//
//	# Development mode (console logs, debug level)
//	agentdesk --dev
//
//	# Create or upgrade the schema only
//	agentdesk migrate --db ~/.agentdesk/agentdesk.db
//
//	# Token usage per session
//	agentdesk usage --json
//
// Configuration:
//   - Environment variables (PORT, HOST, AGENTDESK_DB_PATH, LOG_LEVEL, ...)
//   - Flags override the environment
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown; running sessions stay restorable
package main
