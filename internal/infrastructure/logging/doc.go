// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *zap.Logger and tag entries with structured fields;
// session-scoped code logs under a "session_id" field.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	defer logger.Close()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	logger.Session(id).Warn("Failed to append session log", zap.Error(err))
package logging
