package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUILogEntries = 500

// UILogEntry is one log line from the desktop frontend.
type UILogEntry struct {
	ID        string         `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	SessionID string         `json:"sessionId"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// UILogStreamRequest is a batch of frontend log lines.
type UILogStreamRequest struct {
	Source  string       `json:"source" binding:"required"`
	Entries []UILogEntry `json:"entries"`
}

// StreamLogs writes frontend log lines into the backend log so a single
// file holds both sides of a bug report.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req UILogStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Source != "ui" {
		badRequest(c, fmt.Errorf("unknown log source %q", req.Source))
		return
	}
	if len(req.Entries) == 0 {
		badRequest(c, errors.New("no log entries provided"))
		return
	}
	if len(req.Entries) > maxUILogEntries {
		badRequest(c, fmt.Errorf("at most %d entries per batch", maxUILogEntries))
		return
	}

	logger := h.logger.With(zap.String("source", "ui"))
	for _, entry := range req.Entries {
		logUIEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"entries_received": len(req.Entries),
	})
}

func logUIEntry(logger *zap.Logger, entry UILogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+3)
	fields = append(fields,
		zap.String("ui_log_id", entry.ID),
		zap.String("ui_timestamp", entry.Timestamp),
	)
	if entry.SessionID != "" {
		fields = append(fields, zap.String("session_id", entry.SessionID))
	}

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch strings.ToLower(entry.Level) {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn", "warning":
		logger.Warn(entry.Message, fields...)
	case "debug", "verbose":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
