package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/preset"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/terminal"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

const (
	serviceName    = "AgentDesk"
	serviceVersion = "0.3.0"
	pingTimeout    = 2 * time.Second
)

// Handlers contains all HTTP handlers
type Handlers struct {
	launcher  *launcher.Service
	store     *storage.Store
	presets   *preset.Catalog
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	startedAt time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(
	svc *launcher.Service,
	store *storage.Store,
	presets *preset.Catalog,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		launcher:  svc,
		store:     store,
		presets:   presets,
		metrics:   metrics,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Register mounts every REST route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/input", h.WriteInput)
	r.POST("/sessions/:id/resize", h.ResizeSession)
	r.DELETE("/sessions/:id", h.StopSession)

	r.GET("/sessions/:id/log", h.SessionLog)
	r.DELETE("/sessions/:id/log", h.DeleteSessionLog)
	r.GET("/history/search", h.SearchHistory)

	r.GET("/sessions/:id/usage", h.SessionUsage)
	r.GET("/sessions/:id/cost", h.SessionCost)
	r.GET("/usage/summary", h.UsageSummary)
	r.POST("/usage", h.RecordUsage)

	r.GET("/templates", h.ListTemplates)
	r.POST("/templates", h.CreateTemplate)
	r.GET("/templates/:id", h.GetTemplate)
	r.PUT("/templates/:id", h.UpdateTemplate)
	r.DELETE("/templates/:id", h.DeleteTemplate)

	r.GET("/saved-sessions", h.ListSavedSessions)
	r.POST("/saved-sessions", h.SaveSession)
	r.GET("/saved-sessions/restorable", h.ListRestorableSessions)
	r.POST("/saved-sessions/mark-stopped", h.MarkAllStopped)
	r.GET("/saved-sessions/:id", h.GetSavedSession)
	r.PUT("/saved-sessions/:id/status", h.UpdateSessionStatus)
	r.POST("/saved-sessions/:id/restore", h.RestoreSession)
	r.DELETE("/saved-sessions/:id", h.DeleteSavedSession)

	r.GET("/presets", h.ListPresets)
	r.POST("/presets/reload", h.ReloadPresets)
	r.GET("/platform", h.Platform)

	r.POST("/logs", h.StreamLogs)
	r.GET("/stats", h.Stats)
}

// Root handles the bare service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Health reports live sessions and database reachability. A failing
// database degrades the service but sessions keep streaming.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	status := "healthy"
	storageHealth := gin.H{
		"path":    h.store.Path(),
		"breaker": h.store.BreakerState().String(),
		"ok":      true,
	}
	if err := h.store.Ping(ctx); err != nil {
		status = "degraded"
		storageHealth["ok"] = false
		storageHealth["error"] = err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"sessions":       len(h.launcher.List()),
		"storage":        storageHealth,
		"uptime_seconds": time.Since(h.startedAt).Seconds(),
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, terminal.ErrSessionNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrInvalidConfig),
		errors.Is(err, storage.ErrInvalid),
		errors.Is(err, preset.ErrUnknownTool):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
