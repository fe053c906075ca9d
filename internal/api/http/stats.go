package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/monitoring"
)

// StatsSnapshot is the dashboard view of the service.
type StatsSnapshot struct {
	Timestamp time.Time                  `json:"timestamp"`
	Metrics   monitoring.MetricsSnapshot `json:"metrics"`
	Summary   StatsSummary               `json:"summary"`
}

// StatsSummary provides high-level numbers derived from the counters.
type StatsSummary struct {
	LiveSessions     int     `json:"live_sessions"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	StorageBreaker   string  `json:"storage_breaker"`
}

// Stats returns a JSON snapshot of the Prometheus counters for dashboards
// that do not scrape /metrics.
func (h *Handlers) Stats(c *gin.Context) {
	snap := h.metrics.Snapshot()

	summary := StatsSummary{
		LiveSessions:     len(h.launcher.List()),
		AverageLatencyMs: snap.AvgRequestSeconds * 1000,
		StorageBreaker:   h.store.BreakerState().String(),
	}
	if snap.TotalRequests > 0 {
		summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}

	c.JSON(http.StatusOK, StatsSnapshot{
		Timestamp: time.Now(),
		Metrics:   snap,
		Summary:   summary,
	})
}
