package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/usage"
)

// SessionUsage lists a session's usage records, newest first
func (h *Handlers) SessionUsage(c *gin.Context) {
	records, err := h.store.SessionUsage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// SessionCost totals a session's usage
func (h *Handlers) SessionCost(c *gin.Context) {
	summary, err := h.store.SessionCostSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UsageSummary totals usage across every session
func (h *Handlers) UsageSummary(c *gin.Context) {
	summary, err := h.store.GlobalCostSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RecordUsage stores a usage record reported by a client, for tools whose
// summaries the extractor does not recognise.
func (h *Handlers) RecordUsage(c *gin.Context) {
	var rec usage.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.store.RecordUsage(c.Request.Context(), rec); err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.UsageRecorded(rec.Model)
	c.JSON(http.StatusCreated, rec)
}
