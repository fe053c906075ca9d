package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

// StatusRequest sets a saved session's status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListSavedSessions lists saved session configs
func (h *Handlers) ListSavedSessions(c *gin.Context) {
	sessions, err := h.store.ListSavedSessions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ListRestorableSessions lists configs that were running at the last shutdown
func (h *Handlers) ListRestorableSessions(c *gin.Context) {
	sessions, err := h.store.ListRestorableSessions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// SaveSession inserts or replaces a saved config
func (h *Handlers) SaveSession(c *gin.Context) {
	var req storage.SavedSession
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.store.SaveSession(ctx, req); err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.IncSessionsSaved()

	saved, err := h.store.GetSavedSession(ctx, req.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// GetSavedSession returns one saved config
func (h *Handlers) GetSavedSession(c *gin.Context) {
	saved, err := h.store.GetSavedSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// UpdateSessionStatus sets a saved config's status
func (h *Handlers) UpdateSessionStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if err := h.store.UpdateSessionStatus(c.Request.Context(), id, req.Status); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "status": req.Status})
}

// RestoreSession relaunches a saved config under its original id
func (h *Handlers) RestoreSession(c *gin.Context) {
	info, err := h.launcher.Restore(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// MarkAllStopped marks every saved config stopped
func (h *Handlers) MarkAllStopped(c *gin.Context) {
	n, err := h.launcher.MarkAllStopped(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// DeleteSavedSession removes a saved config
func (h *Handlers) DeleteSavedSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteSavedSession(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}
