package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

// SessionLog returns a session's persisted output in write order
func (h *Handlers) SessionLog(c *gin.Context) {
	id := c.Param("id")
	content, err := h.store.SessionLog(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": id, "content": content})
}

// DeleteSessionLog drops a session's persisted output
func (h *Handlers) DeleteSessionLog(c *gin.Context) {
	id := c.Param("id")
	n, err := h.store.DeleteSessionLogs(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": id, "deleted": n})
}

// SearchHistory searches persisted output across sessions
func (h *Handlers) SearchHistory(c *gin.Context) {
	var q storage.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.store.SearchLogs(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
