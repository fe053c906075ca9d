package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/terminal"
)

// InputRequest carries keystrokes for a session.
type InputRequest struct {
	Data string `json:"data"`
}

// ResizeRequest carries a new terminal geometry.
type ResizeRequest struct {
	Cols uint16 `json:"cols" binding:"required"`
	Rows uint16 `json:"rows" binding:"required"`
}

// ListSessions lists live session ids, or full snapshots with ?detail=true
func (h *Handlers) ListSessions(c *gin.Context) {
	if c.Query("detail") == "true" {
		c.JSON(http.StatusOK, gin.H{"sessions": h.launcher.Sessions()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": h.launcher.List()})
}

// CreateSession launches a session. Nobody is attached to its output over
// HTTP, so events only reach the log and the usage extractor; use the
// stream endpoint to watch a session live.
func (h *Handlers) CreateSession(c *gin.Context) {
	var cfg terminal.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}

	info, err := h.launcher.Launch(c.Request.Context(), cfg, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// GetSession returns one live session
func (h *Handlers) GetSession(c *gin.Context) {
	info, err := h.launcher.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// WriteInput forwards input to a session
func (h *Handlers) WriteInput(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if err := h.launcher.Write(id, []byte(req.Data)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id})
}

// ResizeSession changes a session's geometry
func (h *Handlers) ResizeSession(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	if err := h.launcher.Resize(id, req.Cols, req.Rows); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id})
}

// StopSession closes a session and marks its saved config stopped.
// Unknown ids succeed.
func (h *Handlers) StopSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.launcher.Stop(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": id})
}
