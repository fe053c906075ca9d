package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/domain/preset"
)

// ListPresets lists launchable tools in display order
func (h *Handlers) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": h.presets.All()})
}

// ReloadPresets re-reads the preset file without waiting for the watcher
func (h *Handlers) ReloadPresets(c *gin.Context) {
	if err := h.presets.Reload(); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": h.presets.All()})
}

// Platform returns the host's shell defaults
func (h *Handlers) Platform(c *gin.Context) {
	c.JSON(http.StatusOK, preset.PlatformDefaults())
}
