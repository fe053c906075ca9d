package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

// ListTemplates lists prompt templates by name
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.store.ListTemplates(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// CreateTemplate stores a new prompt template
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req storage.CreateTemplate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tpl, err := h.store.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// GetTemplate returns one template
func (h *Handlers) GetTemplate(c *gin.Context) {
	tpl, err := h.store.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// UpdateTemplate changes the fields present in the body
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	var req storage.UpdateTemplate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tpl, err := h.store.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate removes a template
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}
