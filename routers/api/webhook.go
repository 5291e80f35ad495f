package api

import (
	"errors"
	"net/http"

	"ScriptToVideo-server/service"

	"github.com/gin-gonic/gin"
)

// VideoReady receives the worker's completion callback for an async video
// job. Unknown scene ids are rejected so a misrouted callback cannot touch
// the store.
func (h *Handler) VideoReady(c *gin.Context) {
	var event service.CompletionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.Correlator.Handle(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, service.ErrUnknownScene) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
