package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	if err := h.lib.Ping(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		writeJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
