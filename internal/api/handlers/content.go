package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
	"go-album-center/internal/utils"
)

// GetContent handles GET /media/:id/content with the stored bytes.
func (h *Handler) GetContent(c *gin.Context) {
	media, ok := h.lookup(c, models.KindMedia)
	if !ok {
		return
	}
	data, err := h.lib.Content(c.Request.Context(), media)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(media.Filename))
	c.Data(http.StatusOK, utils.SniffMimeType(data), data)
}

// ReplaceContent handles PUT and PATCH on /media/:id/content. The body is
// the base64 encoded content, raw or as a JSON string.
func (h *Handler) ReplaceContent(c *gin.Context) {
	media, ok := h.lookup(c, models.KindMedia)
	if !ok {
		return
	}
	body, err := h.readBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := decodeContentBody(body)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.lib.ReplaceContent(c.Request.Context(), media, data); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func decodeContentBody(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '"' {
		var encoded string
		if err := json.Unmarshal(body, &encoded); err != nil {
			return nil, apperr.Validation("content must be a JSON string")
		}
		return utils.DecodeContent(encoded)
	}
	return utils.DecodeContent(string(body))
}
