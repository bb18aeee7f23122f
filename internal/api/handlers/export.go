package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-album-center/internal/export"
)

// ExportCSV handles GET /export/csv.
func (h *Handler) ExportCSV(c *gin.Context) {
	h.exportCatalog(c, "catalog.csv", "text/csv; charset=utf-8", export.WriteCSV)
}

// ExportJSON handles GET /export/json.
func (h *Handler) ExportJSON(c *gin.Context) {
	h.exportCatalog(c, "catalog.json", "application/json; charset=utf-8", export.WriteJSON)
}

func (h *Handler) exportCatalog(c *gin.Context, filename, contentType string, write func(io.Writer, []export.Entry) error) {
	entries, err := export.New(h.lib, h.log).Catalog(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, entries); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
