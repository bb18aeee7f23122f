package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
	"go-album-center/internal/processor"
)

// ListDerivatives handles GET /media/:id/derivatives.
func (h *Handler) ListDerivatives(c *gin.Context) {
	media, ok := h.lookup(c, models.KindMedia)
	if !ok {
		return
	}
	req, err := parsePage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	ds, count, err := h.lib.Derivatives(c.Request.Context(), media, req.Index*req.PerPage, req.PerPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.resolvePage(c, req, int(count)); err != nil {
		h.fail(c, err)
		return
	}

	if wantsHTML(c) {
		links := make([]linkView, 0, len(ds))
		for i := range ds {
			links = append(links, linkView{Name: "derivative", Location: h.derivativeLocation(c, &ds[i]), Status: media.Status})
		}
		c.HTML(http.StatusOK, "list.html", gin.H{"Title": media.Name + " derivatives", "Items": links})
		return
	}
	locations := make([]string, 0, len(ds))
	for i := range ds {
		locations = append(locations, h.derivativeLocation(c, &ds[i]))
	}
	writeJSON(c, http.StatusOK, locations)
}

// CreateDerivative handles POST /media/:id/derivatives.
func (h *Handler) CreateDerivative(c *gin.Context) {
	media, ok := h.lookup(c, models.KindMedia)
	if !ok {
		return
	}
	fields, err := h.bindDerivative(c, true)
	if err != nil {
		h.fail(c, err)
		return
	}
	ops, err := processor.ParseOperations(fields["operations"])
	if err != nil {
		h.fail(c, err)
		return
	}

	d, err := h.lib.CreateDerivative(c.Request.Context(), media, ops)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", h.derivativeLocation(c, d))
	h.renderDerivative(c, http.StatusCreated, d)
}

// GetDerivative handles GET /media/:id/derivatives/:did.
func (h *Handler) GetDerivative(c *gin.Context) {
	_, d, ok := h.lookupDerivative(c)
	if !ok {
		return
	}
	h.renderDerivative(c, http.StatusOK, d)
}

// UpdateDerivative handles PUT (full) and PATCH (partial) on a derivative.
func (h *Handler) UpdateDerivative(c *gin.Context) {
	_, d, ok := h.lookupDerivative(c)
	if !ok {
		return
	}
	fields, err := h.bindDerivative(c, c.Request.Method == http.MethodPut)
	if err != nil {
		h.fail(c, err)
		return
	}
	if raw, ok := fields["operations"]; ok {
		ops, err := processor.ParseOperations(raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		if err := h.lib.UpdateDerivative(c.Request.Context(), d, ops); err != nil {
			h.fail(c, err)
			return
		}
	}
	h.renderDerivative(c, http.StatusOK, d)
}

// DeleteDerivative handles DELETE /media/:id/derivatives/:did.
func (h *Handler) DeleteDerivative(c *gin.Context) {
	_, d, ok := h.lookupDerivative(c)
	if !ok {
		return
	}
	if err := h.lib.DeleteDerivative(c.Request.Context(), d); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RenderDerivative handles GET /media/:id/derivatives/:did/content.
func (h *Handler) RenderDerivative(c *gin.Context) {
	media, d, ok := h.lookupDerivative(c)
	if !ok {
		return
	}
	data, mime, err := h.lib.Render(c.Request.Context(), media, d)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, mime, data)
}

func (h *Handler) lookupDerivative(c *gin.Context) (*models.Item, *models.Derivative, bool) {
	media, ok := h.lookup(c, models.KindMedia)
	if !ok {
		return nil, nil, false
	}
	id, err := pathID(c, "did")
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	d, err := h.lib.Derivative(c.Request.Context(), media, id)
	if err != nil {
		h.fail(c, err)
		return nil, nil, false
	}
	return media, d, true
}

// bindDerivative decodes a derivative body, keeping values raw for the
// operation parser. full requires every updatable field.
func (h *Handler) bindDerivative(c *gin.Context, full bool) (map[string]json.RawMessage, error) {
	body, err := h.readBody(c)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, apperr.Validation("request body must be a JSON object")
	}
	for name := range fields {
		if !isDerivativeField(name) {
			return nil, apperr.Validation("field %q cannot be set on a derivative", name)
		}
	}
	if full {
		for _, name := range models.DerivativeFields {
			if _, ok := fields[name]; !ok {
				return nil, apperr.Validation("missing field %q", name)
			}
		}
	}
	return fields, nil
}

func isDerivativeField(name string) bool {
	for _, f := range models.DerivativeFields {
		if f == name {
			return true
		}
	}
	return false
}

func (h *Handler) renderDerivative(c *gin.Context, status int, d *models.Derivative) {
	view := h.derivativeView(c, d)
	if wantsHTML(c) {
		c.HTML(status, "derivative.html", view)
		return
	}
	writeJSON(c, status, view)
}
