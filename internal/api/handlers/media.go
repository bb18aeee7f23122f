package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-album-center/internal/api/middleware"
	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
	"go-album-center/internal/service"
	"go-album-center/internal/utils"
)

var mediaCreateFields = []string{"name", "author", "content", "parent_id", "keywords", "filename"}

// ListMedia handles GET /media: every media the caller may see, by id.
func (h *Handler) ListMedia(c *gin.Context) {
	req, err := parsePage(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	items, count, err := h.lib.MediaPage(c.Request.Context(), middleware.Authorized(c), req.Index*req.PerPage, req.PerPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	if _, err := h.resolvePage(c, req, count); err != nil {
		h.fail(c, err)
		return
	}

	if wantsHTML(c) {
		c.HTML(http.StatusOK, "list.html", gin.H{"Title": "Media", "Items": h.links(c, items)})
		return
	}
	locations := make([]string, 0, len(items))
	for i := range items {
		locations = append(locations, h.itemLocation(c, &items[i]))
	}
	writeJSON(c, http.StatusOK, locations)
}

// CreateMedia handles POST /media. content is base64 encoded.
func (h *Handler) CreateMedia(c *gin.Context) {
	fields, err := h.bindFields(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	in, err := h.mediaInput(c, fields)
	if err != nil {
		h.fail(c, err)
		return
	}

	media, err := h.lib.CreateMedia(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", h.itemLocation(c, media))
	h.renderMedia(c, http.StatusCreated, media)
}

func (h *Handler) mediaInput(c *gin.Context, fields map[string]any) (service.MediaInput, error) {
	var in service.MediaInput
	if err := checkCreate(models.KindMedia, fields, mediaCreateFields); err != nil {
		return in, err
	}

	var err error
	if in.Name, err = stringField(fields, "name"); err != nil {
		return in, err
	}
	if in.Author, err = stringField(fields, "author"); err != nil {
		return in, err
	}
	if _, ok := fields["filename"]; ok {
		if in.Filename, err = stringField(fields, "filename"); err != nil {
			return in, err
		}
	}
	if raw, ok := fields["keywords"]; ok {
		keywords, err := models.KeywordsFrom(raw)
		if err != nil {
			return in, err
		}
		in.Keywords = keywords
	}

	encoded, err := stringField(fields, "content")
	if err != nil {
		return in, err
	}
	if in.Content, err = utils.DecodeContent(encoded); err != nil {
		return in, err
	}
	if in.ParentID, err = h.parentFrom(c, fields); err != nil {
		return in, err
	}
	return in, nil
}

// GetMedia handles GET /media/:id.
func (h *Handler) GetMedia(c *gin.Context) {
	media, ok := h.lookup(c, models.KindMedia)
	if !ok {
		return
	}
	h.renderMedia(c, http.StatusOK, media)
}

// UpdateMedia handles PUT (full) and PATCH (partial) on /media/:id.
func (h *Handler) UpdateMedia(c *gin.Context) {
	h.updateItem(c, models.KindMedia)
}

// DeleteMedia handles DELETE /media/:id. Derivatives and content go with it.
func (h *Handler) DeleteMedia(c *gin.Context) {
	h.deleteItem(c, models.KindMedia)
}

func (h *Handler) renderMedia(c *gin.Context, status int, media *models.Item) {
	path, err := h.lib.Path(c.Request.Context(), media)
	if err != nil {
		h.fail(c, err)
		return
	}
	view := h.mediaView(c, media, path)
	if wantsHTML(c) {
		c.HTML(status, "media.html", gin.H{"Media": view})
		return
	}
	writeJSON(c, status, view)
}

func stringField(fields map[string]any, name string) (string, error) {
	s, ok := fields[name].(string)
	if !ok {
		return "", apperr.Validation("field %q must be a string", name)
	}
	return s, nil
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("inline; filename=%q", filename)
}
