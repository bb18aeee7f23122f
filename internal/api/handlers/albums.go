package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"go-album-center/internal/api/middleware"
	"go-album-center/internal/apperr"
	"go-album-center/internal/models"
)

// ListAlbums handles GET /albums: the children of the root album.
func (h *Handler) ListAlbums(c *gin.Context) {
	root := models.Toplevel()
	children, ok := h.children(c, root)
	if !ok {
		return
	}
	if wantsHTML(c) {
		c.HTML(http.StatusOK, "list.html", gin.H{"Title": "Albums", "Items": h.links(c, children)})
		return
	}
	locations := make([]string, 0, len(children))
	for i := range children {
		locations = append(locations, h.itemLocation(c, &children[i]))
	}
	writeJSON(c, http.StatusOK, locations)
}

// CreateAlbum handles POST /albums.
func (h *Handler) CreateAlbum(c *gin.Context) {
	fields, err := h.bindFields(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := checkCreate(models.KindAlbum, fields, []string{"name", "parent_id"}); err != nil {
		h.fail(c, err)
		return
	}
	name, ok := fields["name"].(string)
	if !ok {
		h.fail(c, apperr.Validation("field \"name\" must be a string"))
		return
	}
	parentID, err := h.parentFrom(c, fields)
	if err != nil {
		h.fail(c, err)
		return
	}

	album, err := h.lib.CreateAlbum(c.Request.Context(), name, parentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Location", h.itemLocation(c, album))
	h.renderAlbum(c, http.StatusCreated, album, nil)
}

// GetAlbum handles GET /albums/:id with a page of its children.
func (h *Handler) GetAlbum(c *gin.Context) {
	album, ok := h.lookup(c, models.KindAlbum)
	if !ok {
		return
	}
	children, ok := h.children(c, album)
	if !ok {
		return
	}
	h.renderAlbum(c, http.StatusOK, album, children)
}

// UpdateAlbum handles PUT (full) and PATCH (partial) on /albums/:id.
func (h *Handler) UpdateAlbum(c *gin.Context) {
	h.updateItem(c, models.KindAlbum)
}

// DeleteAlbum handles DELETE /albums/:id, removing the whole subtree.
func (h *Handler) DeleteAlbum(c *gin.Context) {
	h.deleteItem(c, models.KindAlbum)
}

// OrderRoot handles PUT /order.
func (h *Handler) OrderRoot(c *gin.Context) {
	h.reorder(c, models.Toplevel())
}

// OrderAlbum handles PUT /albums/:id/order.
func (h *Handler) OrderAlbum(c *gin.Context) {
	album, ok := h.lookup(c, models.KindAlbum)
	if !ok {
		return
	}
	h.reorder(c, album)
}

func (h *Handler) reorder(c *gin.Context, album *models.Item) {
	body, err := h.readBody(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var ids []uint
	if err := json.Unmarshal(body, &ids); err != nil || ids == nil {
		h.fail(c, apperr.Validation("request body must be a JSON array of ids"))
		return
	}
	if err := h.lib.Reorder(c.Request.Context(), album, ids); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// children loads the requested page of album's children and sets the Link
// header. It reports false after writing an error response.
func (h *Handler) children(c *gin.Context, album *models.Item) ([]models.Item, bool) {
	statuses, err := statusFilter(c)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	req, err := parsePage(c)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	children, count, err := h.lib.Children(c.Request.Context(), album, statuses, req.Index*req.PerPage, req.PerPage)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if _, err := h.resolvePage(c, req, int(count)); err != nil {
		h.fail(c, err)
		return nil, false
	}
	return children, true
}

func (h *Handler) renderAlbum(c *gin.Context, status int, album *models.Item, children []models.Item) {
	path, err := h.lib.Path(c.Request.Context(), album)
	if err != nil {
		h.fail(c, err)
		return
	}
	view := h.albumView(c, album, path, children)
	if wantsHTML(c) {
		c.HTML(status, "album.html", gin.H{"Album": view, "Children": h.links(c, children)})
		return
	}
	writeJSON(c, status, view)
}

// lookup loads the :id item of kind, honoring visibility. It reports false
// after writing an error response.
func (h *Handler) lookup(c *gin.Context, kind models.Kind) (*models.Item, bool) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	it, err := h.lib.Lookup(c.Request.Context(), kind, id, middleware.Authorized(c))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return it, true
}

// parentFrom reads parent_id of a creation request. A parent that does not
// exist is reported as not found.
func (h *Handler) parentFrom(c *gin.Context, fields map[string]any) (*uint, error) {
	parentID, err := models.ParentIDFrom(fields["parent_id"])
	if err != nil || parentID == nil {
		return parentID, err
	}
	if _, err := h.lib.Lookup(c.Request.Context(), models.KindAlbum, *parentID, true); err != nil {
		return nil, err
	}
	return parentID, nil
}

func (h *Handler) updateItem(c *gin.Context, kind models.Kind) {
	it, ok := h.lookup(c, kind)
	if !ok {
		return
	}
	fields, err := h.bindFields(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := kind.CheckFields(fields, c.Request.Method == http.MethodPut); err != nil {
		h.fail(c, err)
		return
	}
	if it.IsAlbum() {
		// Reject a bad children query before anything is written.
		if _, err := statusFilter(c); err != nil {
			h.fail(c, err)
			return
		}
		if _, err := parsePage(c); err != nil {
			h.fail(c, err)
			return
		}
	}
	if err := h.lib.UpdateItem(c.Request.Context(), it, fields); err != nil {
		h.fail(c, err)
		return
	}
	h.renderItem(c, http.StatusOK, it)
}

func (h *Handler) deleteItem(c *gin.Context, kind models.Kind) {
	it, ok := h.lookup(c, kind)
	if !ok {
		return
	}
	if err := h.lib.DeleteItem(c.Request.Context(), it); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// renderItem writes the representation of it. Albums carry the children
// page selected by the request query, as on GET.
func (h *Handler) renderItem(c *gin.Context, status int, it *models.Item) {
	if it.IsMedia() {
		h.renderMedia(c, status, it)
		return
	}
	children, ok := h.children(c, it)
	if !ok {
		return
	}
	h.renderAlbum(c, status, it, children)
}
