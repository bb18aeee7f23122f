package handlers

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-album-center/internal/models"
	"go-album-center/internal/processor"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the HTML representations.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html"))
}

type itemView struct {
	ID         uint          `json:"id"`
	Type       models.Kind   `json:"type"`
	Name       string        `json:"name"`
	ParentID   *uint         `json:"parent_id"`
	Status     models.Status `json:"status"`
	Rank       int           `json:"rank"`
	CreatedAt  time.Time     `json:"created_at"`
	ModifiedAt *time.Time    `json:"modified_at"`
	Path       []string      `json:"path"`
}

type albumView struct {
	itemView
	Children []string `json:"children"`
}

type mediaView struct {
	itemView
	Author      string          `json:"author"`
	Keywords    models.Keywords `json:"keywords"`
	Filename    string          `json:"filename"`
	Content     string          `json:"content"`
	Derivatives string          `json:"derivatives"`
}

type derivativeView struct {
	MediaID    uint                 `json:"media_id"`
	ID         uint                 `json:"id"`
	Operations processor.Operations `json:"operations"`
	Content    string               `json:"content"`
}

type linkView struct {
	Name     string
	Location string
	Status   models.Status
}

func newItemView(it *models.Item, path []string) itemView {
	if path == nil {
		path = []string{}
	}
	return itemView{
		ID:         it.ID,
		Type:       it.Type,
		Name:       it.Name,
		ParentID:   it.ParentID,
		Status:     it.Status,
		Rank:       it.Rank,
		CreatedAt:  it.CreatedAt,
		ModifiedAt: it.ModifiedAt,
		Path:       path,
	}
}

func (h *Handler) itemLocation(c *gin.Context, it *models.Item) string {
	if it.IsMedia() {
		return h.location(c, "/media/%d", it.ID)
	}
	return h.location(c, "/albums/%d", it.ID)
}

func (h *Handler) derivativeLocation(c *gin.Context, d *models.Derivative) string {
	return h.location(c, "/media/%d/derivatives/%d", d.MediaID, d.ID)
}

func (h *Handler) mediaView(c *gin.Context, it *models.Item, path []string) mediaView {
	keywords := it.Keywords
	if keywords == nil {
		keywords = models.Keywords{}
	}
	return mediaView{
		itemView:    newItemView(it, path),
		Author:      it.Author,
		Keywords:    keywords,
		Filename:    it.Filename,
		Content:     h.location(c, "/media/%d/content", it.ID),
		Derivatives: h.location(c, "/media/%d/derivatives", it.ID),
	}
}

func (h *Handler) albumView(c *gin.Context, it *models.Item, path []string, children []models.Item) albumView {
	locations := make([]string, 0, len(children))
	for i := range children {
		locations = append(locations, h.itemLocation(c, &children[i]))
	}
	return albumView{itemView: newItemView(it, path), Children: locations}
}

func (h *Handler) derivativeView(c *gin.Context, d *models.Derivative) derivativeView {
	ops := d.Operations
	if ops == nil {
		ops = processor.Operations{}
	}
	return derivativeView{
		MediaID:    d.MediaID,
		ID:         d.ID,
		Operations: ops,
		Content:    h.derivativeLocation(c, d) + "/content",
	}
}

func (h *Handler) links(c *gin.Context, items []models.Item) []linkView {
	out := make([]linkView, 0, len(items))
	for i := range items {
		out = append(out, linkView{Name: items[i].Name, Location: h.itemLocation(c, &items[i]), Status: items[i].Status})
	}
	return out
}
