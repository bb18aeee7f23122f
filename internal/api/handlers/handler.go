package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"go-album-center/internal/api/middleware"
	"go-album-center/internal/apperr"
	"go-album-center/internal/config"
	"go-album-center/internal/models"
	"go-album-center/internal/pagination"
	"go-album-center/internal/service"
	"go-album-center/internal/utils"
)

const maxBodyOverhead = 1 << 20

// Handler serves the collection API on top of a Library.
type Handler struct {
	lib     *service.Library
	auth    config.AuthConfig
	baseURL string
	maxBody int64
	now     func() time.Time
	log     zerolog.Logger
}

func New(lib *service.Library, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		lib:     lib,
		auth:    cfg.Auth,
		baseURL: strings.TrimRight(cfg.Server.BaseURL, "/"),
		// base64 inflates content by a third.
		maxBody: cfg.Storage.MaxUploadSize*4/3 + maxBodyOverhead,
		now:     time.Now,
		log:     log,
	}
}

// fail reports err with the status of its class. Unclassified errors are
// logged and hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", middleware.RequestID(c)).Msg("request failed")
		msg = http.StatusText(status)
	}
	_ = c.Error(err)
	if wantsHTML(c) {
		c.HTML(status, "error.html", gin.H{"Status": status, "Message": msg})
		c.Abort()
		return
	}
	writeJSON(c, status, gin.H{"error": msg})
	c.Abort()
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to encode response"})
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}

func wantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

// pathID reads a positive integer path parameter; anything else is a 404.
func pathID(c *gin.Context, name string) (uint, error) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		return 0, apperr.NotFound("%s %q", name, c.Param(name))
	}
	return id, nil
}

func (h *Handler) readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("request body exceeds %d bytes", h.maxBody)
		}
		return nil, apperr.Validation("failed to read request body: %v", err)
	}
	return body, nil
}

// bindFields decodes a JSON object body.
func (h *Handler) bindFields(c *gin.Context) (map[string]any, error) {
	body, err := h.readBody(c)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, apperr.Validation("request body must be a JSON object")
	}
	return fields, nil
}

// checkCreate requires the kind's creation fields and rejects anything not
// in allowed.
func checkCreate(kind models.Kind, fields map[string]any, allowed []string) error {
	for name := range fields {
		found := false
		for _, a := range allowed {
			if a == name {
				found = true
				break
			}
		}
		if !found {
			return apperr.Validation("unexpected field %q", name)
		}
	}
	for _, name := range kind.CreateFields() {
		if _, ok := fields[name]; !ok {
			return apperr.Validation("missing field %q", name)
		}
	}
	return nil
}

// statusFilter parses the children query parameter. Anonymous callers may
// only use the default filter.
func statusFilter(c *gin.Context) ([]models.Status, error) {
	raw := strings.TrimSpace(c.Query("children"))
	if raw == "" {
		return []models.Status{models.StatusPublished}, nil
	}

	var statuses []models.Status
	if raw == "all" {
		statuses = append(statuses, models.Statuses...)
	} else {
		seen := map[models.Status]bool{}
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			if !seen[status] {
				seen[status] = true
				statuses = append(statuses, status)
			}
		}
	}

	isDefault := len(statuses) == 1 && statuses[0] == models.StatusPublished
	if !isDefault && !middleware.Authorized(c) {
		return nil, fmt.Errorf("%w: children filter %q requires authorization", apperr.ErrUnauthorized, raw)
	}
	return statuses, nil
}

// parsePage validates page/per_page before the collection is queried.
func parsePage(c *gin.Context) (pagination.Request, error) {
	return pagination.Parse(c.Query("page"), c.Query("per_page"))
}

// resolvePage checks the request against count and sets the Link header.
func (h *Handler) resolvePage(c *gin.Context, req pagination.Request, count int) (pagination.Page, error) {
	page, err := req.Resolve(count)
	if err != nil {
		return pagination.Page{}, err
	}
	if links := page.Links(h.requestURL(c)); len(links) > 0 {
		c.Header("Link", pagination.Header(links))
	}
	return page, nil
}

func (h *Handler) origin(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + c.Request.Host
}

func (h *Handler) requestURL(c *gin.Context) *url.URL {
	u, err := url.Parse(h.origin(c) + c.Request.URL.RequestURI())
	if err != nil {
		return &url.URL{Path: c.Request.URL.Path, RawQuery: c.Request.URL.RawQuery}
	}
	return u
}

// location is the absolute URL of a resource path.
func (h *Handler) location(c *gin.Context, format string, args ...any) string {
	return h.origin(c) + fmt.Sprintf(format, args...)
}
