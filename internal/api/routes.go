// Package api assembles the gin engine serving the album collections.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go-album-center/internal/api/handlers"
	"go-album-center/internal/api/middleware"
	"go-album-center/internal/websocket"
)

// Deps are the collaborators of the router.
type Deps struct {
	Handler       *handlers.Handler
	Authenticator middleware.Authenticator
	Metrics       *middleware.Metrics
	Notifications *websocket.Manager
	Log           zerolog.Logger
}

// NewRouter builds the engine with the middleware chain and every route.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(handlers.Templates())
	router.Use(middleware.RequestLogger(d.Log), gin.Recovery())
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	router.Use(middleware.Auth(d.Authenticator))

	SetupRoutes(router, d)
	return router
}

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, d Deps) {
	h := d.Handler
	setupPublicRoutes(router, h, d)

	// Mutating routes
	protected := router.Group("/")
	protected.Use(middleware.RequireAuth())
	setupProtectedRoutes(protected, h)
}

// setupPublicRoutes configures routes anyone may call. Visibility rules
// still apply to anonymous callers.
func setupPublicRoutes(router *gin.Engine, h *handlers.Handler, d Deps) {
	router.GET("/health", h.Health)
	router.GET("/token", h.IssueToken)
	if d.Notifications != nil {
		router.GET("/ws", func(c *gin.Context) {
			if err := d.Notifications.Serve(c.Writer, c.Request); err != nil {
				d.Log.Warn().Err(err).Msg("websocket upgrade failed")
			}
		})
	}

	router.GET("/albums", h.ListAlbums)
	router.GET("/albums/:id", h.GetAlbum)

	router.GET("/media", h.ListMedia)
	router.GET("/media/:id", h.GetMedia)
	router.GET("/media/:id/content", h.GetContent)
	router.GET("/media/:id/derivatives", h.ListDerivatives)
	router.GET("/media/:id/derivatives/:did", h.GetDerivative)
	router.GET("/media/:id/derivatives/:did/content", h.RenderDerivative)
}

// setupProtectedRoutes configures routes that require authorization
func setupProtectedRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.PUT("/order", h.OrderRoot)

	albums := rg.Group("/albums")
	{
		albums.POST("", h.CreateAlbum)
		albums.PUT("/:id", h.UpdateAlbum)
		albums.PATCH("/:id", h.UpdateAlbum)
		albums.DELETE("/:id", h.DeleteAlbum)
		albums.PUT("/:id/order", h.OrderAlbum)
	}

	media := rg.Group("/media")
	{
		media.POST("", h.CreateMedia)
		media.PUT("/:id", h.UpdateMedia)
		media.PATCH("/:id", h.UpdateMedia)
		media.DELETE("/:id", h.DeleteMedia)
		media.PUT("/:id/content", h.ReplaceContent)
		media.PATCH("/:id/content", h.ReplaceContent)

		media.POST("/:id/derivatives", h.CreateDerivative)
		media.PUT("/:id/derivatives/:did", h.UpdateDerivative)
		media.PATCH("/:id/derivatives/:did", h.UpdateDerivative)
		media.DELETE("/:id/derivatives/:did", h.DeleteDerivative)
	}

	export := rg.Group("/export")
	{
		export.GET("/csv", h.ExportCSV)
		export.GET("/json", h.ExportJSON)
	}
}
