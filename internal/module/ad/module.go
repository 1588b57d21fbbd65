package ad

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/middleware"
)

// AdModule implements the app.Module interface for the ad domain.
type AdModule struct {
	handler     *AdHandler
	pageHandler *AdPageHandler
}

// NewModule creates a new AdModule with the given handlers.
// Panics if h or ph is nil.
func NewModule(h *AdHandler, ph *AdPageHandler) *AdModule {
	if h == nil {
		panic("ad.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("ad.NewModule: pageHandler must not be nil")
	}
	return &AdModule{handler: h, pageHandler: ph}
}

// RegisterRoutes registers ad API and page routes.
func (m *AdModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	// API routes
	api.GET("/ads", m.handler.List)
	api.GET("/ads/:id", m.handler.Get)
	api.POST("/ads", middleware.RequireAuth(), m.handler.Create)

	owned := api.Group("/ads/:id", middleware.RequireAuth())
	owned.PUT("", m.handler.Update)
	owned.DELETE("", m.handler.Delete)
	owned.POST("/entries", m.handler.AddEntry)
	owned.PUT("/entries/:language", m.handler.EditEntry)
	owned.DELETE("/entries/:language", m.handler.DeleteEntry)
	owned.POST("/images", m.handler.AddImage)
	owned.PUT("/images", m.handler.ReorderImages)
	owned.DELETE("/images/:number", m.handler.DeleteImage)
	owned.POST("/images/:number/move", m.handler.MoveImage)

	// Page routes
	if pages != nil {
		pages.GET("/", m.pageHandler.Index)
		pages.GET("/users/:username/ads", m.pageHandler.UserAds)
		pages.GET("/ads/:id", m.pageHandler.Detail)
	}
}
