package category

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/middleware"
)

// CategoryModule implements the app.Module interface for the category domain.
type CategoryModule struct {
	handler *CategoryHandler
}

// NewModule creates a new CategoryModule with the given handler.
// Panics if h is nil.
func NewModule(h *CategoryHandler) *CategoryModule {
	if h == nil {
		panic("category.NewModule: handler must not be nil")
	}
	return &CategoryModule{handler: h}
}

// RegisterRoutes registers category API routes. Creating a category requires
// a staff account.
func (m *CategoryModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	categories := api.Group("/categories")
	categories.GET("", m.handler.Tree)
	categories.GET("/:id", m.handler.Get)
	categories.POST("", middleware.RequireAuth(), middleware.RequireStaff(), m.handler.Create)
}
