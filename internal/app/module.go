package app

import "github.com/gin-gonic/gin"

// Module is a feature area of the site. New calls RegisterRoutes once with
// the /api/v1 group and the CSRF-protected page group.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
