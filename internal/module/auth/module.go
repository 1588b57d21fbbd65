package auth

import "github.com/gin-gonic/gin"

// AuthModule serves sign-in and sign-up under /api/v1/auth and sign-out for
// both the API and the site pages.
type AuthModule struct {
	handler *AuthHandler
}

// NewModule panics if h is nil.
func NewModule(h *AuthHandler) *AuthModule {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	return &AuthModule{handler: h}
}

// RegisterRoutes registers the auth API routes and the page sign-out form
// target. Page routes run behind CSRF protection.
func (m *AuthModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	g := api.Group("/auth")
	g.POST("/login", m.handler.Login)
	g.POST("/register", m.handler.Register)
	g.POST("/logout", m.handler.Logout)

	pages.POST("/logout", m.handler.SignOut)
}
