package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/middleware"
	"github.com/simp-lee/saleads/internal/pkg"
)

// AuthHandler handles REST API requests for authentication.
type AuthHandler struct {
	svc          Service
	secureCookie bool
}

// NewHandler creates a new AuthHandler with the given service. secureCookie
// marks the token cookie Secure; set it when serving over HTTPS.
func NewHandler(svc Service, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, secureCookie: secureCookie}
}

// Login handles POST /api/v1/auth/login. Besides returning the token, it
// stores it in a cookie so page requests are authenticated too.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	tokenResp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	maxAge := int(time.Until(time.Unix(tokenResp.ExpiresAt, 0)).Seconds())
	if maxAge > 0 {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookieName, tokenResp.Token, maxAge, "/", "", h.secureCookie, true)
	}

	pkg.Success(c, tokenResp)
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, "user registered successfully", RegisterResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// Logout handles POST /api/v1/auth/logout by clearing the token cookie.
// Bearer tokens stay valid until they expire.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookieName, "", -1, "/", "", h.secureCookie, true)
	pkg.Success(c, nil)
}

// SignOut handles POST /logout from the site pages: it clears the token
// cookie and sends the browser back to the listing.
func (h *AuthHandler) SignOut(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookieName, "", -1, "/", "", h.secureCookie, true)
	c.Redirect(http.StatusSeeOther, "/")
}
