package middleware

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

// TokenCookieName is the cookie that carries the access token for page requests.
const TokenCookieName = "token"

const principalContextKey = "principal"

// TokenParser validates an access token and returns the principal it names.
type TokenParser interface {
	ParseToken(token string) (*domain.Principal, error)
}

// Authenticate returns a gin middleware that resolves the caller from a
// Bearer token or the token cookie. Requests without a valid token continue
// anonymously; use RequireAuth to reject them.
func Authenticate(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || parser == nil {
			c.Next()
			return
		}

		p, err := parser.ParseToken(token)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "ignoring invalid access token", slog.String("error", err.Error()))
			c.Next()
			return
		}

		c.Set(principalContextKey, p)
		ctx := domain.WithPrincipal(c.Request.Context(), p)
		ctx = logger.WithContextAttrs(ctx, slog.Uint64("user_id", uint64(p.UserID)))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAuth aborts with 401 unless Authenticate resolved a principal.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			pkg.Error(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff aborts with 401 for anonymous callers and 403 for non-staff users.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			pkg.Error(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}
		if !p.Staff {
			pkg.Error(c, domain.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal resolved for this request, if any.
func CurrentPrincipal(c *gin.Context) (*domain.Principal, bool) {
	v, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*domain.Principal)
	return p, ok && p != nil
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(TokenCookieName); err == nil {
		return cookie
	}
	return ""
}
