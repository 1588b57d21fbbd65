package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

var errPanic = domain.NewAppError(domain.CodeInternal, "internal server error", nil)

// Recovery turns a panicking handler into a 500: the 500 page for browsers,
// the response envelope for everyone else. The panic and its stack are logged.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(stack)),
				)

				c.Abort()

				if acceptsHTML(c) {
					renderHTMLError(c)
				} else {
					pkg.Error(c, errPanic)
				}
			}
		}()
		c.Next()
	}
}

// renderHTMLError renders the 500 page, falling back to plain text when no
// HTML renderer is configured.
func renderHTMLError(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	pkg.PageError(c, errPanic)
}

// acceptsHTML matches an explicit text/html; API clients sending */* get JSON.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html")
}
