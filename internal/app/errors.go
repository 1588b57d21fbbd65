package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/pkg"
)

// renderError answers a failed request from outside a module: unknown routes
// and the language switch. Explicit JSON clients get the response envelope;
// everyone else gets the matching error page, or plain text when no page can
// be rendered.
func renderError(c *gin.Context, code int, message string) {
	if wantsJSON(c) || !acceptsHTML(c) {
		c.JSON(code, pkg.Response{Code: code, Message: message})
		return
	}
	renderErrorPage(c, code, message)
}

func renderErrorPage(c *gin.Context, code int, message string) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8",
				[]byte(fmt.Sprintf("%d %s", code, statusText(code))))
		}
	}()
	c.HTML(code, pkg.PageTemplate(code), gin.H{"Message": message})
}

// wantsJSON reports an Accept header that asks for JSON and not HTML. It
// runs before acceptsHTML, which also matches */*.
func wantsJSON(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// acceptsHTML matches text/html, */* and an empty Accept header.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "*/*") ||
		strings.TrimSpace(accept) == ""
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Error"
}
