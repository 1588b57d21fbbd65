package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/saleads/internal/locale"
	"github.com/simp-lee/saleads/internal/middleware"
	"github.com/simp-lee/saleads/internal/pkg"
	"github.com/simp-lee/saleads/web"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules    []Module
	DB         *gorm.DB
	Mode       string // "debug" or "release"
	CSRFSecret string
	// Resolver validates the language chosen on POST /language.
	Resolver *locale.Resolver
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}

	if err := registerStatic(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}
	r.GET("/health", healthHandler(deps.DB))

	// Page forms carry a CSRF token; the JSON API authenticates by bearer token.
	api := r.Group("/api/v1")
	pages := r.Group("/", middleware.CSRF(deps.CSRFSecret))
	if deps.Resolver != nil {
		pages.POST("/language", languageHandler(deps.Resolver, deps.Mode == gin.ReleaseMode))
	}
	for _, m := range deps.Modules {
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(noRouteHandler())
	return nil
}

// healthHandler reports whether the ad store answers a ping within a second.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := pingStore(ctx, db); err != nil {
			slog.WarnContext(ctx, "health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "degraded",
				"components": gin.H{"database": "error"},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"components": gin.H{"database": "ok"},
		})
	}
}

func pingStore(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// languageCookieMaxAge keeps a chosen language for a year.
const languageCookieMaxAge = 365 * 24 * 60 * 60

// languageHandler stores the chosen display language in a cookie and
// redirects back to the local path in the "next" form field.
func languageHandler(resolver *locale.Resolver, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := strings.ToLower(strings.TrimSpace(c.PostForm("language")))
		if !resolver.Supported(lang) {
			renderError(c, http.StatusBadRequest, "unsupported language")
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(locale.CookieName, lang, languageCookieMaxAge, "/", "", secure, true)
		c.Redirect(http.StatusSeeOther, safeRedirectPath(c.PostForm("next")))
	}
}

// safeRedirectPath returns next when it is a path on this site, else "/".
func safeRedirectPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// noRouteHandler returns a handler that renders a 404 HTML page for browser
// requests or a JSON response for API clients.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
			return
		}

		renderError(c, http.StatusNotFound, "not found")
	}
}

// registerStatic serves /static from the source tree in debug mode and from
// the embedded assets, with a day of caching, otherwise.
func registerStatic(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		webFS, err := resolveDebugWebFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		staticFS, err := fs.Sub(webFS, "static")
		if err != nil {
			return fmt.Errorf("create sub filesystem for static assets: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(staticFS)))
		r.GET("/static/*filepath", gin.WrapH(fileServer))
		return nil
	}

	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("create sub filesystem for static assets: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

// cacheStaticHandler serves fsys under /static with a Cache-Control header.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
