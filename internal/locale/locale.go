// Package locale resolves the display language of a request and picks
// localized ad entries.
package locale

import (
	"context"
	"log/slog"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"golang.org/x/text/language"

	"github.com/simp-lee/saleads/internal/domain"
)

// CookieName is the cookie that stores a chosen display language.
const CookieName = "lang"

const languageContextKey = "language"

// Config lists the languages the site is available in.
type Config struct {
	Default   string
	Supported []string
	// Preference orders languages for entry fallback. Empty means Supported.
	Preference []string
}

// DefaultConfig returns the built-in English and Russian setup.
func DefaultConfig() Config {
	return Config{Default: "en", Supported: []string{"en", "ru"}}
}

// Resolver picks a supported language for a request.
type Resolver struct {
	cfg     Config
	matcher language.Matcher
}

// NewResolver creates a Resolver for cfg.
func NewResolver(cfg Config) *Resolver {
	if len(cfg.Preference) == 0 {
		cfg.Preference = slices.Clone(cfg.Supported)
	}
	tags := make([]language.Tag, 0, len(cfg.Supported))
	for _, code := range cfg.Supported {
		tags = append(tags, language.Make(code))
	}
	return &Resolver{cfg: cfg, matcher: language.NewMatcher(tags)}
}

// Config returns the resolver configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Supported reports whether code is one of the configured languages.
func (r *Resolver) Supported(code string) bool {
	return slices.Contains(r.cfg.Supported, code)
}

// Resolve returns the display language: the cookie value when supported,
// then the best Accept-Language match, then the default.
func (r *Resolver) Resolve(cookie, acceptLanguage string) string {
	if r.Supported(cookie) {
		return cookie
	}
	if acceptLanguage != "" && len(r.cfg.Supported) > 0 {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := r.matcher.Match(tags...)
			if conf != language.No {
				return r.cfg.Supported[idx]
			}
		}
	}
	return r.cfg.Default
}

// Middleware resolves the display language of each request and stores it
// in the gin and request contexts.
func Middleware(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(CookieName)
		lang := r.Resolve(cookie, c.GetHeader("Accept-Language"))

		c.Set(languageContextKey, lang)
		ctx := WithLanguage(c.Request.Context(), lang)
		ctx = logger.WithContextAttrs(ctx, slog.String("language", lang))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

type languageKey struct{}

// WithLanguage returns a copy of ctx carrying the display language.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// FromContext returns the display language stored in ctx, or fallback.
func FromContext(ctx context.Context, fallback string) string {
	if lang, ok := ctx.Value(languageKey{}).(string); ok && lang != "" {
		return lang
	}
	return fallback
}

// Current returns the display language of a gin request.
func Current(c *gin.Context) string {
	if v, ok := c.Get(languageContextKey); ok {
		if lang, ok := v.(string); ok {
			return lang
		}
	}
	return FromContext(c.Request.Context(), "")
}

// PickEntry returns the entry in the requested language, else the first
// available one in preference order, else any entry.
func PickEntry(entries []domain.AdEntry, requested string, preference []string) (domain.AdEntry, bool) {
	if len(entries) == 0 {
		return domain.AdEntry{}, false
	}
	byLang := make(map[string]domain.AdEntry, len(entries))
	for _, e := range entries {
		byLang[e.Language] = e
	}
	if e, ok := byLang[requested]; ok {
		return e, true
	}
	for _, lang := range preference {
		if e, ok := byLang[lang]; ok {
			return e, true
		}
	}
	return entries[0], true
}
