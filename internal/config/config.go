package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	I18n     I18nConfig     `koanf:"i18n"`
	Ads      AdsConfig      `koanf:"ads"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	CSRFSecret string `koanf:"csrf_secret"`
	Timeout    string `koanf:"timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds token authentication settings. With auth disabled every
// request is anonymous and the account routes are not registered.
type AuthConfig struct {
	Enabled     bool   `koanf:"enabled"`
	JWTSecret   string `koanf:"jwt_secret"`
	TokenExpiry string `koanf:"token_expiry"`
}

// I18nConfig holds the languages ads are written and displayed in.
type I18nConfig struct {
	DefaultLanguage string `koanf:"default_language"`
	// Languages are the supported language codes in preference order.
	// Empty means English and Russian.
	Languages []string `koanf:"languages"`
}

// AdsConfig holds ad publishing settings.
type AdsConfig struct {
	// AutoVerify publishes new ads without moderation.
	AutoVerify bool `koanf:"auto_verify"`
}

// envPrefix marks environment overrides. A double underscore separates
// levels and a single one stays in the key, so APP__SERVER__PORT=9090 sets
// server.port and APP__DATABASE__POOL__MAX_IDLE_CONNS=20 sets
// database.pool.max_idle_conns.
const envPrefix = "APP__"

// Load reads the YAML file at configPath, overlays the environment and
// validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes every section in place and reports the first invalid
// setting. Release mode additionally demands encrypted postgres connections
// and a mixed-class token secret.
func (c *Config) Validate() error {
	mode, err := oneOf("server.mode", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	if err != nil {
		return err
	}
	c.Server.Mode = mode
	release := mode == gin.ReleaseMode

	checks := []func() error{
		c.Server.validate,
		func() error { return c.Database.validate(release) },
		func() error { return c.Auth.validate(release) },
		c.Log.validate,
		c.I18n.validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if err := checkPort("server.port", s.Port); err != nil {
		return err
	}
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	var err error
	s.Timeout, err = optionalDuration("server.timeout", s.Timeout)
	return err
}

func (d *DatabaseConfig) validate(release bool) error {
	switch d.Driver {
	case "sqlite":
		d.SQLite.Path = strings.TrimSpace(d.SQLite.Path)
		if d.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
	case "postgres":
		if err := d.Postgres.validate(release); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", d.Driver, "sqlite", "postgres")
	}

	var err error
	d.Pool.ConnMaxLifetime, err = optionalDuration("database.pool.conn_max_lifetime", d.Pool.ConnMaxLifetime)
	return err
}

var (
	sslModes          = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	encryptedSSLModes = []string{"require", "verify-ca", "verify-full"}
)

func (p *PostgresConfig) validate(release bool) error {
	required := []struct {
		field string
		value *string
	}{{"host", &p.Host}, {"user", &p.User}, {"dbname", &p.DBName}}
	for _, r := range required {
		*r.value = strings.TrimSpace(*r.value)
		if *r.value == "" {
			return fmt.Errorf("database.postgres.%s is required when driver is postgres", r.field)
		}
	}
	if err := checkPort("database.postgres.port", p.Port); err != nil {
		return err
	}

	mode, err := oneOf("database.postgres.sslmode", p.SSLMode, sslModes...)
	if err != nil {
		return err
	}
	if release && !slices.Contains(encryptedSSLModes, mode) {
		return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q", p.SSLMode, gin.ReleaseMode, encryptedSSLModes)
	}
	p.SSLMode = mode
	return nil
}

func (a *AuthConfig) validate(release bool) error {
	if !a.Enabled {
		return nil
	}

	a.JWTSecret = strings.TrimSpace(a.JWTSecret)
	switch {
	case a.JWTSecret == "":
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	case len(a.JWTSecret) < 32:
		return fmt.Errorf("invalid auth.jwt_secret: must be at least 32 characters")
	case release && CountSecretClasses(a.JWTSecret) < 3:
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}

	expiry, err := optionalDuration("auth.token_expiry", a.TokenExpiry)
	if err != nil {
		return err
	}
	if expiry == "" {
		return fmt.Errorf("auth.token_expiry is required when auth is enabled")
	}
	a.TokenExpiry = expiry
	return nil
}

func (l *LogConfig) validate() error {
	level, err := oneOf("log.level", strings.ToLower(l.Level), "debug", "info", "warn", "error")
	if err != nil {
		return err
	}
	format, err := oneOf("log.format", strings.ToLower(l.Format), "text", "json")
	if err != nil {
		return err
	}
	l.Level, l.Format = level, format
	return nil
}

// oneOf trims v and requires it to be one of allowed.
func oneOf(field, v string, allowed ...string) (string, error) {
	trimmed := strings.TrimSpace(v)
	if !slices.Contains(allowed, trimmed) {
		return "", fmt.Errorf("invalid %s %q: must be one of %q", field, v, allowed)
	}
	return trimmed, nil
}

func checkPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s %d: must be between 1 and 65535", field, port)
	}
	return nil
}

// optionalDuration trims v; blank means unset, anything else must be a
// positive duration.
func optionalDuration(field, v string) (string, error) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "", nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	if d <= 0 {
		return "", fmt.Errorf("invalid %s %q: must be greater than 0", field, v)
	}
	return trimmed, nil
}

var defaultLanguages = []string{"en", "ru"}

// validate normalizes language codes and requires the default language to be
// one of the supported ones.
func (c *I18nConfig) validate() error {
	languages := make([]string, 0, len(c.Languages))
	for idx, lang := range c.Languages {
		code := strings.ToLower(strings.TrimSpace(lang))
		if code == "" {
			return fmt.Errorf("i18n.languages[%d] cannot be empty", idx)
		}
		if len(code) > 10 {
			return fmt.Errorf("invalid i18n.languages[%d] %q: must be at most 10 characters", idx, lang)
		}
		if !slices.Contains(languages, code) {
			languages = append(languages, code)
		}
	}
	if len(languages) == 0 {
		languages = slices.Clone(defaultLanguages)
	}
	c.Languages = languages

	def := strings.ToLower(strings.TrimSpace(c.DefaultLanguage))
	if def == "" {
		def = languages[0]
	}
	if !slices.Contains(languages, def) {
		return fmt.Errorf("invalid i18n.default_language %q: must be one of %q", c.DefaultLanguage, languages)
	}
	c.DefaultLanguage = def
	return nil
}

// CountSecretClasses counts the character classes in secret: lowercase,
// uppercase, digit and anything else.
func CountSecretClasses(secret string) int {
	var seen [4]bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			seen[0] = true
		case unicode.IsUpper(r):
			seen[1] = true
		case unicode.IsDigit(r):
			seen[2] = true
		default:
			seen[3] = true
		}
	}
	classes := 0
	for _, ok := range seen {
		if ok {
			classes++
		}
	}
	return classes
}
