package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"gorm.io/gorm"

	"github.com/simp-lee/saleads/internal/config"
	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/locale"
	"github.com/simp-lee/saleads/internal/middleware"
	"github.com/simp-lee/saleads/internal/module/ad"
	"github.com/simp-lee/saleads/internal/module/auth"
	"github.com/simp-lee/saleads/internal/module/category"
	"github.com/simp-lee/saleads/internal/module/user"
	"github.com/simp-lee/saleads/web"
)

// App is the assembled board: HTTP engine, ad store and logger.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
	// issuer signs access tokens; nil when auth is disabled.
	issuer *auth.JWTIssuer
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = signal.NotifyContext

// wiring is what the feature modules hand back to New.
type wiring struct {
	modules  []Module
	resolver *locale.Resolver
	issuer   *auth.JWTIssuer
}

// New assembles the board from cfg. Anything opened before a failure is
// closed again.
func New(cfg *config.Config) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if err != nil {
			closeLogger(log)
		}
	}()
	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior")
	}

	db, err := openStore(cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			closeStore(db, log.Logger)
		}
	}()

	w, err := wire(cfg, db, log.Logger)
	if err != nil {
		return nil, err
	}
	csrfSecret, err := resolveCSRFSecret(cfg.Server, log.Logger)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(cfg, w, log.Logger)
	if err != nil {
		return nil, err
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    w.modules,
		DB:         db,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
		Resolver:   w.resolver,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &App{engine: engine, db: db, logger: log, cfg: cfg, issuer: w.issuer}, nil
}

// openStore connects the database and, in debug mode only, migrates it.
func openStore(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	db, err := config.SetupDatabase(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	if cfg.Server.Mode != gin.DebugMode {
		return db, nil
	}
	if err := db.AutoMigrate(migrationModels()...); err != nil {
		closeStore(db, log)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("auto migration completed")
	return db, nil
}

// migrationModels lists the tables created by AutoMigrate, parents first.
func migrationModels() []any {
	return []any{
		&domain.User{},
		&domain.Category{},
		&domain.Ad{},
		&domain.AdEntry{},
		&domain.AdImage{},
	}
}

// wire builds repositories, services and handlers for every feature module.
// The account routes exist only with auth enabled.
func wire(cfg *config.Config, db *gorm.DB, log *slog.Logger) (*wiring, error) {
	localeCfg := locale.DefaultConfig()
	if len(cfg.I18n.Languages) > 0 {
		localeCfg.Supported = cfg.I18n.Languages
		localeCfg.Default = cfg.I18n.DefaultLanguage
		if localeCfg.Default == "" {
			localeCfg.Default = localeCfg.Supported[0]
		}
	}
	languages := localeCfg.Supported
	w := &wiring{resolver: locale.NewResolver(localeCfg)}

	userRepo := user.NewUserRepository(db)
	userSvc := user.NewUserService(userRepo)
	categoryRepo := category.NewCategoryRepository(db)
	categorySvc := category.NewService(categoryRepo, log)
	adRepo := ad.NewAdRepository(db)
	adSvc := ad.NewService(adRepo, categoryRepo, languages, cfg.Ads.AutoVerify, log)
	listing := ad.NewListingService(adRepo, categorySvc, languages, log)

	w.modules = []Module{
		category.NewModule(category.NewHandler(categorySvc, adRepo)),
		ad.NewModule(ad.NewHandler(adSvc, listing), ad.NewPageHandler(adSvc, listing, userSvc, w.resolver)),
		user.NewModule(user.NewUserHandler(userSvc)),
	}

	if !cfg.Auth.Enabled {
		log.Warn("authentication disabled: every request is anonymous")
		return w, nil
	}
	expiry, err := time.ParseDuration(cfg.Auth.TokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse auth.token_expiry: %w", err)
	}
	w.issuer = auth.NewJWTIssuer(cfg.Auth.JWTSecret, expiry)
	authSvc := auth.NewService(w.issuer, userRepo, log)
	w.modules = append(w.modules, auth.NewModule(auth.NewHandler(authSvc, cfg.Server.Mode == gin.ReleaseMode)))
	return w, nil
}

// resolveCSRFSecret returns the configured page-form secret. Release mode
// requires a real one; elsewhere a missing secret is replaced by a random
// one that lasts until restart.
func resolveCSRFSecret(server config.ServerConfig, log *slog.Logger) (string, error) {
	secret := server.CSRFSecret
	release := server.Mode == gin.ReleaseMode

	if isPlaceholderCSRFSecret(secret) {
		if release {
			return "", errors.New("csrf_secret must be a non-placeholder value in release mode")
		}
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate csrf secret: %w", err)
		}
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
		return hex.EncodeToString(b), nil
	}

	if release {
		if len(strings.TrimSpace(secret)) < 32 {
			return "", errors.New("csrf_secret must be at least 32 characters in release mode")
		}
		if config.CountSecretClasses(secret) < 3 {
			return "", errors.New("csrf_secret must include at least 3 character classes in release mode")
		}
	}
	return secret, nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	switch strings.ToLower(strings.TrimSpace(secret)) {
	case "", "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

// newEngine builds the gin engine with the middleware chain and page renderer.
func newEngine(cfg *config.Config, w *wiring, log *slog.Logger) (*gin.Engine, error) {
	var timeout time.Duration
	if t := strings.TrimSpace(cfg.Server.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("parse server.timeout: %w", err)
		}
		timeout = d
	}

	var tokens middleware.TokenParser
	if w.issuer != nil {
		tokens = w.issuer
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{TrustUpstream: false}),
		middleware.Logger(log),
		middleware.Timeout(timeout),
		locale.Middleware(w.resolver),
		middleware.Authenticate(tokens),
	)

	debug := cfg.Server.Mode == gin.DebugMode
	var fsys fs.FS = web.EmbeddedFS
	if debug {
		var err error
		if fsys, err = resolveDebugWebFS(); err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	}
	renderer, err := NewTemplateRenderer(fsys, debug)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer
	return engine, nil
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// resolveDebugWebFS finds web/ in the source tree, or next to the binary.
func resolveDebugWebFS() (fs.FS, error) {
	var candidates []string
	if _, file, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), "..", "..", "web"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "web"))
	}
	for _, dir := range candidates {
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			return os.DirFS(filepath.Clean(dir)), nil
		}
	}
	return nil, errors.New("debug web directory not found")
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts the server down within
// five seconds and closes the database and the logger.
func (a *App) Run() error {
	switch {
	case a == nil:
		return errors.New("app is nil")
	case a.cfg == nil:
		return errors.New("app config is nil")
	case a.engine == nil:
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if a.db != nil {
		closeStore(a.db, log)
	}
	log.Info("server stopped")
	if a.logger != nil {
		closeLogger(a.logger)
	}
	return runErr
}

func closeStore(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("database close error", slog.Any("error", err))
		return
	}
	log.Info("database connection closed")
}

func closeLogger(l *logger.Logger) {
	if err := l.Close(); err != nil {
		slog.Error("logger close error", slog.Any("error", err))
	}
}
