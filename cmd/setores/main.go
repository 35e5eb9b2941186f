// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/pmce/setores-web/internal/apiclient"
	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/cache"
	"github.com/pmce/setores-web/internal/config"
	"github.com/pmce/setores-web/internal/handler"
	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/middleware"
	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/render"
	"github.com/pmce/setores-web/internal/scheduler"
	"github.com/pmce/setores-web/internal/service"
	"github.com/pmce/setores-web/internal/session"
	"github.com/pmce/setores-web/internal/store"
	"github.com/pmce/setores-web/internal/version"
	"github.com/pmce/setores-web/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "setores - PMCE sector administration\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_SESSION_SECRET        Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_API_URL               Backend REST API base URL (default: %s)\n", config.DefaultAPIURL)
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_API_TIMEOUT           Backend request timeout in seconds (default: 10)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_JWT_SECRET            Verify backend token signatures (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_DB_PATH               SQLite database path (default: ./data/setores.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_DEFAULT_LANG          UI language: pt|en (default: pt)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_REDIS_URL             Redis URL for shared view state (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SETORES_EVENT_RETENTION_DAYS  Days to keep event log entries (default: 90)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Printf("setores %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(versionInfo version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger, cfg.DefaultLang); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	eventService := service.NewEventService(db)

	sessionManager := session.New(db, cfg.IsDevelopment())

	if !cfg.VerifyTokens() {
		slog.Info("backend token signatures are not verified; set SETORES_JWT_SECRET to enable")
	}
	authStore := auth.NewStore(sessionManager, auth.NewDecoder(cfg.JWTSecret))

	apiClient := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.APITimeoutDuration(),
	}, apiclient.TokenFunc(authStore.Token))
	slog.Info("backend API client initialized", "base_url", apiClient.BaseURL(), "timeout", cfg.APITimeoutDuration())

	cacheCfg := cache.Config{
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
	}
	if cfg.UseRedisCache() {
		cacheCfg.RedisURL = cfg.RedisURL
	}
	viewCache, backend := cache.NewCache(cacheCfg)
	defer func() { _ = viewCache.Close() }()
	slog.Info("view state cache initialized", "backend", backend, logging.AttrCategory, model.EventCategoryCache)

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		Version:        versionInfo.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	contentFS, err := fs.Sub(web.Content, "content")
	if err != nil {
		return fmt.Errorf("getting content fs: %w", err)
	}
	homeHandler, err := handler.NewHomeHandler(renderer, contentFS)
	if err != nil {
		return fmt.Errorf("loading home page: %w", err)
	}

	sched := scheduler.New(eventService, cfg.EventRetention(), logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	authHandler := handler.NewAuthHandler(apiClient, authStore, renderer, eventService, loginProtection)
	sectorsHandler := handler.NewSectorsHandler(apiClient, renderer, sessionManager, viewCache, cfg.CacheTTLDuration(), eventService)
	authHandler.OnLogout(sectorsHandler.DropView)
	eventsHandler := handler.NewEventsHandler(db, renderer)
	languageHandler := handler.NewLanguageHandler(sessionManager)
	healthHandler := handler.NewHealthHandler(db, apiClient, versionInfo.Version).WithCache(viewCache, backend)

	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)

	// Static assets and probes need no session.
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(24*time.Hour)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))
	r.Get(handler.RouteHealthLive, healthHandler.Liveness)
	r.Get(handler.RouteHealthReady, healthHandler.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr())))
		r.Use(middleware.Language(sessionManager))
		r.Use(middleware.LoadSession(authStore))

		// Public routes
		r.Get(handler.RouteRoot, homeHandler.Home)
		r.Get(handler.RouteUnauthorized, authHandler.Unauthorized)
		r.Post(handler.RouteLanguage, languageHandler.SetLanguage)
		r.With(middleware.RequireAuth()).Post(handler.RouteLogout, authHandler.Logout)
		r.Get(handler.RouteHealth, healthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(loginProtection.Middleware())
			r.Get(handler.RouteLogin, authHandler.LoginForm)
			r.Post(handler.RouteLogin, authHandler.Login)
		})

		// The list is public; mutations are admin-only.
		r.Get(handler.RouteSectors, sectorsHandler.List)
		r.Post(handler.RouteSectorToggle, sectorsHandler.Toggle)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(eventService))

			r.Get(handler.RouteSectorNew, sectorsHandler.New)
			r.Post(handler.RouteSectorNew, sectorsHandler.Create)
			r.Get(handler.RouteSectorEdit, sectorsHandler.Edit)
			r.Post(handler.RouteSectorEdit, sectorsHandler.Update)
			r.Get(handler.RouteSectorDelete, sectorsHandler.ConfirmDelete)
			r.Post(handler.RouteSectorDelete, sectorsHandler.Delete)

			r.Get(handler.RouteEvents, eventsHandler.List)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		_ = eventService.LogSystemEvent(context.Background(), model.EventLevelInfo, "Server started",
			map[string]any{"version": versionInfo.Version, "cache": backend})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
