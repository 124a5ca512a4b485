// Package app provides the main application struct for centralized dependency
// management and lifecycle control of the linkguard service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"linkguard/config"
	"linkguard/internal/auth"
	"linkguard/internal/cache"
	"linkguard/internal/history"
	"linkguard/internal/notify"
	"linkguard/internal/router"
	"linkguard/internal/scanner"
	"linkguard/internal/sched"
	"linkguard/internal/server"
	"linkguard/internal/settings"
	"linkguard/internal/stats"
	"linkguard/internal/storage"
	"linkguard/internal/tabs"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config    *config.Config
	events    *notify.Broadcaster
	cache     *cache.Cache
	stats     *stats.Tracker
	auth      *auth.Reconciler
	settings  *settings.Manager
	tabs      *tabs.Coordinator
	storage   storage.Storage
	history   history.Store
	scheduler *sched.Daily
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	app := &App{
		config: cfg,
		events: notify.NewBroadcaster(),
	}
	notifier := notify.NewBroadcastNotifier(app.events)

	app.settings = settings.NewManager(storage.NewJSONFile(cfg.StateFile("settings.json")))

	app.auth = auth.New(auth.Options{
		File:     storage.NewJSONFile(cfg.StateFile("auth.json")),
		Events:   app.events,
		Notifier: notifier,
	})

	cacheStore, err := newCacheStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	app.cache = cache.New(cache.Options{Store: cacheStore})
	app.cache.Restore(ctx)

	app.stats = stats.New(stats.Options{
		File: storage.NewJSONFile(cfg.StateFile("stats.json")),
	})

	// Scan history is best-effort: a storage failure leaves the service
	// running without history rather than refusing to start.
	var recorder scanner.HistoryRecorder
	if err := app.initHistory(ctx, cfg); err != nil {
		slog.Warn("scan history disabled", "error", err)
	} else {
		recorder = history.NewRecorder(app.history)
	}

	dispatcher := scanner.NewDispatcher(scanner.DispatcherOptions{
		Client:   scanner.NewClient(scanner.DefaultClientConfig(cfg.Scanner.APIBaseURL)),
		Cache:    app.cache,
		Stats:    app.stats,
		Tokens:   app.auth,
		History:  recorder,
		Notifier: notifier,
		Settings: app.settings,
	})

	app.tabs = tabs.New(tabs.Options{
		Scanner:   dispatcher,
		Commander: tabs.NewBroadcastCommander(app.events),
		Settings:  app.settings,
	})

	var reader router.HistoryReader
	if app.history != nil {
		reader = app.history
	}
	r := router.New(router.Options{
		Scans:        dispatcher,
		Stats:        app.stats,
		Auth:         app.auth,
		Settings:     app.settings,
		Cache:        app.cache,
		History:      reader,
		Tabs:         app.tabs,
		DashboardURL: cfg.Scanner.DashboardURL,
	})

	app.scheduler = sched.NewDaily(app.dailyJobs()...)
	app.scheduler.Start()

	app.logStartupInfo()

	app.server = server.New(r, app.events, &server.Config{
		MasterKey:       cfg.Server.MasterKey,
		MetricsEnabled:  cfg.Server.MetricsEnabled,
		MetricsEndpoint: cfg.Server.MetricsEndpoint,
	})

	return app, nil
}

// newCacheStore builds the configured cache persistence backend.
func newCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedisStore(cache.RedisConfig{URL: cfg.Cache.RedisURL})
	case "file", "":
		return cache.NewFileStore(cfg.StateFile("cache.json")), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid: file, redis)", cfg.Cache.Backend)
	}
}

func (a *App) initHistory(ctx context.Context, cfg *config.Config) error {
	st, err := storage.New(ctx, storage.Config{
		Type:   cfg.Storage.Type,
		SQLite: storage.SQLiteConfig{Path: cfg.SQLitePath()},
		PostgreSQL: storage.PostgreSQLConfig{
			URL: cfg.Storage.PostgresURL,
		},
	})
	if err != nil {
		return err
	}

	store, err := history.New(st)
	if err != nil {
		closeErr := st.Close()
		return errors.Join(err, closeErr)
	}

	a.storage = st
	a.history = store
	return nil
}

// dailyJobs are the midnight maintenance tasks: stats reset, stale cache
// sweep, and history retention cleanup.
func (a *App) dailyJobs() []sched.Job {
	jobs := []sched.Job{
		{Name: "stats_reset", Run: a.stats.Reset},
		{Name: "cache_sweep", Run: func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if removed := a.cache.Sweep(ctx, cache.DefaultSweepAge); removed > 0 {
				slog.Info("swept stale cache entries", "removed", removed)
			}
		}},
	}

	if a.history != nil {
		retention := a.config.Storage.RetentionDays
		if retention <= 0 {
			retention = history.DefaultRetentionDays
		}
		jobs = append(jobs, sched.Job{Name: "history_cleanup", Run: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			cutoff := time.Now().AddDate(0, 0, -retention)
			deleted, err := a.history.Cleanup(ctx, cutoff)
			if err != nil {
				slog.Error("failed to cleanup scan history", "error", err)
				return
			}
			if deleted > 0 {
				slog.Info("cleaned up old scan history", "deleted", deleted)
			}
		}})
	}

	return jobs
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown via server.Shutdown(ctx), honoring the passed context.
// 2. Scheduler stop (no further maintenance jobs fire).
// 3. Tab coordinator close (cancels pending dismiss timers).
// 4. Cache close (final persist, then the store backend).
// 5. History store and database connection close.
//
// Shutdown is idempotent and safe for repeated calls; after the first call,
// subsequent calls are no-ops. It attempts every close step, aggregates
// failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Stop the midnight scheduler
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// 3. Close the tab coordinator (stops dismiss timers)
	if a.tabs != nil {
		a.tabs.Close()
	}

	// 4. Close the cache (persists the final snapshot)
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	// 5. Close scan history and its database connection
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Error("history close error", "error", err)
			errs = append(errs, fmt.Errorf("history close: %w", err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			slog.Error("storage close error", "error", err)
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	// Security warnings
	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set MASTER_KEY environment variable to secure this service")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	// Metrics configuration
	if cfg.Server.MetricsEnabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Server.MetricsEndpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("scan backend configured", "base_url", cfg.Scanner.APIBaseURL)
	slog.Info("cache backend configured", "backend", cfg.Cache.Backend)

	if a.history != nil {
		slog.Info("scan history enabled",
			"storage", cfg.Storage.Type,
			"retention_days", cfg.Storage.RetentionDays,
		)
	} else {
		slog.Info("scan history disabled")
	}
}
