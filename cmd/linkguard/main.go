// Package main is the entry point for the linkguard service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"linkguard/config"
	"linkguard/internal/app"
	"linkguard/internal/version"
)

func main() {
	// Add a version flag check
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load .env before anything reads the environment
	_ = godotenv.Load()

	setupLogging()

	// Log the version immediately on startup
	slog.Info("starting linkguard",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	if err := application.Start(addr); err != nil {
		slog.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler: JSON in production,
// colorized tint output when LOG_FORMAT=pretty.
func setupLogging() {
	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "pretty" {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}
