// Package main is the entry point for the chat relay server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/config"
	"chatrelay/internal/extractor"
	"chatrelay/internal/landing"
	"chatrelay/internal/logging"
	"chatrelay/internal/relay"
	"chatrelay/internal/server"
)

func main() {
	// Bootstrap logger until the configured one is available
	slog.SetDefault(logging.New(os.Stderr, "", "info"))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level))

	page, err := landing.Load(cfg.Server.PageConfig)
	if err != nil {
		slog.Error("failed to load page config", "path", cfg.Server.PageConfig, "error", err)
		os.Exit(1)
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	srv := server.New(
		relay.New(cfg.Upstream),
		extractor.New(""),
		&server.Config{
			BodySizeLimit:   cfg.Server.BodySizeLimit,
			MetricsEnabled:  cfg.Metrics.Enabled,
			MetricsEndpoint: cfg.Metrics.Endpoint,
			Page:            &page,
		},
	)

	// Handle graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// In-flight upstream calls may take up to the relay timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Upstream.Timeout+5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server",
		"address", addr,
		"upstream", cfg.Upstream.URL,
		"timeout", cfg.Upstream.Timeout,
	)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			<-stopped
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}
