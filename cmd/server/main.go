package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/fichas/internal/config"
	"github.com/JonMunkholm/fichas/internal/core"
	"github.com/JonMunkholm/fichas/internal/history"
	"github.com/JonMunkholm/fichas/internal/logging"
	"github.com/JonMunkholm/fichas/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_dir", cfg.Storage.UploadDir,
		"output_dir", cfg.Storage.OutputDir,
		"history_driver", cfg.History.Driver,
		"max_concurrent", cfg.Conversion.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		slog.Error("failed to open conversion history", "driver", cfg.History.Driver, "error", err)
		os.Exit(1)
	}

	service, err := core.NewService(store, cfg)
	if err != nil {
		store.Close()
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := service.Close(); err != nil {
			slog.Error("close conversion history", "error", err)
		}
	}()

	// Background jobs stop with the signal context
	go service.StartRetentionSweeper(ctx, core.RetentionConfig{
		MaxAge:   cfg.Storage.Retention,
		Interval: cfg.Storage.SweepInterval,
	})

	server := web.NewServer(ctx, service, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests, then let running conversions finish
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for conversions to complete", "active", status.Active)
			if err := service.WaitForConversions(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		stop()
	}
	<-done
	slog.Info("server stopped")
}
