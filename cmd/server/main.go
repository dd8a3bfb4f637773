package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bankquality/internal/config"
	"github.com/JonMunkholm/bankquality/internal/core"
	_ "github.com/JonMunkholm/bankquality/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/bankquality/internal/logging"
	"github.com/JonMunkholm/bankquality/internal/pipeline"
	"github.com/JonMunkholm/bankquality/internal/store"
	"github.com/JonMunkholm/bankquality/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())
	slog.Info("tables registered", "count", core.TableCount())

	ctx := context.Background()

	// The database sink is optional
	var extra []pipeline.Sink
	if cfg.Database.Enabled() {
		pool, err := store.Open(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		extra = append(extra, store.NewSink(pool))
	}

	service := pipeline.NewFromConfig(cfg.Pipeline, extra...)
	slog.Info("pipeline ready",
		"input_dir", cfg.Pipeline.InputDir,
		"output_dir", cfg.Pipeline.OutputDir,
		"sinks", service.SinkNames(),
	)

	server := web.NewServer(service, cfg.Server, cfg.Security)

	if cfg.Pipeline.RunOnStart {
		go func() {
			if _, err := service.Run(ctx); err != nil {
				slog.Error("startup run failed", "error", err, "user_message", core.FormatUserError(err))
			}
		}()
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let an active run finish writing its sinks
		if status := service.Status(); status.Active > 0 {
			slog.Info("waiting for pipeline run to complete", "active", status.Active)
			if err := service.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("pipeline run did not complete in time", "error", err)
			} else {
				slog.Info("pipeline run completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}

	// Start returns as soon as Shutdown begins; wait for in-flight requests
	<-done
	slog.Info("server stopped")
}
