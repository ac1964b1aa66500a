// Command server runs the civicboard HTTP API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/observability"
	"civicboard/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "civicboard-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisCache := cache.Connect(ctx, cfg.RedisURL)
	srv := server.NewServer(cfg, db, redisCache)

	// Without a websocket edge the subscriber only traces delivery.
	err = srv.Notifier().StartUserSubscriber(ctx, func(channel, payload string) {
		observability.Logger.Debug("notification delivered",
			slog.String("channel", channel),
			slog.Int("bytes", len(payload)),
		)
	})
	if err != nil {
		observability.Logger.Warn("notification subscriber unavailable", slog.String("error", err.Error()))
	}

	app := srv.App()

	go func() {
		<-ctx.Done()
		observability.Logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			observability.Logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := redisCache.Close(); err != nil {
			observability.Logger.Error("redis close error", slog.String("error", err.Error()))
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			observability.Logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	observability.Logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		observability.Logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
