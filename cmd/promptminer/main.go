package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promptatlas/promptminer/internal/api"
	"github.com/promptatlas/promptminer/internal/config"
	"github.com/promptatlas/promptminer/internal/events"
	"github.com/promptatlas/promptminer/internal/extractor"
	"github.com/promptatlas/promptminer/internal/gemini"
	"github.com/promptatlas/promptminer/internal/library"
	"github.com/promptatlas/promptminer/internal/orchestrator"
	"github.com/promptatlas/promptminer/internal/share"
	"github.com/promptatlas/promptminer/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("promptminer starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Gemini client
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	backend, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.ImageModel)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	slog.Info("gemini client ready", "model", cfg.Model, "image_model", cfg.ImageModel)

	// Extractor
	ext := extractor.New(backend, slog.Default())

	// NATS (optional — promptminer works without the platform event bus)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without platform events")
	}

	var pub orchestrator.Publisher
	var libPub library.Publisher
	if eventsClient != nil {
		pub = eventsClient
		libPub = eventsClient
	}

	// Library reconciliation + task orchestration
	lib := library.NewManager(db.Prompts(), libPub, slog.Default())
	orch := orchestrator.New(ext, lib, pub, slog.Default())
	defer orch.Close()

	// Share intercept
	shareHandler := share.NewHandler(db.Share(), slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, orch, lib, ext, shareHandler, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if eventsClient != nil {
		if err := eventsClient.Publish("prompts.miner.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("promptminer ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("promptminer stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
