// Package main provides the HTTP server for TaskBot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskbot/internal/chat"
	"taskbot/internal/config"
	"taskbot/internal/db"
	"taskbot/internal/llm"
	"taskbot/internal/metrics"
	"taskbot/internal/notify"
	"taskbot/internal/server"
	"taskbot/internal/tools"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	logger.Info("starting taskbot-server", "port", cfg.Port, "provider", cfg.LLMProvider)

	collector := metrics.NewCollector()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger, collector)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := store.InitSchema(ctx); err != nil {
		cancel()
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("TASKBOT_WIPE_DB") == "true" {
		if err := store.WipeData(ctx); err != nil {
			cancel()
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	model, err := llm.NewModel(cfg)
	if err != nil {
		logger.Error("failed to create model", "error", err)
		os.Exit(1)
	}
	logger.Info("model ready", "model", model.Model())

	registry := tools.NewRegistry(&tools.Dependencies{Tasks: store, Logger: logger})
	dispatcher := tools.NewDispatcher(registry, logger)
	notifier := notify.NewNotifier(16)
	orchestrator := chat.NewOrchestrator(store, model, dispatcher, notifier, collector, cfg, logger)

	// Base context for requests; cancelled on shutdown so websocket streams end
	serveCtx, stopServe := context.WithCancel(context.Background())
	defer stopServe()

	srv := server.New(orchestrator, store, notifier, collector, cfg, logger)

	go func() {
		if err := srv.ListenAndServe(serveCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopServe()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
