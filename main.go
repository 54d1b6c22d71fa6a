package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agenthub/agents"
	"agenthub/config"
	"agenthub/database"
	"agenthub/engine"
	"agenthub/meter"
	"agenthub/session"
	"agenthub/stream"
	"agenthub/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	store, err := database.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to preference database", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	roster := agents.NewRegistry(cfg.Agents)
	engineClient := engine.NewHTTPClient(cfg, logger)
	registry := stream.NewRegistry(cfg.StreamStaleAge, logger)
	tokenMeter := meter.New(cfg, logger)

	orchestrator, err := session.NewOrchestrator(cfg, logger, engineClient, registry, tokenMeter, roster, store)
	if err != nil {
		logger.Fatal("Failed to build orchestrator", zap.Error(err))
	}
	if err := orchestrator.Start(ctx); err != nil {
		logger.Fatal("Failed to start orchestrator", zap.Error(err))
	}

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go web.StartHousekeeping(ctx, cfg, orchestrator, engineClient, logger)

	webServer := web.NewServer(orchestrator, logger, cfg)
	logger.Info("Starting agenthub web server", zap.Int("port", cfg.WebPort))
	if err := webServer.Start(ctx); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
