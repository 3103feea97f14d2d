package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"storefront-importer/internal/app"
	"storefront-importer/internal/cli"
	"storefront-importer/internal/config"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg.Log.Level)

	a, err := app.New(cfg, logger, cli.NewConsoleHandler(os.Stderr))
	if err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pipeline := &cli.Pipeline{
		Extractor:    a.Extractor,
		Orchestrator: a.Orchestrator,
		Jobs:         a.Client,
		Logger:       logger,
	}
	if a.History != nil {
		pipeline.History = a.History
	}

	err = cli.ExecuteContext(ctx, pipeline)

	stop()
	a.Close()

	if err != nil {
		os.Exit(1)
	}
}
