package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"storefront-importer/internal/api"
	"storefront-importer/internal/app"
	"storefront-importer/internal/config"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fmt.Printf("Using port: %s\n", cfg.Server.Port)

	logger := app.NewLogger(cfg.Log.Level)

	a, err := app.New(cfg, logger, nil)
	if err != nil {
		logger.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	server := api.NewServer(a.Extractor, a.Orchestrator, a.Client, logger)
	if err := server.Start(cfg.Server.Port); err != nil {
		logger.Errorf("API server stopped: %v", err)
	}
}
