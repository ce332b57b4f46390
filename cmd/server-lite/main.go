// Package main provides the lightweight entry point for the maternal
// risk server. This version requires no external databases - visit
// history lives in SQLite and the assessment cache is in-memory only.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/maternal-risk-server/internal/api"
	"github.com/maternal-risk-server/internal/cache"
	"github.com/maternal-risk-server/internal/config"
	"github.com/maternal-risk-server/internal/history"
	"github.com/maternal-risk-server/internal/service"
)

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	log.Printf("Starting maternal risk server (lite) on port %d", cfg.HTTPPort)
	log.Printf("Data directory: %s", cfg.DataDir)

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	configManager := cfg.Manager()
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	appCfg := configManager.GetConfig()
	logger := config.NewLogger(&appCfg.Logging)

	visits, err := history.NewSQLiteStore(cfg.VisitDBPath())
	if err != nil {
		log.Fatalf("Failed to open visit history store: %v", err)
	}
	defer visits.Close()

	assessmentCache, err := cache.NewAssessmentCache(appCfg.Cache, logger)
	if err != nil {
		log.Fatalf("Failed to initialize assessment cache: %v", err)
	}
	defer assessmentCache.Close()

	assessor := service.NewAssessor(logger, service.WithCache(assessmentCache))

	// No assessment audit store in lite mode; GET /assessments/:id
	// reports not found.
	server := api.NewServer(configManager, assessor, visits, nil, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	log.Println("Maternal risk server (lite) stopped")
}
