package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/api"
	"github.com/maternal-risk-server/internal/cache"
	"github.com/maternal-risk-server/internal/config"
	"github.com/maternal-risk-server/internal/database"
	"github.com/maternal-risk-server/internal/domain"
	"github.com/maternal-risk-server/internal/explain"
	"github.com/maternal-risk-server/internal/history"
	"github.com/maternal-risk-server/internal/repository"
	"github.com/maternal-risk-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(&cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting maternal risk server")

	// Visit history store
	visits, err := newVisitStore(configManager, logger)
	if err != nil {
		logger.Fatalf("Failed to open visit history store: %v", err)
	}
	defer visits.Close()

	// Assessment database with migrations
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(ctx, database.FromDomainConfig(configManager.GetDatabaseConfig()), logger)
	if err != nil {
		logger.Fatalf("Failed to connect to assessment database: %v", err)
	}
	defer db.Close()

	runner, err := database.NewMigrationRunner(
		configManager.GetDatabaseConnectionString(),
		cfg.Database.MigrationsPath,
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := runner.Up(ctx); err != nil {
		logger.Fatalf("Failed to apply migrations: %v", err)
	}
	if err := runner.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close migration runner")
	}

	assessments := repository.NewAssessmentRepository(db.Pool, logger)

	// Assessor with optional cache and explanation client
	opts := []service.AssessorOption{service.WithStore(assessments)}

	if cfg.Cache.Enabled {
		assessmentCache, err := cache.NewAssessmentCache(cfg.Cache, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize assessment cache: %v", err)
		}
		defer assessmentCache.Close()
		opts = append(opts, service.WithCache(assessmentCache))
	}

	if cfg.Explanation.Enabled {
		opts = append(opts, service.WithExplainer(explain.NewClient(cfg.Explanation, logger)))
	}

	assessor := service.NewAssessor(logger, opts...)

	// Create server
	server := api.NewServer(configManager, assessor, visits, assessments, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}

	logger.Info("Server stopped")
}

func newVisitStore(configManager domain.ConfigManager, logger *logrus.Logger) (domain.VisitStore, error) {
	cfg := configManager.GetHistoryConfig()

	switch cfg.Backend {
	case "postgres":
		logger.WithField("backend", "postgres").Info("Opening visit history store")
		return history.NewPostgresStoreFromURL(cfg.PostgresDSN)
	default:
		logger.WithFields(logrus.Fields{
			"backend": "sqlite",
			"path":    cfg.SQLitePath,
		}).Info("Opening visit history store")
		return history.NewSQLiteStore(cfg.SQLitePath)
	}
}
