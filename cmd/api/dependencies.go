package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd/handler"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/repository"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/service"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/strategy"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/vision"
	"github.com/FACorreiaa/epd-parser/pkg/config"
	"github.com/FACorreiaa/epd-parser/pkg/cron"
	"github.com/FACorreiaa/epd-parser/pkg/db"
	"github.com/FACorreiaa/epd-parser/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB // nil when POSTGRES_ENABLED=false
	Logger *slog.Logger

	// Repositories
	DocumentRepo repository.DocumentRepository

	// Services
	ImportService *service.ImportService
	Metrics       *service.Metrics
	FileStorage   storage.Storage
	Scheduler     *cron.Scheduler

	// Handlers
	DocumentHandler *handler.DocumentHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if cfg.Database.Enabled {
		if err := deps.initDatabase(); err != nil {
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
	} else {
		logger.Warn("persistence disabled, documents will not be stored")
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	if d.DB != nil {
		d.DocumentRepo = repository.NewPostgresRepository(d.DB.Pool)
	}

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	strategies, err := strategy.Build(d.Config.Parser.Strategies, strategy.Options{
		VocabularyFile: d.Config.Parser.VocabularyFile,
		Vision: vision.Config{
			APIKey:  d.Config.Vision.APIKey,
			Model:   d.Config.Vision.Model,
			BaseURL: d.Config.Vision.BaseURL,
			Timeout: d.Config.Vision.Timeout,
			DPI:     d.Config.Vision.DPI,
		},
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to build strategies: %w", err)
	}

	// File storage for archived uploads
	fileStorage, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = service.NewMetrics(prometheus.DefaultRegisterer)
	}

	d.ImportService = service.NewImportService(strategies, d.Logger).
		WithTempDir(d.Config.Parser.TempDir).
		WithMaxUploadBytes(d.Config.Server.MaxUploadBytes).
		WithMetrics(d.Metrics)
	if d.DocumentRepo != nil {
		d.ImportService.WithRepository(d.DocumentRepo).WithArchive(d.FileStorage)
	}

	// Temp sweeper and archive retention
	d.Scheduler = cron.NewScheduler(cron.Config{
		TempDir:    d.Config.Parser.TempDir,
		TempMaxAge: d.Config.Parser.TempMaxAge,
		Retention:  d.Config.Storage.Retention,
	}, d.FileStorage, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.DocumentHandler = handler.NewDocumentHandler(d.ImportService, d.Logger).
		WithRateLimit(float64(d.Config.Server.RateLimitPerSecond), d.Config.Server.RateLimitBurst)
	if d.DB != nil {
		d.DocumentHandler.WithHealthCheck(func(ctx context.Context) error {
			return d.DB.Ping(ctx)
		})
	}

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
