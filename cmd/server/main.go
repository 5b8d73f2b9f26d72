package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enerlyze/internal/app"
	"enerlyze/internal/charts"
	"enerlyze/internal/config"
	"enerlyze/internal/handlers"
	"enerlyze/internal/repository"
	"enerlyze/internal/services"
	"enerlyze/pkg/database"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "enerlyze-api")

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting enerlyze API server", logging.Fields{
		"version":     app.Version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"entity_code": cfg.Upstream.EntityCode,
		"data_source": cfg.Data.Source,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("enerlyze")

	checks := map[string]handlers.HealthChecker{}

	// Initialize database when configured
	var repo repository.GenerationRepository
	if cfg.Database.Enabled() {
		db, err := database.NewPostgresDB(app.DatabaseConfig(cfg), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		repo = repository.NewGenerationRepository(db, logger, metricsCollector)
		checks["database"] = repo
	}

	// Pick the record source
	var source services.RecordSource
	if cfg.Data.Source == config.SourceDatabase {
		source = services.NewDatabaseSource(repo, cfg.Upstream.EntityCode)
	} else {
		apiSource, snapshots := app.APISource(ctx, cfg, logger, metricsCollector)
		if snapshots != nil {
			checks["redis"] = snapshots
		}
		source = apiSource
	}

	// Build the dataset once; everything served afterwards derives from it
	loadCtx, cancelLoad := context.WithTimeout(ctx, 2*time.Minute)
	dataset, err := services.NewDatasetService(source, logger, metricsCollector).Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load generation data", logging.Fields{
			"source": source.Name(),
		}, err)
	}

	// Initialize services
	dashboardService := services.NewDashboardService(dataset, app.Horizons(cfg), logger, metricsCollector)
	exportService := services.NewExportService(logger, metricsCollector)
	renderer := charts.NewRenderer(logger, metricsCollector)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, exportService, renderer, checks, logger, metricsCollector)

	var recordsHandler *handlers.RecordsHandler
	if repo != nil {
		recordsHandler = handlers.NewRecordsHandler(repo, cfg.Upstream.EntityCode, logger, metricsCollector)
	}

	router := handlers.NewRouter(dashboardHandler, recordsHandler, logger, metricsCollector)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
			"series":  len(dataset.Labels()),
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
