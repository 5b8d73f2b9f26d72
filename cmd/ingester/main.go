package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"enerlyze/internal/app"
	"enerlyze/internal/config"
	"enerlyze/internal/fetchers"
	"enerlyze/internal/repository"
	"enerlyze/internal/services"
	"enerlyze/pkg/database"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

func main() {
	// Parse command-line flags
	batchSize := flag.Int("batch-size", 500, "Number of records to upsert in each batch")
	entity := flag.String("entity", "", "Override the configured upstream entity code")
	startYear := flag.Int("start-year", 0, "Override the configured upstream start year")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *entity != "" {
		cfg.Upstream.EntityCode = strings.ToUpper(*entity)
	}
	if *startYear > 0 {
		cfg.Upstream.StartYear = *startYear
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Database.Enabled() {
		fmt.Fprintln(os.Stderr, "The ingester needs database.host (ENERLYZE_DATABASE_HOST)")
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "enerlyze-ingester")

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting generation data ingestion", logging.Fields{
		"version":     app.Version,
		"entity_code": cfg.Upstream.EntityCode,
		"start_year":  cfg.Upstream.StartYear,
		"batch_size":  *batchSize,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("enerlyze_ingester")

	// Initialize database
	db, err := database.NewPostgresDB(app.DatabaseConfig(cfg), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	generationRepo := repository.NewGenerationRepository(db, logger, metricsCollector)

	// Initialize services
	client := fetchers.NewGenerationClient(app.ClientConfig(cfg), logger, metricsCollector)
	ingestionService := services.NewIngestionService(client, generationRepo, cfg.Upstream.EntityCode, cfg.Upstream.StartYear, logger, metricsCollector)

	// Ingest data
	result, err := ingestionService.Ingest(ctx, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	run := result.Run
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Entity:             %s\n", run.EntityCode)
	fmt.Printf("Series:             %s\n", strings.Join(result.Series, ", "))
	fmt.Printf("Total Records:      %d\n", run.TotalRecords)
	fmt.Printf("Accepted Records:   %d\n", run.AcceptedRecords)
	fmt.Printf("Dropped Records:    %d\n", run.DroppedRecords)
	fmt.Printf("Persisted Records:  %d\n", result.PersistedRecords)
	fmt.Printf("Batches:            %d\n", result.Batches)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.DroppedByReason) > 0 {
		reasons := make([]string, 0, len(result.DroppedByReason))
		for reason := range result.DroppedByReason {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		fmt.Printf("\nDropped by reason:\n")
		for _, reason := range reasons {
			fmt.Printf("  - %-20s %d\n", reason, result.DroppedByReason[reason])
		}
	}

	if len(result.EmptySeries) > 0 {
		fmt.Printf("\nSeries without usable points: %s\n", strings.Join(result.EmptySeries, ", "))
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"run_id":            run.ID,
		"accepted_records":  run.AcceptedRecords,
		"dropped_records":   run.DroppedRecords,
		"persisted_records": result.PersistedRecords,
		"duration_seconds":  result.Duration.Seconds(),
	})
}
