package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"enerlyze/internal/app"
	"enerlyze/internal/charts"
	"enerlyze/internal/config"
	"enerlyze/internal/models"
	"enerlyze/internal/repository"
	"enerlyze/internal/services"
	"enerlyze/pkg/database"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

var knownFormats = []string{"csv", "xlsx", "png", "html"}

func main() {
	// Parse command-line flags
	outDir := flag.String("out", "./export", "Directory the artifacts are written to")
	horizon := flag.Int("horizon", 0, "Projection horizon in years (0 uses the configured default)")
	formats := flag.String("formats", strings.Join(knownFormats, ","), "Comma separated artifact formats: csv,xlsx,png,html")
	flag.Parse()

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

	selected, err := parseFormats(*formats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "enerlyze-exporter")

	ctx := context.Background()
	logger.Info(ctx, "[EXPORTER_START] Starting artifact export", logging.Fields{
		"version": app.Version,
		"out_dir": *outDir,
		"formats": *formats,
		"horizon": *horizon,
	})

	metricsCollector := metrics.NewCollector("enerlyze_exporter")

	// Pick the record source
	var source services.RecordSource
	if cfg.Data.Source == config.SourceDatabase {
		db, err := database.NewPostgresDB(app.DatabaseConfig(cfg), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[EXPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()
		source = services.NewDatabaseSource(repository.NewGenerationRepository(db, logger, metricsCollector), cfg.Upstream.EntityCode)
	} else {
		source, _ = app.APISource(ctx, cfg, logger, metricsCollector)
	}

	dataset, err := services.NewDatasetService(source, logger, metricsCollector).Load(ctx)
	if err != nil {
		logger.Fatal(ctx, "[EXPORTER_ERROR] Failed to load generation data", logging.Fields{
			"source": source.Name(),
		}, err)
	}

	horizons := app.Horizons(cfg)
	if *horizon == 0 {
		*horizon = horizons.Default
	}
	if err := horizons.Check(*horizon); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal(ctx, "[EXPORTER_ERROR] Failed to create output directory", logging.Fields{
			"out_dir": *outDir,
		}, err)
	}

	dashboardService := services.NewDashboardService(dataset, horizons, logger, metricsCollector)
	exportService := services.NewExportService(logger, metricsCollector)
	renderer := charts.NewRenderer(logger, metricsCollector)

	generation, err := dashboardService.GenerationChart(ctx, *horizon)
	if err != nil {
		logger.Fatal(ctx, "[EXPORTER_ERROR] Failed to build generation chart", logging.Fields{}, err)
	}
	waste := dashboardService.WasteChart()

	writers := map[string]map[string]func(io.Writer) error{
		"csv": {
			services.CSVExportFileName: func(w io.Writer) error {
				return exportService.WriteCSV(ctx, w, dataset, *horizon)
			},
		},
		"xlsx": {
			services.XLSXExportFileName: func(w io.Writer) error {
				return exportService.WriteXLSX(ctx, w, dataset, *horizon)
			},
		},
		"png": {
			"generation.png": func(w io.Writer) error {
				return renderer.RenderPNG(ctx, w, charts.ChartGeneration, generation)
			},
			"waste.png": func(w io.Writer) error {
				return renderer.RenderPNG(ctx, w, charts.ChartWaste, waste)
			},
		},
		"html": {
			"dashboard.html": func(w io.Writer) error {
				return renderer.RenderHTML(ctx, w, generation, waste)
			},
		},
	}

	startTime := time.Now()
	var written []string
	for _, format := range selected {
		for name, write := range writers[format] {
			path := filepath.Join(*outDir, name)
			err := writeFile(path, write)
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				logger.Warn(ctx, "[EXPORTER_SKIP] Nothing to draw, artifact skipped", logging.Fields{
					"path": path,
				})
				continue
			}
			if err != nil {
				logger.Fatal(ctx, "[EXPORTER_ERROR] Failed to write artifact", logging.Fields{
					"path": path,
				}, err)
			}
			written = append(written, path)
		}
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("EXPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Series:             %s\n", strings.Join(dataset.Labels(), ", "))
	fmt.Printf("Horizon:            %d years\n", *horizon)
	fmt.Printf("Duration:           %v\n", time.Since(startTime))
	fmt.Printf("\nArtifacts (%d):\n", len(written))
	for _, path := range written {
		fmt.Printf("  - %s\n", path)
	}

	logger.Info(ctx, "[EXPORTER_COMPLETE] Export completed successfully", logging.Fields{
		"artifacts": len(written),
		"horizon":   *horizon,
	})
}

func parseFormats(raw string) ([]string, error) {
	var selected []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		format := strings.ToLower(strings.TrimSpace(part))
		if format == "" || seen[format] {
			continue
		}
		known := false
		for _, k := range knownFormats {
			if k == format {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown format %q, expected one of %s", format, strings.Join(knownFormats, ","))
		}
		seen[format] = true
		selected = append(selected, format)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no formats selected")
	}
	return selected, nil
}

// writeFile renders into memory first so a failed render leaves no partial file
func writeFile(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
