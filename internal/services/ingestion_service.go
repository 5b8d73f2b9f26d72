package services

import (
	"context"
	"fmt"
	"time"

	"enerlyze/internal/models"
	"enerlyze/internal/repository"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// IngestionService copies normalized upstream data into Postgres
type IngestionService struct {
	source     RecordSource
	repo       repository.GenerationRepository
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
	entityCode string
	startYear  int
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Run              *models.IngestionRun
	Series           []string
	PersistedRecords int
	Batches          int
	DroppedByReason  map[string]int
	EmptySeries      []string
	Duration         time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(source RecordSource, repo repository.GenerationRepository, entityCode string, startYear int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		source:     source,
		repo:       repo,
		logger:     logger,
		metrics:    metricsCollector,
		entityCode: entityCode,
		startYear:  startYear,
	}
}

// Ingest fetches the upstream payload once, normalizes it with the same rules
// the server uses, upserts the points in batches and records the run
func (s *IngestionService) Ingest(ctx context.Context, batchSize int) (*IngestionResult, error) {
	if batchSize <= 0 {
		return nil, &models.ValidationError{
			Field:   "batch_size",
			Value:   fmt.Sprintf("%d", batchSize),
			Message: "batch size must be positive",
		}
	}

	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting generation ingestion", logging.Fields{
		"source":      s.source.Name(),
		"entity_code": s.entityCode,
		"batch_size":  batchSize,
		"stage":       "INITIALIZATION",
	})

	batch, err := s.source.FetchRecords(ctx)
	if err != nil {
		s.metrics.RecordIngestionError("fetch_error")
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	dataset := normalize(batch.Records, batch.Malformed, startTime.UTC())
	report := dataset.Report()
	for reason, count := range report.DroppedByReason {
		s.metrics.RecordDropped(reason, count)
	}

	s.logger.Info(ctx, "[INGEST_NORMALIZED] Records normalized", logging.Fields{
		"total_records":    report.TotalRecords,
		"accepted_records": report.AcceptedRecords,
		"dropped_records":  report.DroppedRecords,
		"series_count":     len(dataset.Labels()),
		"stage":            "NORMALIZATION",
	})

	result := &IngestionResult{
		Series:          dataset.Labels(),
		DroppedByReason: report.DroppedByReason,
		EmptySeries:     report.EmptySeries,
	}

	now := time.Now().UTC()
	pending := make([]*models.GenerationRecord, 0, batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.repo.UpsertGenerationBatch(ctx, pending); err != nil {
			s.metrics.RecordIngestionError("batch_error")
			return fmt.Errorf("failed to upsert batch %d: %w", result.Batches+1, err)
		}
		result.PersistedRecords += len(pending)
		result.Batches++
		pending = make([]*models.GenerationRecord, 0, batchSize)
		return nil
	}

	for _, timeline := range dataset.Timelines() {
		for _, p := range timeline.Points {
			pending = append(pending, &models.GenerationRecord{
				EntityCode:    s.entityCode,
				Series:        timeline.Series,
				Year:          p.Year,
				GenerationTWh: p.Value,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if len(pending) >= batchSize {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	run := &models.IngestionRun{
		EntityCode:      s.entityCode,
		StartYear:       s.startYear,
		TotalRecords:    report.TotalRecords,
		AcceptedRecords: report.AcceptedRecords,
		DroppedRecords:  report.DroppedRecords,
		SeriesCount:     len(result.Series),
		StartedAt:       startTime.UTC(),
		FinishedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateIngestionRun(ctx, run); err != nil {
		s.metrics.RecordIngestionError("run_error")
		return nil, fmt.Errorf("failed to record ingestion run: %w", err)
	}
	result.Run = run

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Generation ingestion completed", logging.Fields{
		"run_id":            run.ID,
		"persisted_records": result.PersistedRecords,
		"batches":           result.Batches,
		"duration_seconds":  result.Duration.Seconds(),
		"stage":             "COMPLETE",
	})

	return result, nil
}
