package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"enerlyze/internal/models"
	"enerlyze/pkg/database"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// GenerationRepository provides data access for persisted generation data
type GenerationRepository interface {
	// Generation record operations
	UpsertGenerationBatch(ctx context.Context, records []*models.GenerationRecord) error
	ListGenerationRecords(ctx context.Context, filter RecordFilter) ([]*models.GenerationRecord, int, error)
	AllGenerationRecords(ctx context.Context, entityCode string) ([]*models.GenerationRecord, error)
	ListSeries(ctx context.Context, entityCode string) ([]string, error)

	// Ingestion run operations
	CreateIngestionRun(ctx context.Context, run *models.IngestionRun) error
	LatestIngestionRun(ctx context.Context, entityCode string) (*models.IngestionRun, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// RecordFilter defines filters for querying generation records
type RecordFilter struct {
	EntityCode string
	Series     *string
	StartYear  *int
	EndYear    *int
	Limit      int
	Offset     int
}

// generationRepository implements GenerationRepository
type generationRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewGenerationRepository creates a new generation repository
func NewGenerationRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) GenerationRepository {
	return &generationRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const upsertGenerationRecord = `
	INSERT INTO generation_records (
		entity_code, series, year, generation_twh, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (entity_code, series, year) DO UPDATE SET
		generation_twh = EXCLUDED.generation_twh,
		updated_at = EXCLUDED.updated_at
`

// UpsertGenerationBatch writes records in a single transaction.
// An existing (entity, series, year) row takes the new value.
func (r *generationRepository) UpsertGenerationBatch(ctx context.Context, records []*models.GenerationRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_BATCH_UPSERT] Batch upsert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	err := r.db.WithTx(ctx, "upsert_generation_batch", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertGenerationRecord)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			_, err := stmt.ExecContext(ctx,
				rec.EntityCode,
				rec.Series,
				rec.Year,
				rec.GenerationTWh,
				rec.CreatedAt,
				rec.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert %s/%d: %w", rec.Series, rec.Year, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(records)))

	return nil
}

// ListGenerationRecords retrieves records with filtering and pagination
func (r *generationRepository) ListGenerationRecords(ctx context.Context, filter RecordFilter) ([]*models.GenerationRecord, int, error) {
	query := `
		SELECT id, entity_code, series, year, generation_twh, created_at, updated_at
		FROM generation_records
		WHERE entity_code = $1
	`
	args := []interface{}{filter.EntityCode}
	argNum := 2

	if filter.Series != nil {
		query += fmt.Sprintf(" AND series = $%d", argNum)
		args = append(args, *filter.Series)
		argNum++
	}

	if filter.StartYear != nil {
		query += fmt.Sprintf(" AND year >= $%d", argNum)
		args = append(args, *filter.StartYear)
		argNum++
	}

	if filter.EndYear != nil {
		query += fmt.Sprintf(" AND year <= $%d", argNum)
		args = append(args, *filter.EndYear)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_generation_records", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count generation records: %w", err)
	}

	query += " ORDER BY series, year"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.GenerationRecord
	if err := r.db.SelectContext(ctx, "list_generation_records", &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list generation records: %w", err)
	}

	return records, totalCount, nil
}

// AllGenerationRecords loads every record of an entity, for dataset builds
func (r *generationRepository) AllGenerationRecords(ctx context.Context, entityCode string) ([]*models.GenerationRecord, error) {
	query := `
		SELECT id, entity_code, series, year, generation_twh, created_at, updated_at
		FROM generation_records
		WHERE entity_code = $1
		ORDER BY series, year
	`

	var records []*models.GenerationRecord
	if err := r.db.SelectContext(ctx, "all_generation_records", &records, query, entityCode); err != nil {
		return nil, fmt.Errorf("failed to load generation records: %w", err)
	}

	return records, nil
}

// ListSeries returns the distinct series labels stored for an entity
func (r *generationRepository) ListSeries(ctx context.Context, entityCode string) ([]string, error) {
	query := `
		SELECT DISTINCT series
		FROM generation_records
		WHERE entity_code = $1
		ORDER BY series
	`

	var series []string
	if err := r.db.SelectContext(ctx, "list_series", &series, query, entityCode); err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}

	return series, nil
}

// CreateIngestionRun records the outcome of one ingester execution
func (r *generationRepository) CreateIngestionRun(ctx context.Context, run *models.IngestionRun) error {
	query := `
		INSERT INTO ingestion_runs (
			entity_code, start_year,
			total_records, accepted_records, dropped_records, series_count,
			started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	id, err := r.db.InsertReturningID(ctx, "create_ingestion_run", query,
		run.EntityCode,
		run.StartYear,
		run.TotalRecords,
		run.AcceptedRecords,
		run.DroppedRecords,
		run.SeriesCount,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion run: %w", err)
	}
	run.ID = id

	return nil
}

// LatestIngestionRun returns the most recent run for an entity
func (r *generationRepository) LatestIngestionRun(ctx context.Context, entityCode string) (*models.IngestionRun, error) {
	query := `
		SELECT id, entity_code, start_year,
		       total_records, accepted_records, dropped_records, series_count,
		       started_at, finished_at
		FROM ingestion_runs
		WHERE entity_code = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run models.IngestionRun
	err := r.db.GetContext(ctx, "latest_ingestion_run", &run, query, entityCode)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{
			Resource: "ingestion_run",
			ID:       entityCode,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get latest ingestion run: %w", err)
	}

	return &run, nil
}

// HealthCheck performs a repository health check
func (r *generationRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
