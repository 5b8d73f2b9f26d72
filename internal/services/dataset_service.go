package services

import (
	"context"
	"fmt"
	"time"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// RecordSource delivers the raw records a dataset is built from
type RecordSource interface {
	Name() string
	FetchRecords(ctx context.Context) (*models.RecordBatch, error)
}

// SnapshotStore caches raw record batches between process starts
type SnapshotStore interface {
	Get(ctx context.Context, key string) (*models.RecordBatch, bool, error)
	Put(ctx context.Context, key string, batch *models.RecordBatch) error
}

// CachedSource serves batches from a snapshot store and falls back to the
// wrapped source on a miss. Store failures are logged and never fatal.
type CachedSource struct {
	source RecordSource
	store  SnapshotStore
	key    string
	logger *logging.ContextLogger
}

// NewCachedSource wraps source with a snapshot store
func NewCachedSource(source RecordSource, store SnapshotStore, key string, logger *logging.StructuredLogger) *CachedSource {
	return &CachedSource{
		source: source,
		store:  store,
		key:    key,
		logger: logger.WithComponent("cached_source"),
	}
}

// Name reports the wrapped source with a cache marker
func (c *CachedSource) Name() string {
	return c.source.Name() + "+cache"
}

// FetchRecords returns the cached batch when present, else fetches and stores it
func (c *CachedSource) FetchRecords(ctx context.Context) (*models.RecordBatch, error) {
	batch, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn(ctx, "[CACHE_UNAVAILABLE] Snapshot lookup failed, fetching upstream", logging.Fields{
			"key":   c.key,
			"error": err.Error(),
		})
	}
	if found {
		return batch, nil
	}

	batch, err = c.source.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, c.key, batch); err != nil {
		c.logger.Warn(ctx, "[CACHE_UNAVAILABLE] Snapshot store failed", logging.Fields{
			"key":   c.key,
			"error": err.Error(),
		})
	}

	return batch, nil
}

// GenerationRecordLister is the part of the repository a database source needs
type GenerationRecordLister interface {
	AllGenerationRecords(ctx context.Context, entityCode string) ([]*models.GenerationRecord, error)
}

// DatabaseSource reads previously ingested records back as raw records
type DatabaseSource struct {
	repo       GenerationRecordLister
	entityCode string
}

// NewDatabaseSource creates a source over the generation repository
func NewDatabaseSource(repo GenerationRecordLister, entityCode string) *DatabaseSource {
	return &DatabaseSource{repo: repo, entityCode: entityCode}
}

// Name identifies the source
func (d *DatabaseSource) Name() string {
	return "database"
}

// FetchRecords loads every stored record for the entity
func (d *DatabaseSource) FetchRecords(ctx context.Context) (*models.RecordBatch, error) {
	stored, err := d.repo.AllGenerationRecords(ctx, d.entityCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored records: %w", err)
	}

	batch := &models.RecordBatch{
		Source:    d.Name(),
		Records:   make([]models.RawRecord, 0, len(stored)),
		FetchedAt: time.Now().UTC(),
	}
	for _, rec := range stored {
		batch.Records = append(batch.Records, rec.ToRawRecord())
	}

	return batch, nil
}

// DatasetService builds the read-only dataset once at startup
type DatasetService struct {
	source  RecordSource
	logger  *logging.ContextLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewDatasetService creates a dataset loader over source
func NewDatasetService(source RecordSource, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DatasetService {
	return &DatasetService{
		source:  source,
		logger:  logger.WithComponent("dataset"),
		metrics: metricsCollector,
		now:     time.Now,
	}
}

// Load fetches and normalizes the dataset. Fetch errors are returned as is
// so callers can match *models.DataFetchError and *models.DataFormatError.
func (s *DatasetService) Load(ctx context.Context) (*models.Dataset, error) {
	batch, err := s.source.FetchRecords(ctx)
	if err != nil {
		s.logger.Error(ctx, "[DATASET_ERROR] Failed to fetch records", logging.Fields{
			"source": s.source.Name(),
		}, err)
		return nil, err
	}

	dataset := normalize(batch.Records, batch.Malformed, s.now().UTC())
	report := dataset.Report()

	for reason, count := range report.DroppedByReason {
		s.metrics.RecordDropped(reason, count)
	}
	s.metrics.SetDatasetSize(len(dataset.Labels()), dataset.PointCount())

	fields := logging.Fields{
		"source":           s.source.Name(),
		"series":           dataset.Labels(),
		"points":           dataset.PointCount(),
		"total_records":    report.TotalRecords,
		"accepted_records": report.AcceptedRecords,
		"dropped_records":  report.DroppedRecords,
		"duplicate_years":  report.DuplicateYears,
	}
	if len(report.EmptySeries) > 0 {
		fields["empty_series"] = report.EmptySeries
	}

	if len(dataset.Labels()) == 0 {
		s.logger.Warn(ctx, "[DATASET_EMPTY] No usable records, charts will be empty", fields)
	} else {
		s.logger.Info(ctx, "[DATASET_LOADED] Dataset normalized", fields)
	}

	return dataset, nil
}
