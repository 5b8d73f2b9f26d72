package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"enerlyze/internal/models"
	"enerlyze/internal/repository"
	"enerlyze/pkg/metrics"
)

func rec(series, date, generation string) models.RawRecord {
	return models.RawRecord{
		Series:        series,
		Date:          models.RawValue(date),
		GenerationTWh: models.RawValue(generation),
	}
}

// solarWindRecords is the two-series, two-year scenario used across tests
func solarWindRecords() []models.RawRecord {
	return []models.RawRecord{
		rec("Solar", "2019", "10"),
		rec("Solar", "2020", "12"),
		rec("Wind", "2019", "5"),
		rec("Wind", "2020", "7"),
	}
}

func newTestCollector() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())
}

type fakeSource struct {
	name  string
	batch *models.RecordBatch
	err   error
	calls int
}

func (f *fakeSource) Name() string {
	return f.name
}

func (f *fakeSource) FetchRecords(ctx context.Context) (*models.RecordBatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type fakeStore struct {
	entries map[string]*models.RecordBatch
	getErr  error
	putErr  error
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*models.RecordBatch)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (*models.RecordBatch, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	batch, ok := f.entries[key]
	return batch, ok, nil
}

func (f *fakeStore) Put(ctx context.Context, key string, batch *models.RecordBatch) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.entries[key] = batch
	return nil
}

// fakeRepo keeps generation records in memory keyed by (entity, series, year)
type fakeRepo struct {
	mu        sync.Mutex
	records   map[string]*models.GenerationRecord
	runs      []*models.IngestionRun
	batches   [][]*models.GenerationRecord
	upsertErr error
	runErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*models.GenerationRecord)}
}

var _ repository.GenerationRepository = (*fakeRepo)(nil)

func recordKey(r *models.GenerationRecord) string {
	return fmt.Sprintf("%s/%s/%d", r.EntityCode, r.Series, r.Year)
}

func (f *fakeRepo) UpsertGenerationBatch(ctx context.Context, records []*models.GenerationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.batches = append(f.batches, records)
	for _, r := range records {
		copied := *r
		f.records[recordKey(r)] = &copied
	}
	return nil
}

func (f *fakeRepo) ListGenerationRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.GenerationRecord, int, error) {
	all, _ := f.AllGenerationRecords(ctx, filter.EntityCode)
	total := len(all)
	if filter.Offset >= total {
		return []*models.GenerationRecord{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return all[filter.Offset:end], total, nil
}

func (f *fakeRepo) AllGenerationRecords(ctx context.Context, entityCode string) ([]*models.GenerationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.GenerationRecord, 0, len(f.records))
	for _, r := range f.records {
		if r.EntityCode == entityCode {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Series != out[j].Series {
			return out[i].Series < out[j].Series
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

func (f *fakeRepo) ListSeries(ctx context.Context, entityCode string) ([]string, error) {
	all, _ := f.AllGenerationRecords(ctx, entityCode)
	var series []string
	for _, r := range all {
		if len(series) == 0 || series[len(series)-1] != r.Series {
			series = append(series, r.Series)
		}
	}
	return series, nil
}

func (f *fakeRepo) CreateIngestionRun(ctx context.Context, run *models.IngestionRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return f.runErr
	}
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRepo) LatestIngestionRun(ctx context.Context, entityCode string) (*models.IngestionRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.runs) - 1; i >= 0; i-- {
		if f.runs[i].EntityCode == entityCode {
			return f.runs[i], nil
		}
	}
	return nil, &models.NotFoundError{Resource: "ingestion run", ID: entityCode}
}

func (f *fakeRepo) HealthCheck(ctx context.Context) error {
	return nil
}

var (
	errBoom   = errors.New("boom")
	fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)
