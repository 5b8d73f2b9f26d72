package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
)

func TestCachedSource(t *testing.T) {
	upstream := &models.RecordBatch{Source: "ember-api", Records: solarWindRecords(), FetchedAt: fixedTime}

	tests := []struct {
		name          string
		store         *fakeStore
		sourceErr     error
		wantCalls     int
		wantErr       bool
		wantPuts      int
		wantFromCache bool
	}{
		{name: "miss fetches and stores", store: newFakeStore(), wantCalls: 1, wantPuts: 1},
		{name: "hit skips upstream", store: &fakeStore{entries: map[string]*models.RecordBatch{"k": {Source: "cached"}}}, wantCalls: 0, wantFromCache: true},
		{name: "lookup failure falls back", store: &fakeStore{entries: map[string]*models.RecordBatch{}, getErr: errBoom}, wantCalls: 1, wantPuts: 1},
		{name: "store failure is not fatal", store: &fakeStore{entries: map[string]*models.RecordBatch{}, putErr: errBoom}, wantCalls: 1, wantPuts: 1},
		{name: "upstream failure propagates", store: newFakeStore(), sourceErr: errBoom, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{name: "ember-api", batch: upstream, err: tt.sourceErr}
			cached := NewCachedSource(source, tt.store, "k", logging.NewNopLogger())

			batch, err := cached.FetchRecords(context.Background())

			assert.Equal(t, tt.wantCalls, source.calls)
			assert.Equal(t, tt.wantPuts, tt.store.puts)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBoom)
				return
			}
			require.NoError(t, err)
			if tt.wantFromCache {
				assert.Equal(t, "cached", batch.Source)
			} else {
				assert.Same(t, upstream, batch)
			}
		})
	}
}

func TestCachedSource_Name(t *testing.T) {
	cached := NewCachedSource(&fakeSource{name: "ember-api"}, newFakeStore(), "k", logging.NewNopLogger())
	assert.Equal(t, "ember-api+cache", cached.Name())
}

func TestDatabaseSource(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()
	require.NoError(t, repo.UpsertGenerationBatch(ctx, []*models.GenerationRecord{
		{EntityCode: "BRA", Series: "Solar", Year: 2019, GenerationTWh: 10},
		{EntityCode: "BRA", Series: "Solar", Year: 2020, GenerationTWh: 12.25},
		{EntityCode: "ARG", Series: "Solar", Year: 2020, GenerationTWh: 99},
	}))

	source := NewDatabaseSource(repo, "BRA")
	batch, err := source.FetchRecords(ctx)
	require.NoError(t, err)

	assert.Equal(t, "database", batch.Source)
	require.Len(t, batch.Records, 2)

	dataset := NormalizeRecords(batch.Records)
	solar, ok := dataset.Timeline("Solar")
	require.True(t, ok)
	assert.Equal(t, []models.Point{{Year: 2019, Value: 10}, {Year: 2020, Value: 12.25}}, solar.Points)
}

func TestDatasetService_Load(t *testing.T) {
	records := append(solarWindRecords(), rec("Wind", "n/a", "3"))
	source := &fakeSource{name: "ember-api", batch: &models.RecordBatch{Records: records, Malformed: 1}}
	collector := newTestCollector()
	svc := NewDatasetService(source, logging.NewNopLogger(), collector)
	svc.now = func() time.Time { return fixedTime }

	dataset, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Solar", "Wind"}, dataset.Labels())
	assert.True(t, fixedTime.Equal(dataset.LoadedAt()))
	assert.Equal(t, 6, dataset.Report().TotalRecords)
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.DatasetSeries))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.DatasetPoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.NormalizationDroppedTotal.WithLabelValues(DropInvalidDate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.NormalizationDroppedTotal.WithLabelValues(DropMalformedRecord)))
}

func TestDatasetService_LoadEmptyIsNotAnError(t *testing.T) {
	source := &fakeSource{name: "ember-api", batch: &models.RecordBatch{}}
	svc := NewDatasetService(source, logging.NewNopLogger(), newTestCollector())

	dataset, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dataset.Labels())
}

func TestDatasetService_LoadPropagatesTypedErrors(t *testing.T) {
	fetchErr := &models.DataFetchError{URL: "https://api.example/v1", StatusCode: 503}
	source := &fakeSource{name: "ember-api", err: fetchErr}
	svc := NewDatasetService(source, logging.NewNopLogger(), newTestCollector())

	dataset, err := svc.Load(context.Background())
	assert.Nil(t, dataset)

	var got *models.DataFetchError
	require.True(t, errors.As(err, &got))
	assert.True(t, got.IsTransient())
}
