package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
)

func newTestIngestion(source RecordSource, repo *fakeRepo) *IngestionService {
	return NewIngestionService(source, repo, "BRA", 1990, logging.NewNopLogger(), newTestCollector())
}

func TestIngestionService_Ingest(t *testing.T) {
	tests := []struct {
		name        string
		batchSize   int
		wantBatches int
	}{
		{"single batch", 100, 1},
		{"exact multiple", 2, 2},
		{"remainder batch", 3, 2},
		{"one per batch", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := append(solarWindRecords(), rec("Hydro", "oops", "1"))
			source := &fakeSource{name: "ember-api", batch: &models.RecordBatch{Records: records}}
			repo := newFakeRepo()

			result, err := newTestIngestion(source, repo).Ingest(context.Background(), tt.batchSize)
			require.NoError(t, err)

			assert.Equal(t, 4, result.PersistedRecords)
			assert.Equal(t, tt.wantBatches, result.Batches)
			assert.Len(t, repo.batches, tt.wantBatches)
			assert.Equal(t, []string{"Solar", "Wind"}, result.Series)
			assert.Equal(t, []string{"Hydro"}, result.EmptySeries)
			assert.Equal(t, 1, result.DroppedByReason[DropInvalidDate])

			require.NotNil(t, result.Run)
			assert.Equal(t, int64(1), result.Run.ID)
			assert.Equal(t, "BRA", result.Run.EntityCode)
			assert.Equal(t, 1990, result.Run.StartYear)
			assert.Equal(t, 5, result.Run.TotalRecords)
			assert.Equal(t, 4, result.Run.AcceptedRecords)
			assert.Equal(t, 1, result.Run.DroppedRecords)
			assert.Equal(t, 2, result.Run.SeriesCount)
			assert.False(t, result.Run.FinishedAt.Before(result.Run.StartedAt))

			stored, err := repo.AllGenerationRecords(context.Background(), "BRA")
			require.NoError(t, err)
			require.Len(t, stored, 4)
			assert.Equal(t, "Solar", stored[0].Series)
			assert.Equal(t, 2019, stored[0].Year)
			assert.Equal(t, 10.0, stored[0].GenerationTWh)
		})
	}
}

func TestIngestionService_BatchesAreIndependent(t *testing.T) {
	source := &fakeSource{name: "ember-api", batch: &models.RecordBatch{Records: solarWindRecords()}}
	repo := newFakeRepo()

	_, err := newTestIngestion(source, repo).Ingest(context.Background(), 2)
	require.NoError(t, err)

	require.Len(t, repo.batches, 2)
	assert.Equal(t, "Solar", repo.batches[0][0].Series)
	assert.Equal(t, "Wind", repo.batches[1][0].Series)
}

func TestIngestionService_Errors(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		sourceErr error
		upsertErr error
		runErr    error
		check     func(t *testing.T, err error)
	}{
		{
			name:      "invalid batch size",
			batchSize: 0,
			check: func(t *testing.T, err error) {
				var verr *models.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "batch_size", verr.Field)
			},
		},
		{
			name:      "fetch failure",
			batchSize: 10,
			sourceErr: &models.DataFetchError{URL: "https://api.example", StatusCode: 500},
			check: func(t *testing.T, err error) {
				var fetchErr *models.DataFetchError
				assert.True(t, errors.As(err, &fetchErr))
			},
		},
		{
			name:      "upsert failure",
			batchSize: 10,
			upsertErr: errBoom,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errBoom)
				assert.Contains(t, err.Error(), "batch 1")
			},
		},
		{
			name:      "run failure",
			batchSize: 10,
			runErr:    errBoom,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, errBoom)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{name: "ember-api", batch: &models.RecordBatch{Records: solarWindRecords()}, err: tt.sourceErr}
			repo := newFakeRepo()
			repo.upsertErr = tt.upsertErr
			repo.runErr = tt.runErr

			result, err := newTestIngestion(source, repo).Ingest(context.Background(), tt.batchSize)
			assert.Nil(t, result)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
