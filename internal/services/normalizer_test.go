package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enerlyze/internal/models"
)

func TestNormalizeRecords_SolarWind(t *testing.T) {
	dataset := NormalizeRecords(solarWindRecords())

	assert.Equal(t, []string{"Solar", "Wind"}, dataset.Labels())

	solar, ok := dataset.Timeline("Solar")
	require.True(t, ok)
	assert.Equal(t, []models.Point{{Year: 2019, Value: 10}, {Year: 2020, Value: 12}}, solar.Points)

	wind, ok := dataset.Timeline("Wind")
	require.True(t, ok)
	assert.Equal(t, []models.Point{{Year: 2019, Value: 5}, {Year: 2020, Value: 7}}, wind.Points)

	report := dataset.Report()
	assert.Equal(t, 4, report.TotalRecords)
	assert.Equal(t, 4, report.AcceptedRecords)
	assert.Zero(t, report.DroppedRecords)
	assert.Equal(t, 4, dataset.PointCount())
}

func TestNormalizeRecords_Drops(t *testing.T) {
	tests := []struct {
		name      string
		records   []models.RawRecord
		reason    string
		wantEmpty []string
	}{
		{
			name:      "non numeric year",
			records:   []models.RawRecord{rec("Solar", "not-a-year", "10")},
			reason:    DropInvalidDate,
			wantEmpty: []string{"Solar"},
		},
		{
			name:      "fractional year",
			records:   []models.RawRecord{rec("Solar", "2019.5", "10")},
			reason:    DropInvalidDate,
			wantEmpty: []string{"Solar"},
		},
		{
			name:      "year out of range",
			records:   []models.RawRecord{rec("Big", "9223372036854775807", "1")},
			reason:    DropInvalidDate,
			wantEmpty: []string{"Big"},
		},
		{
			name:      "empty generation",
			records:   []models.RawRecord{rec("Wind", "2019", "")},
			reason:    DropInvalidGeneration,
			wantEmpty: []string{"Wind"},
		},
		{
			name:      "negative generation",
			records:   []models.RawRecord{rec("Wind", "2019", "-1")},
			reason:    DropInvalidGeneration,
			wantEmpty: []string{"Wind"},
		},
		{
			name:      "nan generation",
			records:   []models.RawRecord{rec("Hydro", "2019", "NaN")},
			reason:    DropInvalidGeneration,
			wantEmpty: []string{"Hydro"},
		},
		{
			name:    "blank series",
			records: []models.RawRecord{rec("  ", "2019", "3")},
			reason:  DropMissingSeries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset := NormalizeRecords(tt.records)

			assert.Empty(t, dataset.Labels())
			report := dataset.Report()
			assert.Equal(t, 1, report.DroppedRecords)
			assert.Equal(t, 1, report.DroppedByReason[tt.reason])
			assert.Equal(t, tt.wantEmpty, report.EmptySeries)
		})
	}
}

func TestNormalizeRecords_MalformedRecordIsIgnored(t *testing.T) {
	records := append(solarWindRecords(), rec("Solar", "not-a-year", "99"))

	dataset := NormalizeRecords(records)

	solar, ok := dataset.Timeline("Solar")
	require.True(t, ok)
	assert.Equal(t, []models.Point{{Year: 2019, Value: 10}, {Year: 2020, Value: 12}}, solar.Points)
	for _, timeline := range dataset.Timelines() {
		for _, p := range timeline.Points {
			assert.NotEqual(t, 99.0, p.Value)
		}
	}
	assert.Equal(t, 1, dataset.Report().DroppedByReason[DropInvalidDate])
	assert.Empty(t, dataset.Report().EmptySeries)
}

func TestNormalizeRecords_OrderAndDuplicates(t *testing.T) {
	records := []models.RawRecord{
		rec("Hydro", "2021", "30"),
		rec("Hydro", "2019.0", "10"),
		rec("Hydro", " 2020 ", "20"),
		rec("Hydro", "2019", "11"),
	}

	dataset := NormalizeRecords(records)

	hydro, ok := dataset.Timeline("Hydro")
	require.True(t, ok)
	assert.Equal(t, []models.Point{
		{Year: 2019, Value: 11},
		{Year: 2020, Value: 20},
		{Year: 2021, Value: 30},
	}, hydro.Points)
	assert.Equal(t, 1, dataset.Report().DuplicateYears)
	assert.Equal(t, 4, dataset.Report().AcceptedRecords)
}

func TestNormalizeRecords_YearsUniqueAndAscending(t *testing.T) {
	records := []models.RawRecord{
		rec("Solar", "2022", "4"),
		rec("Wind", "x", "1"),
		rec("Solar", "2020", "2"),
		rec("Solar", "2022", "5"),
		rec("Wind", "2018", "bad"),
		rec("Wind", "2019", "1.5"),
		rec("Solar", "1999", "0"),
	}

	dataset := NormalizeRecords(records)

	for _, timeline := range dataset.Timelines() {
		for i := 1; i < len(timeline.Points); i++ {
			assert.Less(t, timeline.Points[i-1].Year, timeline.Points[i].Year, timeline.Series)
		}
	}
	assert.Equal(t, 2, dataset.Report().DroppedRecords)
}

func TestNormalize_CountsMalformedElements(t *testing.T) {
	dataset := normalize(solarWindRecords(), 2, fixedTime)

	report := dataset.Report()
	assert.Equal(t, 6, report.TotalRecords)
	assert.Equal(t, 4, report.AcceptedRecords)
	assert.Equal(t, 2, report.DroppedRecords)
	assert.Equal(t, 2, report.DroppedByReason[DropMalformedRecord])
	assert.True(t, fixedTime.Equal(dataset.LoadedAt()))
}

func TestNormalizeRecords_Empty(t *testing.T) {
	dataset := NormalizeRecords(nil)

	assert.Empty(t, dataset.Labels())
	assert.Zero(t, dataset.PointCount())
	assert.Zero(t, dataset.Report().TotalRecords)
}
