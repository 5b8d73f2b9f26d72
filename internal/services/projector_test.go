package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enerlyze/internal/models"
)

func lineTimeline(series string, from, to int, f func(year int) float64) models.SeriesTimeline {
	timeline := models.SeriesTimeline{Series: series}
	for year := from; year <= to; year++ {
		timeline.Points = append(timeline.Points, models.Point{Year: year, Value: f(year)})
	}
	return timeline
}

func TestProjectTimeline_ExactLine(t *testing.T) {
	timeline := lineTimeline("Synthetic", 2000, 2010, func(year int) float64 { return 2*float64(year) + 3 })

	result, err := ProjectTimeline(timeline, 5)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, result.Slope, 1e-9)
	assert.InDelta(t, 3.0, result.Intercept, 1e-6)
	require.Len(t, result.Points, 5)
	for i, p := range result.Points {
		assert.Equal(t, 2011+i, p.Year)
		assert.InDelta(t, 2*float64(p.Year)+3, p.Value, 1e-6)
	}
}

func TestProjectTimeline_Continuity(t *testing.T) {
	timeline := models.SeriesTimeline{
		Series: "Wind",
		Points: []models.Point{{Year: 1995, Value: 1}, {Year: 2001, Value: 4}, {Year: 2004, Value: 3.5}},
	}

	for horizon := 1; horizon <= 10; horizon++ {
		result, err := ProjectTimeline(timeline, horizon)
		require.NoError(t, err)
		require.Len(t, result.Points, horizon)
		assert.Equal(t, 2005, result.Points[0].Year)
		assert.Equal(t, 2004+horizon, result.Points[horizon-1].Year)
		assert.Equal(t, horizon, result.Horizon)
		assert.Equal(t, "Wind", result.Series)
	}
}

func TestProjectTimeline_ContinuityFromNormalizedRecords(t *testing.T) {
	dataset := NormalizeRecords([]models.RawRecord{
		rec("Big", "9223372036854775807", "1"),
		rec("Big", "2099", "1"),
		rec("Big", "2100", "2"),
	})

	timeline, ok := dataset.Timeline("Big")
	require.True(t, ok)
	require.Equal(t, 2, timeline.Len())

	result, err := ProjectTimeline(timeline, 2)
	require.NoError(t, err)
	require.Len(t, result.Points, 2)
	assert.Equal(t, models.MaxYear+1, result.Points[0].Year)
	assert.Equal(t, models.MaxYear+2, result.Points[1].Year)
}

func TestProjectTimeline_Deterministic(t *testing.T) {
	timeline := models.SeriesTimeline{
		Series: "Hydro",
		Points: []models.Point{{Year: 2015, Value: 359.7}, {Year: 2016, Value: 380.9}, {Year: 2017, Value: 370.9}, {Year: 2018, Value: 388.9}},
	}

	first, err := ProjectTimeline(timeline, 7)
	require.NoError(t, err)
	second, err := ProjectTimeline(timeline, 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProjectTimeline_SolarWind(t *testing.T) {
	dataset := NormalizeRecords(solarWindRecords())

	tests := []struct {
		series string
		want   []models.Point
	}{
		{"Solar", []models.Point{{Year: 2021, Value: 14}, {Year: 2022, Value: 16}}},
		{"Wind", []models.Point{{Year: 2021, Value: 9}, {Year: 2022, Value: 11}}},
	}

	for _, tt := range tests {
		t.Run(tt.series, func(t *testing.T) {
			timeline, ok := dataset.Timeline(tt.series)
			require.True(t, ok)

			result, err := ProjectTimeline(timeline, 2)
			require.NoError(t, err)
			require.Len(t, result.Points, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want.Year, result.Points[i].Year)
				assert.InDelta(t, want.Value, result.Points[i].Value, 1e-6)
			}
		})
	}
}

func TestProjectTimeline_SinglePointIsFlat(t *testing.T) {
	timeline := models.SeriesTimeline{Series: "Nuclear", Points: []models.Point{{Year: 2020, Value: 14.1}}}

	result, err := ProjectTimeline(timeline, 3)
	require.NoError(t, err)

	assert.Zero(t, result.Slope)
	for i, p := range result.Points {
		assert.Equal(t, 2021+i, p.Year)
		assert.Equal(t, 14.1, p.Value)
	}
}

func TestProjectTimeline_DecliningSeriesIsNotClamped(t *testing.T) {
	timeline := lineTimeline("Oil", 2018, 2020, func(year int) float64 { return float64(2020-year) * 5 })

	result, err := ProjectTimeline(timeline, 2)
	require.NoError(t, err)

	assert.InDelta(t, -5.0, result.Points[0].Value, 1e-6)
	assert.InDelta(t, -10.0, result.Points[1].Value, 1e-6)
}

func TestProjectTimeline_Errors(t *testing.T) {
	valid := lineTimeline("Solar", 2019, 2020, func(year int) float64 { return 1 })

	tests := []struct {
		name     string
		timeline models.SeriesTimeline
		horizon  int
		check    func(t *testing.T, err error)
	}{
		{
			name:     "zero horizon",
			timeline: valid,
			horizon:  0,
			check: func(t *testing.T, err error) {
				var verr *models.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "horizon", verr.Field)
			},
		},
		{
			name:     "negative horizon",
			timeline: valid,
			horizon:  -3,
			check: func(t *testing.T, err error) {
				var verr *models.ValidationError
				assert.True(t, errors.As(err, &verr))
			},
		},
		{
			name:     "empty timeline",
			timeline: models.SeriesTimeline{Series: "Empty"},
			horizon:  5,
			check: func(t *testing.T, err error) {
				var insufficient *models.InsufficientDataError
				require.True(t, errors.As(err, &insufficient))
				assert.Equal(t, "Empty", insufficient.Series)
				assert.Zero(t, insufficient.Points)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ProjectTimeline(tt.timeline, tt.horizon)
			assert.Nil(t, result)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
