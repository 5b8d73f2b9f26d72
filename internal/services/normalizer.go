package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"enerlyze/internal/models"
)

// Drop reasons reported by the normalizer
const (
	DropMissingSeries     = "missing_series"
	DropInvalidDate       = "invalid_date"
	DropInvalidGeneration = "invalid_generation"
	DropMalformedRecord   = "malformed_record"
)

// NormalizeRecords turns raw upstream records into a read-only dataset.
// Records whose year or generation cannot be coerced are dropped from their
// series; a (series, year) seen twice keeps the last value.
func NormalizeRecords(records []models.RawRecord) *models.Dataset {
	return normalize(records, 0, time.Time{})
}

// normalize also folds in elements the fetcher already rejected as non-objects
func normalize(records []models.RawRecord, malformed int, loadedAt time.Time) *models.Dataset {
	report := models.NormalizationReport{
		TotalRecords:    len(records) + malformed,
		DroppedByReason: make(map[string]int),
	}
	if malformed > 0 {
		report.DroppedByReason[DropMalformedRecord] = malformed
		report.DroppedRecords += malformed
	}

	byLabel := make(map[string]map[int]float64)
	seen := make(map[string]bool)

	for i := range records {
		rec := &records[i]
		label := strings.TrimSpace(rec.Series)
		if label == "" {
			report.DroppedRecords++
			report.DroppedByReason[DropMissingSeries]++
			continue
		}
		seen[label] = true

		point, err := rec.ToPoint()
		if err != nil {
			report.DroppedRecords++
			report.DroppedByReason[dropReason(err)]++
			continue
		}

		years, ok := byLabel[label]
		if !ok {
			years = make(map[int]float64)
			byLabel[label] = years
		}
		if _, dup := years[point.Year]; dup {
			report.DuplicateYears++
		}
		years[point.Year] = point.Value
		report.AcceptedRecords++
	}

	timelines := make([]models.SeriesTimeline, 0, len(byLabel))
	for label, years := range byLabel {
		points := make([]models.Point, 0, len(years))
		for year, value := range years {
			points = append(points, models.Point{Year: year, Value: value})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
		timelines = append(timelines, models.SeriesTimeline{Series: label, Points: points})
	}

	for label := range seen {
		if _, ok := byLabel[label]; !ok {
			report.EmptySeries = append(report.EmptySeries, label)
		}
	}
	sort.Strings(report.EmptySeries)

	return models.NewDataset(timelines, report, loadedAt)
}

func dropReason(err error) string {
	var verr *models.ValidationError
	if errors.As(err, &verr) && verr.Field == "date" {
		return DropInvalidDate
	}
	return DropInvalidGeneration
}
