package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawValue holds a scalar exactly as the upstream API sent it.
// Strings are unquoted, numbers keep their literal text and null becomes "".
// Coercion happens later so a bad value only affects its own record.
type RawValue string

// UnmarshalJSON accepts any JSON scalar without failing
func (v *RawValue) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	switch {
	case text == "null":
		*v = ""
	case strings.HasPrefix(text, `"`):
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			*v = RawValue(text)
			return nil
		}
		*v = RawValue(unquoted)
	default:
		*v = RawValue(text)
	}
	return nil
}

// Accepted observation years. Matches the generation_records CHECK constraint.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Year coerces the value to an integer year in [MinYear, MaxYear].
// Integral decimals such as "2019.0" are accepted.
func (v RawValue) Year() (int, error) {
	text := strings.TrimSpace(string(v))
	invalid := &ValidationError{
		Field:   "date",
		Value:   text,
		Message: "invalid date, expected integer year",
	}

	year, err := strconv.Atoi(text)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, invalid
		}
		year = int(f)
	}

	if year < MinYear || year > MaxYear {
		return 0, &ValidationError{
			Field:   "date",
			Value:   text,
			Message: fmt.Sprintf("year out of range, expected %d-%d", MinYear, MaxYear),
		}
	}
	return year, nil
}

// Generation coerces the value to a finite, non-negative TWh figure
func (v RawValue) Generation() (float64, error) {
	text := strings.TrimSpace(string(v))
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{
			Field:   "generation_twh",
			Value:   text,
			Message: "invalid generation, expected finite number",
		}
	}
	if f < 0 {
		return 0, &ValidationError{
			Field:   "generation_twh",
			Value:   text,
			Message: "invalid generation, expected non-negative number",
		}
	}
	return f, nil
}

// RawRecord is one observation as returned by the yearly generation endpoint
type RawRecord struct {
	Series        string   `json:"series"`
	Date          RawValue `json:"date"`
	GenerationTWh RawValue `json:"generation_twh"`
}

// ToPoint converts the record to a typed point.
// The returned error is always a *ValidationError naming the offending field.
func (r *RawRecord) ToPoint() (Point, error) {
	year, err := r.Date.Year()
	if err != nil {
		return Point{}, err
	}

	value, err := r.GenerationTWh.Generation()
	if err != nil {
		return Point{}, err
	}

	return Point{Year: year, Value: value}, nil
}

// Point is a single (year, value) pair
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// SeriesTimeline is the ordered history of one energy source.
// Years are unique and ascending, values are finite.
type SeriesTimeline struct {
	Series string  `json:"series"`
	Points []Point `json:"points"`
}

// Len returns the number of points
func (t SeriesTimeline) Len() int {
	return len(t.Points)
}

// Last returns the most recent point; ok is false for an empty timeline
func (t SeriesTimeline) Last() (Point, bool) {
	if len(t.Points) == 0 {
		return Point{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// Years returns the years as float64, ready for regression
func (t SeriesTimeline) Years() []float64 {
	xs := make([]float64, len(t.Points))
	for i, p := range t.Points {
		xs[i] = float64(p.Year)
	}
	return xs
}

// Values returns the values in year order
func (t SeriesTimeline) Values() []float64 {
	ys := make([]float64, len(t.Points))
	for i, p := range t.Points {
		ys[i] = p.Value
	}
	return ys
}

func (t SeriesTimeline) clone() SeriesTimeline {
	points := make([]Point, len(t.Points))
	copy(points, t.Points)
	return SeriesTimeline{Series: t.Series, Points: points}
}

// NormalizationReport counts what the normalizer dropped
type NormalizationReport struct {
	TotalRecords    int            `json:"total_records"`
	AcceptedRecords int            `json:"accepted_records"`
	DroppedRecords  int            `json:"dropped_records"`
	DroppedByReason map[string]int `json:"dropped_by_reason,omitempty"`
	DuplicateYears  int            `json:"duplicate_years"`
	EmptySeries     []string       `json:"empty_series,omitempty"`
}

// Dataset is the read-only, normalized view of everything fetched at startup.
// It is never mutated after NewDataset returns; accessors hand out copies.
type Dataset struct {
	timelines map[string]SeriesTimeline
	labels    []string
	report    NormalizationReport
	loadedAt  time.Time
}

// NewDataset builds a dataset from already-normalized timelines
func NewDataset(timelines []SeriesTimeline, report NormalizationReport, loadedAt time.Time) *Dataset {
	d := &Dataset{
		timelines: make(map[string]SeriesTimeline, len(timelines)),
		labels:    make([]string, 0, len(timelines)),
		report:    report,
		loadedAt:  loadedAt,
	}

	for _, t := range timelines {
		if _, exists := d.timelines[t.Series]; !exists {
			d.labels = append(d.labels, t.Series)
		}
		d.timelines[t.Series] = t.clone()
	}
	sort.Strings(d.labels)

	return d
}

// Labels returns the series labels in lexical order
func (d *Dataset) Labels() []string {
	labels := make([]string, len(d.labels))
	copy(labels, d.labels)
	return labels
}

// Timeline returns a copy of the named series
func (d *Dataset) Timeline(series string) (SeriesTimeline, bool) {
	t, ok := d.timelines[series]
	if !ok {
		return SeriesTimeline{}, false
	}
	return t.clone(), true
}

// Timelines returns copies of every series, ordered by label
func (d *Dataset) Timelines() []SeriesTimeline {
	out := make([]SeriesTimeline, 0, len(d.labels))
	for _, label := range d.labels {
		out = append(out, d.timelines[label].clone())
	}
	return out
}

// PointCount returns the number of points across all series
func (d *Dataset) PointCount() int {
	total := 0
	for _, t := range d.timelines {
		total += len(t.Points)
	}
	return total
}

// Report returns the normalization report
func (d *Dataset) Report() NormalizationReport {
	return d.report
}

// LoadedAt returns when the dataset was built
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// ProjectionResult is the extrapolated continuation of a timeline
type ProjectionResult struct {
	Series    string  `json:"series"`
	Horizon   int     `json:"horizon"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Points    []Point `json:"points"`
}

// WasteAggregate holds the derived waste figures for one year, in kilograms.
// Every figure is a fixed multiple of the year's total generation across all
// sources, not of the matching source's own generation.
type WasteAggregate struct {
	Year               int     `json:"year"`
	TotalGenerationTWh float64 `json:"total_generation_twh"`
	SolarKg            float64 `json:"solar_kg"`
	WindKg             float64 `json:"wind_kg"`
	HydroKg            float64 `json:"hydro_kg"`
	BiomassKg          float64 `json:"biomass_kg"`
}

// WasteByYear indexes aggregates by year
func WasteByYear(aggregates []WasteAggregate) map[int]WasteAggregate {
	byYear := make(map[int]WasteAggregate, len(aggregates))
	for _, a := range aggregates {
		byYear[a.Year] = a
	}
	return byYear
}

// GenerationRecord is a normalized point persisted in Postgres
type GenerationRecord struct {
	ID            int64     `json:"id" db:"id"`
	EntityCode    string    `json:"entity_code" db:"entity_code"`
	Series        string    `json:"series" db:"series"`
	Year          int       `json:"year" db:"year"`
	GenerationTWh float64   `json:"generation_twh" db:"generation_twh"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ToRawRecord turns a stored record back into the upstream shape so that
// database-backed loads run through the same normalizer as API loads
func (g *GenerationRecord) ToRawRecord() RawRecord {
	return RawRecord{
		Series:        g.Series,
		Date:          RawValue(strconv.Itoa(g.Year)),
		GenerationTWh: RawValue(strconv.FormatFloat(g.GenerationTWh, 'g', -1, 64)),
	}
}

// IngestionRun records one execution of the ingester
type IngestionRun struct {
	ID              int64     `json:"id" db:"id"`
	EntityCode      string    `json:"entity_code" db:"entity_code"`
	StartYear       int       `json:"start_year" db:"start_year"`
	TotalRecords    int       `json:"total_records" db:"total_records"`
	AcceptedRecords int       `json:"accepted_records" db:"accepted_records"`
	DroppedRecords  int       `json:"dropped_records" db:"dropped_records"`
	SeriesCount     int       `json:"series_count" db:"series_count"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	FinishedAt      time.Time `json:"finished_at" db:"finished_at"`
}

// RecordBatch is a raw payload as delivered by a record source.
// Malformed counts array elements that were not objects and never became records.
type RecordBatch struct {
	Source    string      `json:"source"`
	Records   []RawRecord `json:"records"`
	Malformed int         `json:"malformed"`
	FetchedAt time.Time   `json:"fetched_at"`
}
