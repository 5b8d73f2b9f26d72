package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// TestRawRecord_ToPoint tests the coercion rules for upstream records
func TestRawRecord_ToPoint(t *testing.T) {
	tests := []struct {
		name        string
		record      RawRecord
		wantErr     bool
		wantField   string
		checkValues func(*testing.T, Point)
	}{
		{
			name:   "string year and generation",
			record: RawRecord{Series: "Solar", Date: "2019", GenerationTWh: "10"},
			checkValues: func(t *testing.T, p Point) {
				if p.Year != 2019 {
					t.Errorf("Year = %v, want %v", p.Year, 2019)
				}
				if p.Value != 10 {
					t.Errorf("Value = %v, want %v", p.Value, 10.0)
				}
			},
		},
		{
			name:   "integral decimal year",
			record: RawRecord{Series: "Hydro", Date: "2020.0", GenerationTWh: "396.38"},
			checkValues: func(t *testing.T, p Point) {
				if p.Year != 2020 {
					t.Errorf("Year = %v, want %v", p.Year, 2020)
				}
				if p.Value != 396.38 {
					t.Errorf("Value = %v, want %v", p.Value, 396.38)
				}
			},
		},
		{
			name:   "surrounding whitespace",
			record: RawRecord{Series: "Wind", Date: " 2021 ", GenerationTWh: " 72.3 "},
			checkValues: func(t *testing.T, p Point) {
				if p.Year != 2021 || p.Value != 72.3 {
					t.Errorf("Point = %+v, want {2021 72.3}", p)
				}
			},
		},
		{
			name:   "zero generation is valid",
			record: RawRecord{Series: "Coal", Date: "2000", GenerationTWh: "0"},
			checkValues: func(t *testing.T, p Point) {
				if p.Value != 0 {
					t.Errorf("Value = %v, want 0", p.Value)
				}
			},
		},
		{
			name:      "non numeric year",
			record:    RawRecord{Series: "Solar", Date: "not-a-year", GenerationTWh: "10"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "fractional year",
			record:    RawRecord{Series: "Solar", Date: "2019.5", GenerationTWh: "10"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "missing year",
			record:    RawRecord{Series: "Solar", Date: "", GenerationTWh: "10"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "year beyond int32",
			record:    RawRecord{Series: "Big", Date: "9223372036854775807", GenerationTWh: "1"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "year after range",
			record:    RawRecord{Series: "Solar", Date: "2101", GenerationTWh: "1"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "decimal year before range",
			record:    RawRecord{Series: "Solar", Date: "1899.0", GenerationTWh: "1"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "negative year",
			record:    RawRecord{Series: "Solar", Date: "-2019", GenerationTWh: "1"},
			wantErr:   true,
			wantField: "date",
		},
		{
			name:   "last accepted year",
			record: RawRecord{Series: "Solar", Date: "2100", GenerationTWh: "1"},
			checkValues: func(t *testing.T, p Point) {
				if p.Year != MaxYear {
					t.Errorf("Year = %v, want %v", p.Year, MaxYear)
				}
			},
		},
		{
			name:      "non numeric generation",
			record:    RawRecord{Series: "Solar", Date: "2019", GenerationTWh: "n/a"},
			wantErr:   true,
			wantField: "generation_twh",
		},
		{
			name:      "NaN generation",
			record:    RawRecord{Series: "Solar", Date: "2019", GenerationTWh: "NaN"},
			wantErr:   true,
			wantField: "generation_twh",
		},
		{
			name:      "infinite generation",
			record:    RawRecord{Series: "Solar", Date: "2019", GenerationTWh: "+Inf"},
			wantErr:   true,
			wantField: "generation_twh",
		},
		{
			name:      "negative generation",
			record:    RawRecord{Series: "Solar", Date: "2019", GenerationTWh: "-1.5"},
			wantErr:   true,
			wantField: "generation_twh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.record.ToPoint()

			if (err != nil) != tt.wantErr {
				t.Errorf("ToPoint() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %v, want %v", verr.Field, tt.wantField)
				}
				return
			}

			if tt.checkValues != nil {
				tt.checkValues(t, p)
			}
		})
	}
}

// TestRawRecord_UnmarshalJSON checks that any scalar shape decodes without error
func TestRawRecord_UnmarshalJSON(t *testing.T) {
	payload := `[
		{"series": "Solar", "date": "2019", "generation_twh": "10"},
		{"series": "Solar", "date": 2020, "generation_twh": 12.5},
		{"series": "Solar", "date": null, "generation_twh": true},
		{"series": "Wind", "date": "2021", "generation_twh": {"nested": 1}}
	]`

	var records []RawRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4", len(records))
	}

	if records[1].Date != "2020" || records[1].GenerationTWh != "12.5" {
		t.Errorf("numeric record = %+v, want literal text", records[1])
	}

	if records[2].Date != "" {
		t.Errorf("null date = %q, want empty", records[2].Date)
	}

	if _, err := records[2].ToPoint(); err == nil {
		t.Error("record with null date should not coerce")
	}

	if _, err := records[3].ToPoint(); err == nil {
		t.Error("record with object generation should not coerce")
	}
}

func TestDataset_IsReadOnly(t *testing.T) {
	timelines := []SeriesTimeline{
		{Series: "Wind", Points: []Point{{Year: 2019, Value: 5}}},
		{Series: "Solar", Points: []Point{{Year: 2019, Value: 10}, {Year: 2020, Value: 12}}},
	}
	d := NewDataset(timelines, NormalizationReport{TotalRecords: 3, AcceptedRecords: 3}, time.Unix(0, 0))

	timelines[1].Points[0].Value = 999

	solar, ok := d.Timeline("Solar")
	if !ok {
		t.Fatal("Solar timeline missing")
	}
	if solar.Points[0].Value != 10 {
		t.Errorf("dataset shares memory with its input: got %v", solar.Points[0].Value)
	}

	solar.Points[0].Value = 777
	again, _ := d.Timeline("Solar")
	if again.Points[0].Value != 10 {
		t.Errorf("dataset shares memory with returned copies: got %v", again.Points[0].Value)
	}

	labels := d.Labels()
	if len(labels) != 2 || labels[0] != "Solar" || labels[1] != "Wind" {
		t.Errorf("Labels() = %v, want [Solar Wind]", labels)
	}

	if d.PointCount() != 3 {
		t.Errorf("PointCount() = %d, want 3", d.PointCount())
	}
}

func TestGenerationRecord_ToRawRecord(t *testing.T) {
	rec := GenerationRecord{Series: "Hydro", Year: 2015, GenerationTWh: 359.743}
	raw := rec.ToRawRecord()

	p, err := raw.ToPoint()
	if err != nil {
		t.Fatalf("ToPoint() error = %v", err)
	}
	if p.Year != 2015 || p.Value != 359.743 {
		t.Errorf("round trip = %+v, want {2015 359.743}", p)
	}
}

// TestErrorClassification tests error handling
func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           interface{ IsTransient() bool }
		wantTransient bool
	}{
		{"validation", &ValidationError{Field: "date", Message: "invalid"}, false},
		{"transport failure", &DataFetchError{URL: "http://x", Err: errors.New("dial tcp")}, true},
		{"server error", &DataFetchError{URL: "http://x", StatusCode: 503}, true},
		{"rate limited", &DataFetchError{URL: "http://x", StatusCode: 429}, true},
		{"unauthorized", &DataFetchError{URL: "http://x", StatusCode: 401}, false},
		{"format", &DataFormatError{Reason: "missing data key"}, false},
		{"insufficient", &InsufficientDataError{Series: "Solar"}, false},
		{"not found", &NotFoundError{Resource: "series", ID: "Solar"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsTransient(); got != tt.wantTransient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.wantTransient)
			}
		})
	}

	cause := errors.New("connection refused")
	fetchErr := &DataFetchError{URL: "http://x", Err: cause}
	if !errors.Is(fetchErr, cause) {
		t.Error("DataFetchError should unwrap to its cause")
	}
}
