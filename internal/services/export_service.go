package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// Export file names offered for download
const (
	CSVExportFileName  = "projecao_energia.csv"
	XLSXExportFileName = "projecao_energia.xlsx"
)

// Row kinds in exported tables
const (
	KindHistorical = "historical"
	KindProjected  = "projected"
)

// Workbook sheet names
const (
	SheetHistorical = "Historical"
	SheetProjection = "Projection"
	SheetWaste      = "Waste"
)

// CSVHeader is the first line of every CSV export
var CSVHeader = []string{"series", "year", "generation_twh", "kind"}

// ExportRow is one line of the long-format projection table
type ExportRow struct {
	Series        string
	Year          int
	GenerationTWh float64
	Kind          string
}

// ProjectionRows lists, per series in label order, every historical point
// followed by the projected points
func ProjectionRows(dataset *models.Dataset, horizon int) ([]ExportRow, error) {
	var rows []ExportRow
	for _, timeline := range dataset.Timelines() {
		projection, err := ProjectTimeline(timeline, horizon)
		if err != nil {
			return nil, err
		}
		for _, p := range timeline.Points {
			rows = append(rows, ExportRow{Series: timeline.Series, Year: p.Year, GenerationTWh: p.Value, Kind: KindHistorical})
		}
		for _, p := range projection.Points {
			rows = append(rows, ExportRow{Series: timeline.Series, Year: p.Year, GenerationTWh: p.Value, Kind: KindProjected})
		}
	}
	return rows, nil
}

// ExportService writes projections as downloadable tables
type ExportService struct {
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewExportService creates a new export service
func NewExportService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ExportService {
	return &ExportService{
		logger:  logger.WithComponent("export"),
		metrics: metricsCollector,
	}
}

// WriteCSV writes the long-format projection table
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, dataset *models.Dataset, horizon int) error {
	rows, err := ProjectionRows(dataset, horizon)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Series,
			strconv.Itoa(row.Year),
			strconv.FormatFloat(row.GenerationTWh, 'f', -1, 64),
			row.Kind,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	s.metrics.RecordExport("csv")
	s.logger.Info(ctx, "[EXPORT_CSV] Projection table written", logging.Fields{
		"rows":    len(rows),
		"horizon": horizon,
	})
	return nil
}

// WriteXLSX writes a workbook with wide historical, projection and waste
// sheets, each carrying a native chart over its table
func (s *ExportService) WriteXLSX(ctx context.Context, w io.Writer, dataset *models.Dataset, horizon int) error {
	timelines := dataset.Timelines()
	projections := make([]models.SeriesTimeline, 0, len(timelines))
	for _, timeline := range timelines {
		projection, err := ProjectTimeline(timeline, horizon)
		if err != nil {
			return err
		}
		projections = append(projections, models.SeriesTimeline{Series: timeline.Series, Points: projection.Points})
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetHistorical); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetProjection); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetWaste); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeWideSheet(f, SheetHistorical, timelines, excelize.Line, GenerationChartTitle, GenerationAxisTitle); err != nil {
		return err
	}
	if err := writeWideSheet(f, SheetProjection, projections, excelize.Line, fmt.Sprintf("Projected Generation (%d years)", horizon), GenerationAxisTitle); err != nil {
		return err
	}
	if err := writeWasteSheet(f, EstimateWaste(dataset)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.metrics.RecordExport("xlsx")
	s.logger.Info(ctx, "[EXPORT_XLSX] Projection workbook written", logging.Fields{
		"series":  len(timelines),
		"horizon": horizon,
	})
	return nil
}

// writeWideSheet lays timelines out as a year x series table
func writeWideSheet(f *excelize.File, sheet string, timelines []models.SeriesTimeline, chartType excelize.ChartType, title, yAxis string) error {
	header := []interface{}{YearAxisTitle}
	for _, t := range timelines {
		header = append(header, t.Series)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	yearSet := make(map[int]bool)
	values := make([]map[int]float64, len(timelines))
	for i, t := range timelines {
		values[i] = make(map[int]float64, len(t.Points))
		for _, p := range t.Points {
			yearSet[p.Year] = true
			values[i][p.Year] = p.Value
		}
	}
	years := make([]int, 0, len(yearSet))
	for year := range yearSet {
		years = append(years, year)
	}
	sort.Ints(years)

	for r, year := range years {
		row := []interface{}{year}
		for i := range timelines {
			if v, ok := values[i][year]; ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", sheet, err)
		}
	}

	if len(years) == 0 || len(timelines) == 0 {
		return nil
	}

	series := make([]excelize.ChartSeries, 0, len(timelines))
	for i := range timelines {
		series = append(series, columnSeries(sheet, i+2, len(years)))
	}
	return addChart(f, sheet, len(timelines)+3, chartType, series, title, yAxis)
}

func writeWasteSheet(f *excelize.File, aggregates []models.WasteAggregate) error {
	header := []interface{}{YearAxisTitle, "Total (TWh)"}
	for _, category := range wasteCategories {
		header = append(header, category.label+" (kg)")
	}
	if err := f.SetSheetRow(SheetWaste, "A1", &header); err != nil {
		return fmt.Errorf("failed to write waste header: %w", err)
	}

	for r, a := range aggregates {
		row := []interface{}{a.Year, a.TotalGenerationTWh}
		for _, category := range wasteCategories {
			row = append(row, category.value(a))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetWaste, cell, &row); err != nil {
			return fmt.Errorf("failed to write waste row: %w", err)
		}
	}

	if len(aggregates) == 0 {
		return nil
	}

	series := make([]excelize.ChartSeries, 0, len(wasteCategories))
	for i := range wasteCategories {
		series = append(series, columnSeries(SheetWaste, i+3, len(aggregates)))
	}
	return addChart(f, SheetWaste, len(wasteCategories)+4, excelize.ColStacked, series, WasteChartTitle, WasteAxisTitle)
}

// columnSeries references column col (1-based) against the year column A
func columnSeries(sheet string, col, rows int) excelize.ChartSeries {
	name, _ := excelize.ColumnNumberToName(col)
	last := rows + 1
	return excelize.ChartSeries{
		Name:       fmt.Sprintf("%s!$%s$1", sheet, name),
		Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, last),
		Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", sheet, name, name, last),
	}
}

func addChart(f *excelize.File, sheet string, anchorCol int, chartType excelize.ChartType, series []excelize.ChartSeries, title, yAxis string) error {
	anchorName, _ := excelize.ColumnNumberToName(anchorCol)
	err := f.AddChart(sheet, anchorName+"2", &excelize.Chart{
		Type:   chartType,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: YearAxisTitle}},
		},
		YAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: yAxis}},
		},
		Dimension: excelize.ChartDimension{Width: 720, Height: 400},
	})
	if err != nil {
		return fmt.Errorf("failed to add %s chart: %w", sheet, err)
	}
	return nil
}
