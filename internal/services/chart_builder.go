package services

import (
	"enerlyze/internal/models"
)

// Figure titles and layout constants shared by every rendering surface
const (
	GenerationChartTitle = "Electricity Generation by Source in Brazil"
	WasteChartTitle      = "Waste Generation by Energy Type"
	YearAxisTitle        = "Year"
	GenerationAxisTitle  = "Generation (TWh)"
	WasteAxisTitle       = "Waste (kg)"

	WasteStackGroup = "waste"
	BarModeStack    = "stack"

	historicalWidth = 2
	projectedWidth  = 2
)

// seriesPalette colours generation series by their position in the sorted label list
var seriesPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

type wasteCategory struct {
	label string
	color string
	value func(models.WasteAggregate) float64
}

var wasteCategories = []wasteCategory{
	{"Solar", "#ffd700", func(a models.WasteAggregate) float64 { return a.SolarKg }},
	{"Wind", "#008000", func(a models.WasteAggregate) float64 { return a.WindKg }},
	{"Hydro", "#0000ff", func(a models.WasteAggregate) float64 { return a.HydroKg }},
	{"Biomass", "#ffa500", func(a models.WasteAggregate) float64 { return a.BiomassKg }},
}

// ProjectedLabel names the dashed continuation of a series
func ProjectedLabel(series string) string {
	return series + " (projection)"
}

// BuildGenerationChart emits, for every series in label order, a solid
// historical line and a dashed projection that starts at the last observed
// point so both segments join.
func BuildGenerationChart(dataset *models.Dataset, horizon int) (*models.ChartFigure, error) {
	figure := &models.ChartFigure{
		Title:      GenerationChartTitle,
		XAxisTitle: YearAxisTitle,
		YAxisTitle: GenerationAxisTitle,
	}

	for i, timeline := range dataset.Timelines() {
		projection, err := ProjectTimeline(timeline, horizon)
		if err != nil {
			return nil, err
		}

		color := seriesPalette[i%len(seriesPalette)]
		last, _ := timeline.Last()

		historical := models.ChartSeriesDescriptor{
			Label:   timeline.Series,
			Series:  timeline.Series,
			Role:    models.RoleHistorical,
			Kind:    models.ChartKindLine,
			Style:   models.LineStyleSolid,
			Markers: true,
			Width:   historicalWidth,
			Color:   color,
			Points:  make([]models.ChartPoint, 0, timeline.Len()),
		}
		for _, p := range timeline.Points {
			historical.Points = append(historical.Points, models.ChartPoint{X: p.Year, Y: p.Value})
		}

		projected := models.ChartSeriesDescriptor{
			Label:  ProjectedLabel(timeline.Series),
			Series: timeline.Series,
			Role:   models.RoleProjected,
			Kind:   models.ChartKindLine,
			Style:  models.LineStyleDashed,
			Width:  projectedWidth,
			Color:  color,
			Points: make([]models.ChartPoint, 0, len(projection.Points)+1),
		}
		projected.Points = append(projected.Points, models.ChartPoint{X: last.Year, Y: last.Value})
		for _, p := range projection.Points {
			projected.Points = append(projected.Points, models.ChartPoint{X: p.Year, Y: p.Value})
		}

		figure.Series = append(figure.Series, historical, projected)
	}

	return figure, nil
}

// BuildWasteChart emits exactly four stacked bar series, one per waste category
func BuildWasteChart(aggregates []models.WasteAggregate) *models.ChartFigure {
	figure := &models.ChartFigure{
		Title:      WasteChartTitle,
		XAxisTitle: YearAxisTitle,
		YAxisTitle: WasteAxisTitle,
		BarMode:    BarModeStack,
		Series:     make([]models.ChartSeriesDescriptor, 0, len(wasteCategories)),
	}

	for _, category := range wasteCategories {
		descriptor := models.ChartSeriesDescriptor{
			Label:      category.label,
			Series:     category.label,
			Role:       models.RoleWaste,
			Kind:       models.ChartKindBar,
			StackGroup: WasteStackGroup,
			Color:      category.color,
			Points:     make([]models.ChartPoint, 0, len(aggregates)),
		}
		for _, a := range aggregates {
			descriptor.Points = append(descriptor.Points, models.ChartPoint{X: a.Year, Y: category.value(a)})
		}
		figure.Series = append(figure.Series, descriptor)
	}

	return figure
}
