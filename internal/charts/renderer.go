package charts

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// Chart names used as metric labels and log fields
const (
	ChartGeneration = "generation"
	ChartWaste      = "waste"
)

const (
	defaultWidth  = 1200
	defaultHeight = 600
	maxYearTicks  = 12
	fillAlpha     = 210
)

// Renderer draws chart figures as PNG images or as an interactive HTML page
type Renderer struct {
	width   int
	height  int
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewRenderer creates a renderer with the default canvas size
func NewRenderer(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Renderer {
	return &Renderer{
		width:   defaultWidth,
		height:  defaultHeight,
		logger:  logger.WithComponent("charts"),
		metrics: metricsCollector,
	}
}

// RenderPNG draws a figure. Line figures keep one stroke per descriptor with
// dashed projections; stacked bar figures are drawn as cumulative filled
// bands so each category's share stays visible in absolute units.
func (r *Renderer) RenderPNG(ctx context.Context, w io.Writer, name string, figure *models.ChartFigure) error {
	if !hasPoints(figure) {
		return &models.NotFoundError{Resource: "chart data", ID: name}
	}

	timer := r.metrics.NewTimer(r.metrics.ChartRenderDuration.WithLabelValues(name))

	var graph chart.Chart
	if figure.BarMode != "" {
		graph = r.stackedChart(figure)
	} else {
		graph = r.lineChart(figure)
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		r.logger.Error(ctx, "[CHART_ERROR] Failed to render chart", logging.Fields{
			"chart": name,
		}, err)
		return fmt.Errorf("failed to render %s chart: %w", name, err)
	}

	duration := timer.ObserveDuration()
	r.logger.Debug(ctx, "[CHART_RENDER] Chart rendered", logging.Fields{
		"chart":       name,
		"series":      len(figure.Series),
		"duration_ms": duration.Milliseconds(),
	})
	return nil
}

func (r *Renderer) lineChart(figure *models.ChartFigure) chart.Chart {
	series := make([]chart.Series, 0, len(figure.Series))
	for _, desc := range figure.Series {
		if len(desc.Points) == 0 {
			continue
		}
		xs, ys := splitPoints(desc.Points)
		style := chart.Style{
			StrokeColor: hexColor(desc.Color),
			StrokeWidth: desc.Width,
		}
		if desc.Style == models.LineStyleDashed {
			style.StrokeDashArray = []float64{5, 5}
		}
		if desc.Markers {
			style.DotWidth = 3
			style.DotColor = hexColor(desc.Color)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    desc.Label,
			XValues: xs,
			YValues: ys,
			Style:   style,
		})
	}

	xRange, yRange := figureRanges(figure.Series)
	return r.baseChart(figure, series, xRange, yRange)
}

func (r *Renderer) stackedChart(figure *models.ChartFigure) chart.Chart {
	years := figureYears(figure.Series)
	totals := make([]float64, len(years))
	bands := make([]chart.Series, 0, len(figure.Series))

	for _, desc := range figure.Series {
		values := valuesByYear(desc.Points)
		xs := make([]float64, len(years))
		ys := make([]float64, len(years))
		for i, year := range years {
			totals[i] += values[year]
			xs[i] = float64(year)
			ys[i] = totals[i]
		}
		color := hexColor(desc.Color)
		bands = append(bands, chart.ContinuousSeries{
			Name:    desc.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 1,
				FillColor:   color.WithAlpha(fillAlpha),
			},
		})
	}

	// Tallest band first so the smaller ones paint over it.
	for i, j := 0, len(bands)-1; i < j; i, j = i+1, j-1 {
		bands[i], bands[j] = bands[j], bands[i]
	}

	stacked := make([]models.ChartPoint, 0, len(years))
	for i, year := range years {
		stacked = append(stacked, models.ChartPoint{X: year, Y: totals[i]})
	}
	xRange, yRange := figureRanges([]models.ChartSeriesDescriptor{{Points: stacked}})
	return r.baseChart(figure, bands, xRange, yRange)
}

func (r *Renderer) baseChart(figure *models.ChartFigure, series []chart.Series, xRange, yRange *chart.ContinuousRange) chart.Chart {
	return chart.Chart{
		Title: figure.Title,
		TitleStyle: chart.Style{
			FontSize: 14,
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 25, Right: 25, Bottom: 10},
		},
		Width:  r.width,
		Height: r.height,
		XAxis: chart.XAxis{
			Name:  figure.XAxisTitle,
			Range: xRange,
			Ticks: yearTicks(xRange),
		},
		YAxis: chart.YAxis{
			Name:  figure.YAxisTitle,
			Range: yRange,
		},
		Series: series,
	}
}

func hasPoints(figure *models.ChartFigure) bool {
	if figure.IsEmpty() {
		return false
	}
	for _, desc := range figure.Series {
		if len(desc.Points) > 0 {
			return true
		}
	}
	return false
}

func splitPoints(points []models.ChartPoint) ([]float64, []float64) {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.X)
		ys[i] = p.Y
	}
	return xs, ys
}

func valuesByYear(points []models.ChartPoint) map[int]float64 {
	values := make(map[int]float64, len(points))
	for _, p := range points {
		values[p.X] = p.Y
	}
	return values
}

// figureYears is the sorted union of every descriptor's x values
func figureYears(series []models.ChartSeriesDescriptor) []int {
	seen := make(map[int]bool)
	for _, desc := range series {
		for _, p := range desc.Points {
			seen[p.X] = true
		}
	}
	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// figureRanges pins both axes explicitly; a single year or a flat series
// would otherwise give go-chart a zero-width range.
func figureRanges(series []models.ChartSeriesDescriptor) (*chart.ContinuousRange, *chart.ContinuousRange) {
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := 0.0, 0.0
	for _, desc := range series {
		for _, p := range desc.Points {
			minX = math.Min(minX, float64(p.X))
			maxX = math.Max(maxX, float64(p.X))
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
	}
	if minX == maxX {
		minX--
		maxX++
	}
	if minY == maxY {
		maxY = minY + 1
	}
	return &chart.ContinuousRange{Min: minX, Max: maxX}, &chart.ContinuousRange{Min: minY, Max: maxY * 1.05}
}

func yearTicks(xRange *chart.ContinuousRange) []chart.Tick {
	first := int(math.Ceil(xRange.Min))
	last := int(math.Floor(xRange.Max))
	step := (last-first)/maxYearTicks + 1

	ticks := make([]chart.Tick, 0, maxYearTicks+1)
	for year := first; year <= last; year += step {
		ticks = append(ticks, chart.Tick{Value: float64(year), Label: strconv.Itoa(year)})
	}
	return ticks
}

func hexColor(hex string) drawing.Color {
	if hex == "" {
		return drawing.ColorBlack
	}
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
