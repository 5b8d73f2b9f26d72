package charts

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
)

const (
	chartHTML = "html"
	pageTitle = "Enerlyze"

	htmlWidth  = "1100px"
	htmlHeight = "480px"

	// missingValue leaves a gap in an echarts series
	missingValue = "-"
)

// RenderHTML writes both figures as one interactive echarts page
func (r *Renderer) RenderHTML(ctx context.Context, w io.Writer, generation, waste *models.ChartFigure) error {
	timer := r.metrics.NewTimer(r.metrics.ChartRenderDuration.WithLabelValues(chartHTML))

	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(lineFigure(generation), barFigure(waste))

	if err := page.Render(w); err != nil {
		r.logger.Error(ctx, "[CHART_ERROR] Failed to render chart page", logging.Fields{
			"chart": chartHTML,
		}, err)
		return fmt.Errorf("failed to render chart page: %w", err)
	}

	duration := timer.ObserveDuration()
	r.logger.Debug(ctx, "[CHART_RENDER] Chart page rendered", logging.Fields{
		"chart":       chartHTML,
		"duration_ms": duration.Milliseconds(),
	})
	return nil
}

func globalOptions(figure *models.ChartFigure) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: pageTitle,
			Theme:     types.ThemeWesteros,
			Width:     htmlWidth,
			Height:    htmlHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: figure.Title,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: figure.XAxisTitle,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: figure.YAxisTitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
		}),
	}
}

func lineFigure(figure *models.ChartFigure) *charts.Line {
	if figure == nil {
		figure = &models.ChartFigure{}
	}
	years := figureYears(figure.Series)

	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(figure)...)
	line.SetXAxis(yearLabels(years))

	for _, desc := range figure.Series {
		values := valuesByYear(desc.Points)
		data := make([]opts.LineData, len(years))
		for i, year := range years {
			if v, ok := values[year]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: missingValue}
			}
		}

		lineType := "solid"
		if desc.Style == models.LineStyleDashed {
			lineType = "dashed"
		}
		line.AddSeries(desc.Label, data,
			charts.WithLineStyleOpts(opts.LineStyle{
				Color: desc.Color,
				Type:  lineType,
				Width: 2,
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color: desc.Color,
			}),
		)
	}

	return line
}

func barFigure(figure *models.ChartFigure) *charts.Bar {
	if figure == nil {
		figure = &models.ChartFigure{}
	}
	years := figureYears(figure.Series)

	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(figure)...)
	bar.SetXAxis(yearLabels(years))

	for _, desc := range figure.Series {
		values := valuesByYear(desc.Points)
		data := make([]opts.BarData, len(years))
		for i, year := range years {
			data[i] = opts.BarData{Value: values[year]}
		}
		bar.AddSeries(desc.Label, data,
			charts.WithBarChartOpts(opts.BarChart{
				Stack: desc.StackGroup,
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color: desc.Color,
			}),
		)
	}

	return bar
}

func yearLabels(years []int) []string {
	labels := make([]string, len(years))
	for i, year := range years {
		labels[i] = strconv.Itoa(year)
	}
	return labels
}
