package services

import (
	"context"
	"errors"
	"time"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// DashboardService serves the pipeline over one shared, read-only dataset.
// Every call derives fresh values; nothing computed here is retained.
type DashboardService struct {
	dataset  *models.Dataset
	horizons HorizonRange
	logger   *logging.ContextLogger
	metrics  *metrics.Collector
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(dataset *models.Dataset, horizons HorizonRange, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	return &DashboardService{
		dataset:  dataset,
		horizons: horizons,
		logger:   logger.WithComponent("dashboard"),
		metrics:  metricsCollector,
	}
}

// Dataset returns the shared dataset
func (s *DashboardService) Dataset() *models.Dataset {
	return s.dataset
}

// Horizons returns the accepted horizon range
func (s *DashboardService) Horizons() HorizonRange {
	return s.horizons
}

// Render advances the dashboard state machine by one action
func (s *DashboardService) Render(ctx context.Context, state models.DashboardState, action models.DashboardAction) (*models.DashboardView, error) {
	start := time.Now()
	view, err := RenderDashboard(s.dataset, state, action, s.horizons)
	duration := time.Since(start)

	if err != nil {
		s.recordOutcome(err)
		s.logger.Warn(ctx, "[DASHBOARD_REJECTED] Render failed", logging.Fields{
			"screen":  state.Screen,
			"action":  action,
			"horizon": state.Horizon,
			"error":   err.Error(),
		})
		return nil, err
	}

	if view.Generation != nil {
		s.metrics.ProjectionDuration.Observe(duration.Seconds())
		s.metrics.RecordProjection("ok")
	}

	s.logger.Debug(ctx, "[DASHBOARD_RENDER] Frame computed", logging.Fields{
		"screen":      view.Screen,
		"action":      action,
		"horizon":     view.Horizon,
		"with_charts": view.Generation != nil,
		"duration_ms": duration.Milliseconds(),
	})

	return view, nil
}

// GenerationChart builds historical and projected series for every label
func (s *DashboardService) GenerationChart(ctx context.Context, horizon int) (*models.ChartFigure, error) {
	if err := s.horizons.Check(horizon); err != nil {
		s.metrics.RecordProjection("invalid_input")
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.ProjectionDuration)
	figure, err := BuildGenerationChart(s.dataset, horizon)
	timer.ObserveDuration()

	if err != nil {
		s.recordOutcome(err)
		s.logger.Error(ctx, "[PROJECTION_ERROR] Generation chart failed", logging.Fields{
			"horizon": horizon,
		}, err)
		return nil, err
	}

	s.metrics.RecordProjection("ok")
	return figure, nil
}

// Projection fits and extrapolates a single series
func (s *DashboardService) Projection(ctx context.Context, series string, horizon int) (*models.ProjectionResult, error) {
	if err := s.horizons.Check(horizon); err != nil {
		s.metrics.RecordProjection("invalid_input")
		return nil, err
	}

	timeline, ok := s.dataset.Timeline(series)
	if !ok {
		return nil, &models.NotFoundError{Resource: "series", ID: series}
	}

	result, err := ProjectTimeline(timeline, horizon)
	if err != nil {
		s.recordOutcome(err)
		return nil, err
	}

	s.metrics.RecordProjection("ok")
	s.logger.Debug(ctx, "[PROJECTION] Series projected", logging.Fields{
		"series":  series,
		"horizon": horizon,
		"slope":   result.Slope,
	})
	return result, nil
}

// WasteAggregates derives the yearly waste figures
func (s *DashboardService) WasteAggregates() []models.WasteAggregate {
	return EstimateWaste(s.dataset)
}

// WasteChart builds the four stacked waste series
func (s *DashboardService) WasteChart() *models.ChartFigure {
	return BuildWasteChart(s.WasteAggregates())
}

func (s *DashboardService) recordOutcome(err error) {
	var insufficient *models.InsufficientDataError
	var invalid *models.ValidationError
	switch {
	case errors.As(err, &insufficient):
		s.metrics.RecordProjection("insufficient_data")
	case errors.As(err, &invalid):
		s.metrics.RecordProjection("invalid_input")
	default:
		s.metrics.RecordProjection("error")
	}
}
