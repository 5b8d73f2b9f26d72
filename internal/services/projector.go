package services

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"enerlyze/internal/models"
)

// ProjectTimeline fits value = slope*year + intercept by ordinary least squares
// and evaluates the line for the horizon years after the last observation.
//
// A single point yields a flat line through it. Predictions are not clamped,
// so a declining series can project below zero.
func ProjectTimeline(timeline models.SeriesTimeline, horizon int) (*models.ProjectionResult, error) {
	if horizon <= 0 {
		return nil, &models.ValidationError{
			Field:   "horizon",
			Value:   fmt.Sprintf("%d", horizon),
			Message: "horizon must be a positive number of years",
		}
	}

	last, ok := timeline.Last()
	if !ok {
		return nil, &models.InsufficientDataError{Series: timeline.Series, Points: 0}
	}

	slope, intercept := fitLine(timeline)

	points := make([]models.Point, horizon)
	for i := range points {
		year := last.Year + i + 1
		points[i] = models.Point{
			Year:  year,
			Value: intercept + slope*float64(year),
		}
	}

	return &models.ProjectionResult{
		Series:    timeline.Series,
		Horizon:   horizon,
		Slope:     slope,
		Intercept: intercept,
		Points:    points,
	}, nil
}

// fitLine returns slope and intercept; timeline must not be empty
func fitLine(timeline models.SeriesTimeline) (slope, intercept float64) {
	if timeline.Len() == 1 {
		return 0, timeline.Points[0].Value
	}

	// stat.LinearRegression returns y = alpha + beta*x
	alpha, beta := stat.LinearRegression(timeline.Years(), timeline.Values(), nil, false)
	return beta, alpha
}
