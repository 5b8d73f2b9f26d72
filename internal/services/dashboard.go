package services

import (
	"fmt"
	"strconv"
	"strings"

	"enerlyze/internal/models"
)

// HorizonRange bounds the number of years a user may project
type HorizonRange struct {
	Min     int
	Default int
	Max     int
}

// DefaultHorizonRange is [1,10] with 5 preselected
var DefaultHorizonRange = HorizonRange{Min: 1, Default: 5, Max: 10}

// Check returns a ValidationError when h falls outside the range
func (r HorizonRange) Check(h int) error {
	if h < r.Min || h > r.Max {
		return &models.ValidationError{
			Field:   "horizon",
			Value:   strconv.Itoa(h),
			Message: fmt.Sprintf("horizon must be between %d and %d", r.Min, r.Max),
		}
	}
	return nil
}

// Parse reads a horizon from user input; empty input selects the default
func (r HorizonRange) Parse(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.Default, nil
	}

	h, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ValidationError{
			Field:   "horizon",
			Value:   raw,
			Message: "horizon must be an integer",
		}
	}
	if err := r.Check(h); err != nil {
		return 0, err
	}
	return h, nil
}

// RenderDashboard computes the next frame from the current client state and
// the action that triggered it. It holds no state between calls.
//
//	start   -> content screen with both figures
//	back    -> welcome screen, no figures
//	horizon -> figures rebuilt with the new horizon when on the content screen
//	none    -> screen unchanged, no figures
func RenderDashboard(dataset *models.Dataset, state models.DashboardState, action models.DashboardAction, horizons HorizonRange) (*models.DashboardView, error) {
	horizon := state.Horizon
	if horizon == 0 {
		horizon = horizons.Default
	}
	if err := horizons.Check(horizon); err != nil {
		return nil, err
	}

	screen := state.Screen
	if screen == "" {
		screen = models.ScreenWelcome
	}

	render := false
	switch action {
	case models.ActionNone:
	case models.ActionStart:
		screen = models.ScreenContent
		render = true
	case models.ActionBack:
		screen = models.ScreenWelcome
	case models.ActionHorizon:
		render = screen == models.ScreenContent
	default:
		return nil, &models.ValidationError{
			Field:   "action",
			Value:   string(action),
			Message: "unknown dashboard action",
		}
	}

	if screen != models.ScreenWelcome && screen != models.ScreenContent {
		return nil, &models.ValidationError{
			Field:   "screen",
			Value:   string(screen),
			Message: "unknown dashboard screen",
		}
	}

	view := &models.DashboardView{
		Screen:         screen,
		WelcomeVisible: screen == models.ScreenWelcome,
		ContentVisible: screen == models.ScreenContent,
		Horizon:        horizon,
	}

	if !render {
		return view, nil
	}

	generation, err := BuildGenerationChart(dataset, horizon)
	if err != nil {
		return nil, err
	}
	view.Generation = generation
	view.Waste = BuildWasteChart(EstimateWaste(dataset))

	return view, nil
}
