package models

// ChartKind is the visual primitive used for a series
type ChartKind string

const (
	ChartKindLine ChartKind = "line"
	ChartKindBar  ChartKind = "bar"
)

// LineStyle distinguishes observed from extrapolated segments
type LineStyle string

const (
	LineStyleSolid  LineStyle = "solid"
	LineStyleDashed LineStyle = "dashed"
)

// SeriesRole tells the rendering surface what a descriptor stands for
type SeriesRole string

const (
	RoleHistorical SeriesRole = "historical"
	RoleProjected  SeriesRole = "projected"
	RoleWaste      SeriesRole = "waste"
)

// ChartPoint is one (x, y) pair; x is always a year here
type ChartPoint struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// ChartSeriesDescriptor is a renderable series, rebuilt for every render
type ChartSeriesDescriptor struct {
	Label      string       `json:"label"`
	Series     string       `json:"series"`
	Role       SeriesRole   `json:"role"`
	Kind       ChartKind    `json:"kind"`
	Style      LineStyle    `json:"style,omitempty"`
	Markers    bool         `json:"markers"`
	Width      float64      `json:"width"`
	StackGroup string       `json:"stack_group,omitempty"`
	Color      string       `json:"color,omitempty"`
	Points     []ChartPoint `json:"points"`
}

// ChartFigure groups descriptors with the figure-level layout hints
type ChartFigure struct {
	Title      string                  `json:"title"`
	XAxisTitle string                  `json:"x_axis_title"`
	YAxisTitle string                  `json:"y_axis_title"`
	BarMode    string                  `json:"bar_mode,omitempty"`
	Series     []ChartSeriesDescriptor `json:"series"`
}

// IsEmpty reports whether the figure has nothing to draw
func (f *ChartFigure) IsEmpty() bool {
	return f == nil || len(f.Series) == 0
}

// Screen identifies which dashboard screen is visible
type Screen string

const (
	ScreenWelcome Screen = "welcome"
	ScreenContent Screen = "content"
)

// DashboardAction is the user interaction that triggered a render
type DashboardAction string

const (
	ActionNone    DashboardAction = ""
	ActionStart   DashboardAction = "start"
	ActionBack    DashboardAction = "back"
	ActionHorizon DashboardAction = "horizon"
)

// DashboardState is the client-held state sent along with an action
type DashboardState struct {
	Screen  Screen `json:"screen"`
	Horizon int    `json:"horizon"`
}

// DashboardView is everything the rendering surface needs for one frame.
// Figures are nil when the content screen is hidden.
type DashboardView struct {
	Screen         Screen       `json:"screen"`
	WelcomeVisible bool         `json:"welcome_visible"`
	ContentVisible bool         `json:"content_visible"`
	Horizon        int          `json:"horizon"`
	Generation     *ChartFigure `json:"generation,omitempty"`
	Waste          *ChartFigure `json:"waste,omitempty"`
}
