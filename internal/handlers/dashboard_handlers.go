package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"enerlyze/internal/charts"
	"enerlyze/internal/models"
	"enerlyze/internal/services"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// HealthChecker is any dependency that can report its own health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DashboardHandler serves the dashboard state machine, figures, images and exports
type DashboardHandler struct {
	responder
	dashboard *services.DashboardService
	exports   *services.ExportService
	renderer  *charts.Renderer
	checks    map[string]HealthChecker
}

// NewDashboardHandler creates a new dashboard handler. checks may be nil.
func NewDashboardHandler(
	dashboard *services.DashboardService,
	exports *services.ExportService,
	renderer *charts.Renderer,
	checks map[string]HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	return &DashboardHandler{
		responder: responder{logger: logger, metrics: metricsCollector},
		dashboard: dashboard,
		exports:   exports,
		renderer:  renderer,
		checks:    checks,
	}
}

// DashboardRequest is the client-held state plus the triggering action.
// A nil Horizon selects the configured default.
type DashboardRequest struct {
	Screen  models.Screen          `json:"screen"`
	Horizon *int                   `json:"horizon,omitempty"`
	Action  models.DashboardAction `json:"action"`
}

// SeriesResponse describes the loaded dataset
type SeriesResponse struct {
	Series   []string                   `json:"series"`
	Points   int                        `json:"points"`
	Report   models.NormalizationReport `json:"report"`
	LoadedAt time.Time                  `json:"loaded_at"`
	Horizon  HorizonBounds              `json:"horizon"`
}

// HorizonBounds is the accepted horizon range
type HorizonBounds struct {
	Min     int `json:"min"`
	Default int `json:"default"`
	Max     int `json:"max"`
}

// HealthResponse reports process and dependency health
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Series    int               `json:"series"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// GetDashboard handles GET /api/dashboard?screen=&action=&horizon=
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var horizon *int
	if raw := strings.TrimSpace(query.Get("horizon")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, r, "invalid horizon, expected integer", http.StatusBadRequest)
			return
		}
		horizon = &parsed
	}

	h.render(w, r, DashboardRequest{
		Screen:  models.Screen(query.Get("screen")),
		Horizon: horizon,
		Action:  models.DashboardAction(query.Get("action")),
	})
}

// PostDashboard handles POST /api/dashboard with a DashboardRequest body
func (h *DashboardHandler) PostDashboard(w http.ResponseWriter, r *http.Request) {
	var req DashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}
	h.render(w, r, req)
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, req DashboardRequest) {
	horizons := h.dashboard.Horizons()
	horizon := horizons.Default
	if req.Horizon != nil {
		if err := horizons.Check(*req.Horizon); err != nil {
			h.sendServiceError(w, r, err)
			return
		}
		horizon = *req.Horizon
	}

	state := models.DashboardState{Screen: req.Screen, Horizon: horizon}
	view, err := h.dashboard.Render(r.Context(), state, req.Action)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, view, http.StatusOK)
}

// GetSeries handles GET /api/series
func (h *DashboardHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	dataset := h.dashboard.Dataset()
	horizons := h.dashboard.Horizons()

	h.sendJSON(w, SeriesResponse{
		Series:   dataset.Labels(),
		Points:   dataset.PointCount(),
		Report:   dataset.Report(),
		LoadedAt: dataset.LoadedAt(),
		Horizon:  HorizonBounds{Min: horizons.Min, Default: horizons.Default, Max: horizons.Max},
	}, http.StatusOK)
}

// GetGeneration handles GET /api/generation?horizon=
func (h *DashboardHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}

	figure, err := h.dashboard.GenerationChart(r.Context(), horizon)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, figure, http.StatusOK)
}

// GetProjection handles GET /api/generation/{series}/projection?horizon=
func (h *DashboardHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}

	result, err := h.dashboard.Projection(r.Context(), mux.Vars(r)["series"], horizon)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, result, http.StatusOK)
}

// GetWaste handles GET /api/waste
func (h *DashboardHandler) GetWaste(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.dashboard.WasteChart(), http.StatusOK)
}

// GetWasteAggregates handles GET /api/waste/aggregates
func (h *DashboardHandler) GetWasteAggregates(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.dashboard.WasteAggregates(), http.StatusOK)
}

// GetGenerationPNG handles GET /api/charts/generation.png?horizon=
func (h *DashboardHandler) GetGenerationPNG(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}

	figure, err := h.dashboard.GenerationChart(r.Context(), horizon)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendPNG(w, r, charts.ChartGeneration, figure)
}

// GetWastePNG handles GET /api/charts/waste.png
func (h *DashboardHandler) GetWastePNG(w http.ResponseWriter, r *http.Request) {
	h.sendPNG(w, r, charts.ChartWaste, h.dashboard.WasteChart())
}

// GetChartsHTML handles GET /api/charts/dashboard.html?horizon=
func (h *DashboardHandler) GetChartsHTML(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}

	generation, err := h.dashboard.GenerationChart(r.Context(), horizon)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.RenderHTML(r.Context(), &buf, generation, h.dashboard.WasteChart()); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportCSV handles GET /api/export/projections.csv?horizon=
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exports.WriteCSV(r.Context(), &buf, h.dashboard.Dataset(), horizon); err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendAttachment(w, "text/csv", services.CSVExportFileName, buf.Bytes())
}

// ExportXLSX handles GET /api/export/projections.xlsx?horizon=
func (h *DashboardHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	horizon, ok := h.horizon(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exports.WriteXLSX(r.Context(), &buf, h.dashboard.Dataset(), horizon); err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", services.XLSXExportFileName, buf.Bytes())
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Series:    len(h.dashboard.Dataset().Labels()),
	}
	statusCode := http.StatusOK

	if len(h.checks) > 0 {
		response.Checks = make(map[string]string, len(h.checks))
		for name, checker := range h.checks {
			if err := checker.HealthCheck(ctx); err != nil {
				response.Checks[name] = err.Error()
				response.Status = "degraded"
				statusCode = http.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{
		"status": response.Status,
	})
	h.sendJSON(w, response, statusCode)
}

// horizon parses the horizon query parameter, writing a 400 on failure
func (h *DashboardHandler) horizon(w http.ResponseWriter, r *http.Request) (int, bool) {
	horizon, err := h.dashboard.Horizons().Parse(r.URL.Query().Get("horizon"))
	if err != nil {
		h.sendServiceError(w, r, err)
		return 0, false
	}
	return horizon, true
}

func (h *DashboardHandler) sendPNG(w http.ResponseWriter, r *http.Request, name string, figure *models.ChartFigure) {
	var buf bytes.Buffer
	if err := h.renderer.RenderPNG(r.Context(), &buf, name, figure); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *DashboardHandler) sendAttachment(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/api/dashboard", h.PostDashboard).Methods("POST")
	router.HandleFunc("/api/series", h.GetSeries).Methods("GET")
	router.HandleFunc("/api/generation", h.GetGeneration).Methods("GET")
	router.HandleFunc("/api/generation/{series}/projection", h.GetProjection).Methods("GET")
	router.HandleFunc("/api/waste", h.GetWaste).Methods("GET")
	router.HandleFunc("/api/waste/aggregates", h.GetWasteAggregates).Methods("GET")
	router.HandleFunc("/api/charts/generation.png", h.GetGenerationPNG).Methods("GET")
	router.HandleFunc("/api/charts/waste.png", h.GetWastePNG).Methods("GET")
	router.HandleFunc("/api/charts/dashboard.html", h.GetChartsHTML).Methods("GET")
	router.HandleFunc("/api/export/projections.csv", h.ExportCSV).Methods("GET")
	router.HandleFunc("/api/export/projections.xlsx", h.ExportXLSX).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
