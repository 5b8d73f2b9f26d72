package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"enerlyze/internal/models"
	"enerlyze/internal/repository"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// RecordsHandler exposes persisted generation records and ingestion runs
type RecordsHandler struct {
	responder
	repo       repository.GenerationRepository
	entityCode string
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(
	repo repository.GenerationRepository,
	entityCode string,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *RecordsHandler {
	return &RecordsHandler{
		responder:  responder{logger: logger, metrics: metricsCollector},
		repo:       repo,
		entityCode: entityCode,
	}
}

// GetRecords handles GET /api/records
func (h *RecordsHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	series := r.URL.Query().Get("series")
	startYearStr := r.URL.Query().Get("start_year")
	endYearStr := r.URL.Query().Get("end_year")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	// Build filter
	filter := repository.RecordFilter{
		EntityCode: h.entityCode,
		Limit:      limit,
		Offset:     offset,
	}

	if series != "" {
		filter.Series = &series
	}

	if startYearStr != "" {
		year, ok := parseFilterYear(startYearStr)
		if !ok {
			h.sendError(w, r, "invalid start_year, expected integer year", http.StatusBadRequest)
			return
		}
		filter.StartYear = &year
	}

	if endYearStr != "" {
		year, ok := parseFilterYear(endYearStr)
		if !ok {
			h.sendError(w, r, "invalid end_year, expected integer year", http.StatusBadRequest)
			return
		}
		filter.EndYear = &year
	}

	if filter.StartYear != nil && filter.EndYear != nil && *filter.StartYear > *filter.EndYear {
		h.sendError(w, r, "start_year must not be after end_year", http.StatusBadRequest)
		return
	}

	records, total, err := h.repo.ListGenerationRecords(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RECORDS_ERROR] Failed to get generation records", logging.Fields{
			"filter": filter,
		}, err)
		h.sendError(w, r, "failed to retrieve generation records", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.sendJSON(w, response, http.StatusOK)
}

// GetLatestIngestion handles GET /api/ingestion/latest
func (h *RecordsHandler) GetLatestIngestion(w http.ResponseWriter, r *http.Request) {
	run, err := h.repo.LatestIngestionRun(r.Context(), h.entityCode)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, run, http.StatusOK)
}

func parseFilterYear(raw string) (int, bool) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < models.MinYear || year > models.MaxYear {
		return 0, false
	}
	return year, true
}

// RegisterRoutes registers the persistence-backed routes
func (h *RecordsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/ingestion/latest", h.GetLatestIngestion).Methods("GET")
}
