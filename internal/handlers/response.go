package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// responder carries the JSON helpers shared by every handler
type responder struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// sendJSON sends a JSON response
func (h *responder) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *responder) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIError(errorType(statusCode), routePath(r))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// sendServiceError maps a typed service error to its HTTP status
func (h *responder) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusForError(err)
	if statusCode == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}, err)
		h.sendError(w, r, "internal error", statusCode)
		return
	}
	h.sendError(w, r, err.Error(), statusCode)
}

func statusForError(err error) int {
	var validation *models.ValidationError
	var notFound *models.NotFoundError
	var insufficient *models.InsufficientDataError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorType(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "insufficient_data"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		if statusCode >= 500 {
			return "internal_error"
		}
		return "http_" + strconv.Itoa(statusCode)
	}
}
