package handlers

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// NewRouter wires every handler, the docs and /metrics behind the request id
// and metrics middleware. records is nil when no database is configured.
func NewRouter(dashboard *DashboardHandler, records *RecordsHandler, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	router.Use(MetricsMiddleware(logger, metricsCollector))

	dashboard.RegisterRoutes(router)
	if records != nil {
		records.RegisterRoutes(router)
	}
	RegisterDocsRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	return router
}
