package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

var horizonParameter = map[string]interface{}{
	"name":        "horizon",
	"in":          "query",
	"description": "Years to project past the last observation (default: 5, range 1-10)",
	"required":    false,
	"schema":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 10, "default": 5},
}

var errorResponses = map[string]interface{}{
	"400": map[string]interface{}{"description": "Invalid parameter", "content": jsonContent(ref("ErrorResponse"))},
	"404": map[string]interface{}{"description": "Unknown series or no data", "content": jsonContent(ref("ErrorResponse"))},
	"422": map[string]interface{}{"description": "Series has no usable points", "content": jsonContent(ref("ErrorResponse"))},
}

func ref(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func binaryContent(mediaType string) map[string]interface{} {
	return map[string]interface{}{
		mediaType: map[string]interface{}{
			"schema": map[string]string{"type": "string", "format": "binary"},
		},
	}
}

// operation builds a GET operation with the shared error responses
func operation(summary, description string, parameters []interface{}, ok map[string]interface{}) map[string]interface{} {
	responses := map[string]interface{}{"200": ok}
	for code, response := range errorResponses {
		responses[code] = response
	}
	op := map[string]interface{}{
		"summary":     summary,
		"description": description,
		"responses":   responses,
	}
	if len(parameters) > 0 {
		op["parameters"] = parameters
	}
	return op
}

func openAPIDocument() map[string]interface{} {
	horizonOnly := []interface{}{horizonParameter}

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Enerlyze API",
			"description": "Brazilian electricity generation trends, linear projections and waste estimates",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Enerlyze Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/dashboard": map[string]interface{}{
				"get": operation("Advance the dashboard", "Apply an action to the client-held screen state and return the next frame",
					[]interface{}{
						map[string]interface{}{"name": "screen", "in": "query", "schema": map[string]interface{}{"type": "string", "enum": []string{"welcome", "content"}}},
						map[string]interface{}{"name": "action", "in": "query", "schema": map[string]interface{}{"type": "string", "enum": []string{"start", "back", "horizon"}}},
						horizonParameter,
					},
					map[string]interface{}{"description": "Dashboard frame", "content": jsonContent(ref("DashboardView"))}),
				"post": map[string]interface{}{
					"summary":     "Advance the dashboard",
					"requestBody": map[string]interface{}{"content": jsonContent(ref("DashboardRequest"))},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Dashboard frame", "content": jsonContent(ref("DashboardView"))},
						"400": errorResponses["400"],
					},
				},
			},
			"/api/series": map[string]interface{}{
				"get": operation("List series", "Series labels, normalization report and horizon bounds", nil,
					map[string]interface{}{"description": "Dataset summary", "content": jsonContent(map[string]string{"type": "object"})}),
			},
			"/api/generation": map[string]interface{}{
				"get": operation("Generation figure", "Historical and dashed projected series for every energy source", horizonOnly,
					map[string]interface{}{"description": "Chart figure", "content": jsonContent(ref("ChartFigure"))}),
			},
			"/api/generation/{series}/projection": map[string]interface{}{
				"get": operation("Project one series", "Ordinary least squares trend line extrapolated over the horizon",
					[]interface{}{
						map[string]interface{}{"name": "series", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
						horizonParameter,
					},
					map[string]interface{}{"description": "Projection", "content": jsonContent(ref("ProjectionResult"))}),
			},
			"/api/waste": map[string]interface{}{
				"get": operation("Waste figure", "Four stacked waste categories per year", nil,
					map[string]interface{}{"description": "Chart figure", "content": jsonContent(ref("ChartFigure"))}),
			},
			"/api/waste/aggregates": map[string]interface{}{
				"get": operation("Waste aggregates", "Yearly total generation times the fixed waste multipliers", nil,
					map[string]interface{}{"description": "Aggregates", "content": jsonContent(map[string]interface{}{"type": "array", "items": ref("WasteAggregate")})}),
			},
			"/api/charts/generation.png": map[string]interface{}{
				"get": operation("Generation chart image", "PNG rendering of the generation figure", horizonOnly,
					map[string]interface{}{"description": "PNG image", "content": binaryContent("image/png")}),
			},
			"/api/charts/waste.png": map[string]interface{}{
				"get": operation("Waste chart image", "PNG rendering of the waste figure", nil,
					map[string]interface{}{"description": "PNG image", "content": binaryContent("image/png")}),
			},
			"/api/charts/dashboard.html": map[string]interface{}{
				"get": operation("Interactive charts", "Both figures as an interactive HTML page", horizonOnly,
					map[string]interface{}{"description": "HTML page", "content": map[string]interface{}{"text/html": map[string]interface{}{}}}),
			},
			"/api/export/projections.csv": map[string]interface{}{
				"get": operation("Export CSV", "series, year, generation_twh, kind rows", horizonOnly,
					map[string]interface{}{"description": "CSV attachment", "content": binaryContent("text/csv")}),
			},
			"/api/export/projections.xlsx": map[string]interface{}{
				"get": operation("Export workbook", "Historical, Projection and Waste sheets with native charts", horizonOnly,
					map[string]interface{}{"description": "XLSX attachment", "content": binaryContent("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")}),
			},
			"/api/records": map[string]interface{}{
				"get": operation("Stored records", "Paginated generation records persisted by the ingester (database deployments only)",
					[]interface{}{
						map[string]interface{}{"name": "series", "in": "query", "schema": map[string]string{"type": "string"}},
						map[string]interface{}{"name": "start_year", "in": "query", "schema": map[string]string{"type": "integer"}},
						map[string]interface{}{"name": "end_year", "in": "query", "schema": map[string]string{"type": "integer"}},
						map[string]interface{}{"name": "page", "in": "query", "schema": map[string]interface{}{"type": "integer", "default": 1}},
						map[string]interface{}{"name": "limit", "in": "query", "schema": map[string]interface{}{"type": "integer", "default": 100, "maximum": 1000}},
					},
					map[string]interface{}{"description": "Paginated records", "content": jsonContent(map[string]string{"type": "object"})}),
			},
			"/api/ingestion/latest": map[string]interface{}{
				"get": operation("Latest ingestion run", "Most recent ingester execution (database deployments only)", nil,
					map[string]interface{}{"description": "Ingestion run", "content": jsonContent(map[string]string{"type": "object"})}),
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its dependencies are running",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "API is healthy"},
						"503": map[string]interface{}{"description": "A dependency is unavailable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
				"DashboardRequest": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"screen":  map[string]string{"type": "string"},
						"horizon": map[string]string{"type": "integer"},
						"action":  map[string]string{"type": "string"},
					},
				},
				"DashboardView": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"screen":          map[string]string{"type": "string"},
						"welcome_visible": map[string]string{"type": "boolean"},
						"content_visible": map[string]string{"type": "boolean"},
						"horizon":         map[string]string{"type": "integer"},
						"generation":      ref("ChartFigure"),
						"waste":           ref("ChartFigure"),
					},
				},
				"ChartFigure": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"title":        map[string]string{"type": "string"},
						"x_axis_title": map[string]string{"type": "string"},
						"y_axis_title": map[string]string{"type": "string"},
						"bar_mode":     map[string]string{"type": "string"},
						"series": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"label":       map[string]string{"type": "string"},
									"series":      map[string]string{"type": "string"},
									"role":        map[string]string{"type": "string"},
									"kind":        map[string]string{"type": "string"},
									"style":       map[string]string{"type": "string"},
									"markers":     map[string]string{"type": "boolean"},
									"width":       map[string]string{"type": "number"},
									"stack_group": map[string]string{"type": "string"},
									"color":       map[string]string{"type": "string"},
									"points": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"x": map[string]string{"type": "integer"},
												"y": map[string]string{"type": "number"},
											},
										},
									},
								},
							},
						},
					},
				},
				"ProjectionResult": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"series":    map[string]string{"type": "string"},
						"horizon":   map[string]string{"type": "integer"},
						"slope":     map[string]string{"type": "number"},
						"intercept": map[string]string{"type": "number"},
						"points":    map[string]string{"type": "array"},
					},
				},
				"WasteAggregate": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"year":                 map[string]string{"type": "integer"},
						"total_generation_twh": map[string]string{"type": "number"},
						"solar_kg":             map[string]string{"type": "number"},
						"wind_kg":              map[string]string{"type": "number"},
						"hydro_kg":             map[string]string{"type": "number"},
						"biomass_kg":           map[string]string{"type": "number"},
					},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Enerlyze API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument())
}

// RegisterDocsRoutes registers the OpenAPI document and the Swagger UI page
func RegisterDocsRoutes(router *mux.Router) {
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc(openAPIPath, OpenAPISpec).Methods("GET")
}
