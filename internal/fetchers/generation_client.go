package fetchers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"enerlyze/internal/models"
	"enerlyze/pkg/logging"
	"enerlyze/pkg/metrics"
)

// YearlyGenerationPath is the upstream endpoint for yearly electricity generation
const YearlyGenerationPath = "/v1/electricity-generation/yearly"

// SourceName identifies batches fetched by this client
const SourceName = "ember-api"

// ClientConfig describes how to reach the upstream API
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	EntityCode        string
	StartYear         int
	IsAggregateSeries bool
	Timeout           time.Duration
	RetryCount        int
	RetryWait         time.Duration
}

// GenerationClient fetches yearly generation records for one country
type GenerationClient struct {
	client  *resty.Client
	cfg     ClientConfig
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewGenerationClient creates a client with timeout and retry policy applied.
// Transport errors, 429 and 5xx answers are retried RetryCount times.
func NewGenerationClient(cfg ClientConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *GenerationClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.RetryCount)
	client.SetRetryWaitTime(cfg.RetryWait)
	client.SetHeader("Accept", "application/json")
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil || resp == nil {
			return true
		}
		return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
	})

	return &GenerationClient{
		client:  client,
		cfg:     cfg,
		logger:  logger.WithComponent("generation_client"),
		metrics: metricsCollector,
	}
}

// Name identifies the source in logs and batches
func (c *GenerationClient) Name() string {
	return SourceName
}

// FetchRecords performs one GET against the yearly endpoint.
// A transport failure or non-2xx status yields *models.DataFetchError; a body
// that is not JSON or lacks a "data" array yields *models.DataFormatError.
// Array elements that are not objects are skipped and counted as malformed.
func (c *GenerationClient) FetchRecords(ctx context.Context) (*models.RecordBatch, error) {
	endpoint := c.cfg.BaseURL + YearlyGenerationPath
	timer := c.metrics.NewTimer(c.metrics.UpstreamFetchDuration)

	c.logger.Info(ctx, "[FETCH_START] Requesting yearly generation", logging.Fields{
		"endpoint":    endpoint,
		"entity_code": c.cfg.EntityCode,
		"start_year":  c.cfg.StartYear,
	})

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"entity_code":         c.cfg.EntityCode,
			"is_aggregate_series": strconv.FormatBool(c.cfg.IsAggregateSeries),
			"start_date":          strconv.Itoa(c.cfg.StartYear),
			"api_key":             c.cfg.APIKey,
		}).
		Get(YearlyGenerationPath)
	duration := timer.ObserveDuration()

	if err != nil {
		c.metrics.RecordUpstreamError("transport_error")
		fetchErr := &models.DataFetchError{URL: endpoint, Err: err}
		c.logger.Error(ctx, "[FETCH_ERROR] Upstream request failed", logging.Fields{
			"endpoint":    endpoint,
			"duration_ms": duration.Milliseconds(),
		}, fetchErr)
		return nil, fetchErr
	}

	if !resp.IsSuccess() {
		c.metrics.RecordUpstreamError("status_error")
		fetchErr := &models.DataFetchError{URL: endpoint, StatusCode: resp.StatusCode()}
		c.logger.Error(ctx, "[FETCH_ERROR] Upstream returned non-success status", logging.Fields{
			"endpoint":    endpoint,
			"status_code": resp.StatusCode(),
			"duration_ms": duration.Milliseconds(),
		}, fetchErr)
		return nil, fetchErr
	}

	batch, err := ParseGenerationPayload(resp.Body())
	if err != nil {
		c.metrics.RecordUpstreamError("format_error")
		c.logger.Error(ctx, "[FETCH_ERROR] Upstream payload malformed", logging.Fields{
			"endpoint":   endpoint,
			"body_bytes": len(resp.Body()),
		}, err)
		return nil, err
	}
	batch.FetchedAt = time.Now().UTC()

	c.metrics.UpstreamRecordsTotal.Add(float64(len(batch.Records)))
	c.logger.Info(ctx, "[FETCH_COMPLETE] Yearly generation received", logging.Fields{
		"records":     len(batch.Records),
		"malformed":   batch.Malformed,
		"duration_ms": duration.Milliseconds(),
	})

	return batch, nil
}

// ParseGenerationPayload decodes an upstream response body
func ParseGenerationPayload(body []byte) (*models.RecordBatch, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &models.DataFormatError{Reason: "response is not a JSON object", Err: err}
	}

	data, ok := envelope["data"]
	if !ok {
		return nil, &models.DataFormatError{Reason: `missing "data" key`}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil || elements == nil {
		return nil, &models.DataFormatError{Reason: `"data" is not an array`, Err: err}
	}

	batch := &models.RecordBatch{
		Source:  SourceName,
		Records: make([]models.RawRecord, 0, len(elements)),
	}
	for _, element := range elements {
		trimmed := bytes.TrimSpace(element)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			batch.Malformed++
			continue
		}

		var record models.RawRecord
		if err := json.Unmarshal(trimmed, &record); err != nil {
			batch.Malformed++
			continue
		}
		batch.Records = append(batch.Records, record)
	}

	return batch, nil
}
