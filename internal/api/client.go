// Package api implements the NeonBlue analytics API client.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ishannjr/neonblue/internal/model"
)

const defaultBaseURL = "http://localhost:8000"

// ResultsFormat selects how much of the results payload the server returns.
type ResultsFormat string

// Supported results formats.
const (
	FormatFull        ResultsFormat = "full"
	FormatSummary     ResultsFormat = "summary"
	FormatMetricsOnly ResultsFormat = "metrics_only"
)

// Granularity is the bucket size for time-series data.
type Granularity string

// Supported time-series granularities.
const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// Client issues authenticated requests against the NeonBlue analytics API.
// The bearer token is held by the client itself rather than process-wide
// state, so separate sessions can coexist in one process.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the stored bearer token. Every subsequent request uses
// the new token; there is no expiry or refresh.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the stored bearer token, empty when absent.
func (c *Client) Token() string {
	return c.token
}

// APIError is a failed API response. Detail carries the server-supplied
// message when one was parsable, otherwise a synthesized "HTTP <status>".
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

type errorBody struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// CheckHealth probes the API liveness endpoint. No authentication is
// required; any error means the API should be treated as offline.
func (c *Client) CheckHealth(ctx context.Context) (model.Health, error) {
	var health model.Health
	if err := c.get(ctx, "/health", nil, &health); err != nil {
		return model.Health{}, err
	}
	return health, nil
}

// ListOptions filters and paginates experiment listings. Nil fields are
// omitted from the request entirely.
type ListOptions struct {
	Status model.ExperimentStatus
	Limit  *int
	Offset *int
}

// ListExperiments fetches one page of experiments.
func (c *Client) ListExperiments(ctx context.Context, opts ListOptions) (model.ExperimentList, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return model.ExperimentList{}, fmt.Errorf("invalid status %q", opts.Status)
	}
	if opts.Limit != nil && *opts.Limit < 0 {
		return model.ExperimentList{}, fmt.Errorf("limit must be >= 0")
	}
	if opts.Offset != nil && *opts.Offset < 0 {
		return model.ExperimentList{}, fmt.Errorf("offset must be >= 0")
	}

	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", string(opts.Status))
	}
	if opts.Limit != nil {
		query.Set("limit", strconv.Itoa(*opts.Limit))
	}
	if opts.Offset != nil {
		query.Set("offset", strconv.Itoa(*opts.Offset))
	}

	var list model.ExperimentList
	if err := c.get(ctx, "/experiments", query, &list); err != nil {
		return model.ExperimentList{}, err
	}
	return list, nil
}

// GetExperiment fetches a single experiment by id.
func (c *Client) GetExperiment(ctx context.Context, id int64) (model.Experiment, error) {
	var exp model.Experiment
	if err := c.get(ctx, fmt.Sprintf("/experiments/%d", id), nil, &exp); err != nil {
		return model.Experiment{}, err
	}
	return exp, nil
}

// ResultsOptions narrows the results computation. Date strings are passed
// through opaquely; validating their format is the server's job.
type ResultsOptions struct {
	StartDate         string
	EndDate           string
	EventTypes        []string
	Format            ResultsFormat
	IncludeTimeSeries bool
	Granularity       Granularity
}

// GetExperimentResults fetches the computed results payload for an
// experiment.
func (c *Client) GetExperimentResults(ctx context.Context, id int64, opts ResultsOptions) (model.ExperimentResults, error) {
	switch opts.Format {
	case "", FormatFull, FormatSummary, FormatMetricsOnly:
	default:
		return model.ExperimentResults{}, fmt.Errorf("invalid results format %q", opts.Format)
	}
	switch opts.Granularity {
	case "", GranularityHour, GranularityDay, GranularityWeek:
	default:
		return model.ExperimentResults{}, fmt.Errorf("invalid time series granularity %q", opts.Granularity)
	}

	query := url.Values{}
	if opts.StartDate != "" {
		query.Set("start_date", opts.StartDate)
	}
	if opts.EndDate != "" {
		query.Set("end_date", opts.EndDate)
	}
	if len(opts.EventTypes) > 0 {
		query.Set("event_types", strings.Join(opts.EventTypes, ","))
	}
	if opts.Format != "" {
		query.Set("format", string(opts.Format))
	}
	// Absent means "use the server default", so only true is serialized.
	if opts.IncludeTimeSeries {
		query.Set("include_time_series", "true")
	}
	if opts.Granularity != "" {
		query.Set("time_series_granularity", string(opts.Granularity))
	}

	var results model.ExperimentResults
	if err := c.get(ctx, fmt.Sprintf("/experiments/%d/results", id), query, &results); err != nil {
		return model.ExperimentResults{}, err
	}
	return results, nil
}

// ListEventTypes fetches all known event types with their total counts.
func (c *Client) ListEventTypes(ctx context.Context) ([]model.EventTypeCount, error) {
	var payload struct {
		EventTypes []model.EventTypeCount `json:"event_types"`
	}
	if err := c.get(ctx, "/events/types", nil, &payload); err != nil {
		return nil, err
	}
	return payload.EventTypes, nil
}

// get runs the shared request pipeline: build the URL from present-only
// query parameters, attach headers, classify non-2xx responses, and decode
// the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var payload errorBody
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		code := payload.StatusCode
		if code == 0 {
			code = status
		}
		return &APIError{StatusCode: code, Detail: payload.Detail}
	}
	return &APIError{StatusCode: status, Detail: fmt.Sprintf("HTTP %d", status)}
}
