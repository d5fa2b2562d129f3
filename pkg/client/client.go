// Package client provides the authenticated SendGrid HTTP transport with
// retry/backoff and request metrics.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the SendGrid v3 API root.
const DefaultBaseURL = "https://api.sendgrid.com"

// sguidHeader is a fixed diagnostic header attached to every request so the
// provider can attribute this integration's traffic.
const (
	sguidHeaderName  = "X-SGUID"
	sguidHeaderValue = "3459112"
)

// Prometheus metrics for transport operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_requests_total",
		Help: "Total SendGrid requests by stream and HTTP status",
	}, []string{"stream", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sendgrid_request_duration_seconds",
		Help:    "SendGrid request duration in seconds by stream and HTTP status",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"stream", "status"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_retries_total",
		Help: "Total retry attempts after server errors by stream",
	}, []string{"stream"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sendgrid_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by stream",
	}, []string{"stream"})
)

// Config holds the client configuration.
type Config struct {
	// APIKey is the bearer credential attached to every request.
	APIKey string

	// UserAgent identifies the tap to the API. Empty omits the header.
	UserAgent string

	// BaseURL overrides the API root (used by tests).
	BaseURL string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry is the server-error retry policy.
	Retry RetryConfig
}

// DefaultConfig returns a default configuration for the given API key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		Timeout: 60 * time.Second,
		Retry:   DefaultRetryConfig(),
	}
}

// Client is the SendGrid HTTP transport.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger

	// sleep is swappable so retry tests don't wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new SendGrid client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "sendgrid-client").Logger(),
		sleep:  sleepContext,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Get issues a single authenticated GET request without retry.
//
// Any response that arrives is returned to the caller, including 4xx: some
// endpoints signal end-of-data through a 404 body, so non-2xx statuses are
// data, not transport failures.
func (c *Client) Get(ctx context.Context, stream, rawURL string, params url.Values) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Set(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set(sguidHeaderName, sguidHeaderValue)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestDuration.WithLabelValues(stream, "error").Observe(time.Since(startTime).Seconds())
		requestsTotal.WithLabelValues(stream, "error").Inc()
		c.logger.Error().Err(err).Str("stream", stream).Str("url", u.String()).Msg("HTTP request failed")
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	status := strconv.Itoa(resp.StatusCode)
	requestDuration.WithLabelValues(stream, status).Observe(time.Since(startTime).Seconds())
	requestsTotal.WithLabelValues(stream, status).Inc()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug().
		Str("stream", stream).
		Int("status", resp.StatusCode).
		Str("url", u.String()).
		Msg("SendGrid request complete")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}
