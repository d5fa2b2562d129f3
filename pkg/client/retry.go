package client

import (
	"context"
	"net/url"
	"time"
)

// RetryConfig holds the server-error retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay after the first failed attempt.
	InitialDelay time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64
}

// DefaultRetryConfig returns the retry policy used against SendGrid.
//
// The API returns intermittent 5xx bursts that can last minutes, hence the
// long initial delay and the high attempt count. No jitter: the tap is a
// single sequential worker, there is no herd to spread out.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  20,
		InitialDelay: 120 * time.Second,
		Multiplier:   1.5,
	}
}

// GetWithRetry issues an authenticated GET, retrying on HTTP 5xx with
// exponential backoff.
//
// Any non-5xx response, 4xx included, is returned immediately: the caller
// inspects those bodies itself. When all attempts are exhausted the last
// status and raw body are surfaced in the returned *APIError; this is fatal
// for the stream being synced.
func (c *Client) GetWithRetry(ctx context.Context, stream, rawURL string, params url.Values) (*Response, error) {
	cfg := c.config.Retry
	delay := cfg.InitialDelay

	var resp *Response
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		var err error
		resp, err = c.Get(ctx, stream, rawURL, params)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		c.logger.Info().
			Str("stream", stream).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", delay).
			Msg("Server error, backing off")

		if attempt >= cfg.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(stream).Inc()
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
	}

	retryExhaustedTotal.WithLabelValues(stream).Inc()
	c.logger.Error().
		Str("stream", stream).
		Int("status", resp.StatusCode).
		Str("body", string(resp.Body)).
		Msg("Retry attempts exhausted")

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Err:        ErrRetryExhausted,
	}
}
