package cursor

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rivermill/tap-sendgrid/pkg/client"
	"github.com/rivermill/tap-sendgrid/pkg/streams"
)

// Bulk walks an offset endpoint with a very large limit and no time window,
// yielding raw decoded bodies. An empty batch ends the walk. Used for flat
// listings such as the full recipient set.
type Bulk struct {
	fetcher Fetcher
	stream  streams.Stream
	url     string

	offset int
	limit  int
	done   bool
	logger zerolog.Logger
}

// NewBulk creates a bulk offset cursor.
func NewBulk(f Fetcher, s streams.Stream, rawURL string) *Bulk {
	return &Bulk{
		fetcher: f,
		stream:  s,
		url:     rawURL,
		limit:   DefaultBulkLimit,
		logger:  log.With().Str("component", "bulk-cursor").Str("stream", s.ID).Logger(),
	}
}

// Next fetches and returns the next raw body. Decode failures are fatal
// immediately, matching the offset-window strategy.
func (b *Bulk) Next(ctx context.Context) (any, bool, error) {
	if b.done {
		return nil, false, nil
	}

	params := url.Values{}
	params.Set("offset", strconv.Itoa(b.offset))
	params.Set("limit", strconv.Itoa(b.limit))

	resp, err := b.fetcher.GetWithRetry(ctx, b.stream.ID, b.url, params)
	if err != nil {
		return nil, false, err
	}

	var body any
	if err := resp.Decode(&body); err != nil {
		b.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(resp.Body)).
			Msg("Failed to decode bulk batch")
		return nil, false, fmt.Errorf("%w: %v", client.ErrMalformedResponse, err)
	}

	if len(b.stream.Records(body)) > 0 {
		b.offset += b.limit
	} else {
		b.done = true
	}

	return body, true, nil
}
