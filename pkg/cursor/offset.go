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

// Offset walks an offset/limit endpoint over a fixed [start, end] time
// window, yielding record batches extracted per the stream's payload shape.
// A batch shorter than the limit ends the walk.
type Offset struct {
	fetcher    Fetcher
	stream     streams.Stream
	url        string
	start, end int64

	offset int
	limit  int
	done   bool
	logger zerolog.Logger
}

// NewOffset creates an offset-window cursor for the given stream and
// [start, end] epoch-second bounds.
func NewOffset(f Fetcher, s streams.Stream, rawURL string, start, end int64) *Offset {
	return &Offset{
		fetcher: f,
		stream:  s,
		url:     rawURL,
		start:   start,
		end:     end,
		limit:   DefaultOffsetLimit,
		logger:  log.With().Str("component", "offset-cursor").Str("stream", s.ID).Logger(),
	}
}

// Next fetches and returns the next record batch. Decode failures are fatal
// immediately: unlike the paged endpoints, the offset endpoints do not
// produce transiently garbled bodies worth retrying.
func (o *Offset) Next(ctx context.Context) ([]map[string]any, bool, error) {
	if o.done {
		return nil, false, nil
	}

	params := url.Values{}
	params.Set("offset", strconv.Itoa(o.offset))
	params.Set("limit", strconv.Itoa(o.limit))
	params.Set("start_time", strconv.FormatInt(o.start, 10))
	params.Set("end_time", strconv.FormatInt(o.end, 10))

	resp, err := o.fetcher.GetWithRetry(ctx, o.stream.ID, o.url, params)
	if err != nil {
		return nil, false, err
	}

	var body any
	if err := resp.Decode(&body); err != nil {
		o.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(resp.Body)).
			Msg("Failed to decode offset batch")
		return nil, false, fmt.Errorf("%w: %v", client.ErrMalformedResponse, err)
	}

	batch := o.stream.Records(body)
	if len(batch) >= o.limit {
		o.offset += o.limit
	} else {
		o.done = true
	}

	o.logger.Debug().
		Int("offset", o.offset).
		Int("batch", len(batch)).
		Bool("done", o.done).
		Msg("Fetched offset batch")

	return batch, true, nil
}
