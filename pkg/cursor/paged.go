package cursor

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rivermill/tap-sendgrid/pkg/client"
)

// Paged walks a page/page_size endpoint. Every successfully decoded body is
// yielded as-is; picking the right sub-collection out of it is the caller's
// job. Termination is decided by client.EndOfRecords on the raw response.
type Paged struct {
	fetcher Fetcher
	stream  string
	url     string
	extra   url.Values

	page     int
	pageSize int
	attempts int
	done     bool
	logger   zerolog.Logger
}

// NewPaged creates a paged cursor. Extra filter params are merged into every
// request alongside page and page_size.
func NewPaged(f Fetcher, stream, rawURL string, extra url.Values) *Paged {
	return &Paged{
		fetcher:  f,
		stream:   stream,
		url:      rawURL,
		extra:    extra,
		page:     1,
		pageSize: DefaultPageSize,
		logger:   log.With().Str("component", "paged-cursor").Str("stream", stream).Logger(),
	}
}

// Next fetches and returns the next page body. A JSON-decode failure is
// retried up to three times at the same page before turning fatal; the page
// only advances when the end-of-records heuristic says more pages follow.
func (p *Paged) Next(ctx context.Context) (any, bool, error) {
	if p.done {
		return nil, false, nil
	}

	for {
		params := url.Values{}
		params.Set("page", strconv.Itoa(p.page))
		params.Set("page_size", strconv.Itoa(p.pageSize))
		for key, values := range p.extra {
			for _, v := range values {
				params.Set(key, v)
			}
		}

		resp, err := p.fetcher.GetWithRetry(ctx, p.stream, p.url, params)
		if err != nil {
			return nil, false, err
		}

		var body any
		if err := resp.Decode(&body); err != nil {
			p.attempts++
			if p.attempts < maxDecodeAttempts {
				p.logger.Warn().
					Int("page", p.page).
					Int("attempt", p.attempts).
					Msg("Failed to decode page, retrying")
				continue
			}
			p.logger.Error().
				Int("status", resp.StatusCode).
				Str("body", string(resp.Body)).
				Msg("Failed to decode page after retries")
			return nil, false, fmt.Errorf("%w: %v", client.ErrMalformedResponse, err)
		}

		if client.EndOfRecords(resp) {
			p.done = true
		} else {
			p.attempts = 0
			p.page++
		}

		return body, true, nil
	}
}
