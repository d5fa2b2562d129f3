package cursor

import (
	"context"
	"net/url"

	"github.com/rivermill/tap-sendgrid/pkg/client"
)

// Pagination defaults for the three strategies.
const (
	// DefaultPageSize is the page size for page/page_size endpoints.
	DefaultPageSize = 1000

	// DefaultOffsetLimit is the batch size for offset/limit endpoints.
	DefaultOffsetLimit = 500

	// DefaultBulkLimit is the batch size for bulk flat listings, where
	// per-page overhead must be minimized.
	DefaultBulkLimit = 250000

	// maxDecodeAttempts bounds decode retries at the same page for the
	// paged strategy.
	maxDecodeAttempts = 3
)

// Fetcher is the transport surface cursors need. *client.Client satisfies it.
type Fetcher interface {
	GetWithRetry(ctx context.Context, stream, rawURL string, params url.Values) (*client.Response, error)
}
