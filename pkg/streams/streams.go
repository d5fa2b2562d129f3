// Package streams defines the extractable SendGrid resources and their
// pagination and incrementality rules.
package streams

import (
	"strings"
)

// BookmarkStrategy selects the bookmark-advancement policy for a stream.
// Streams without a strategy are re-fetched in full on every run.
type BookmarkStrategy int

const (
	// StrategyNone marks full-table streams with no persisted cursor.
	StrategyNone BookmarkStrategy = iota

	// StrategyTimestamp is the day-windowed dual-field search over the
	// recipients search endpoint.
	StrategyTimestamp

	// StrategyEndTime drives an offset-window cursor over a
	// [bookmark, now] time range.
	StrategyEndTime

	// StrategyMemberCount refreshes a parent-scoped member listing only
	// when the parent's member count has grown since the last sync.
	StrategyMemberCount

	// StrategyMemberCountLimits always refreshes via the bulk offset
	// cursor, without a count comparison.
	StrategyMemberCountLimits
)

// String implements fmt.Stringer.
func (s BookmarkStrategy) String() string {
	switch s {
	case StrategyTimestamp:
		return "timestamp"
	case StrategyEndTime:
		return "end_time"
	case StrategyMemberCount:
		return "member_count"
	case StrategyMemberCountLimits:
		return "member_count_limits"
	default:
		return "none"
	}
}

// idSlot is the substitution slot in parent-scoped endpoint templates.
const idSlot = "{id}"

// Stream describes one extractable resource.
type Stream struct {
	// ID is the tap stream identifier.
	ID string

	// Endpoint is the URL path template. Parent-scoped streams carry one
	// "{id}" slot for the parent entity id.
	Endpoint string

	// ResultsKey names the sub-list holding records in the response
	// payload. Empty means the payload itself is a bare array.
	ResultsKey string

	// Strategy selects the incremental sync algorithm.
	Strategy BookmarkStrategy

	// BookmarkField is the state field the bookmark value is stored under.
	// Empty for full-table streams.
	BookmarkField string

	// ParentStream is the full-table stream whose results seed the
	// member-count cache for this stream (member streams only).
	ParentStream string

	// ParentKey is the property added to each emitted record carrying the
	// parent entity id (member streams only).
	ParentKey string

	// CountField is the parent payload field holding the member count.
	CountField string

	// ItemField names the property bare scalar payload items are wrapped
	// under. Only set for streams whose payload is a flat scalar list,
	// such as suppressed email addresses.
	ItemField string

	// Unpaged marks parent-scoped streams whose refresh is a single fetch
	// rather than a paged walk.
	Unpaged bool
}

// HasBookmark reports whether the stream syncs incrementally.
func (s Stream) HasBookmark() bool {
	return s.Strategy != StrategyNone
}

// URL resolves the endpoint template against the API root, substituting the
// parent id when the template carries a slot.
func (s Stream) URL(baseURL, parentID string) string {
	endpoint := s.Endpoint
	if parentID != "" {
		endpoint = strings.Replace(endpoint, idSlot, parentID, 1)
	}
	return strings.TrimRight(baseURL, "/") + endpoint
}

// The stream table. Full-table streams come first: their results feed the
// member-count cache the member streams consult.
var all = []Stream{
	{
		ID:         "lists",
		Endpoint:   "/v3/contactdb/lists",
		ResultsKey: "lists",
	},
	{
		ID:         "segments",
		Endpoint:   "/v3/contactdb/segments",
		ResultsKey: "segments",
	},
	{
		ID:       "groups",
		Endpoint: "/v3/asm/groups",
	},
	{
		ID:            "contacts",
		Endpoint:      "/v3/contactdb/recipients/search",
		ResultsKey:    "recipients",
		Strategy:      StrategyTimestamp,
		BookmarkField: "created_at",
	},
	{
		ID:            "all_contacts",
		Endpoint:      "/v3/contactdb/recipients",
		ResultsKey:    "recipients",
		Strategy:      StrategyMemberCountLimits,
		BookmarkField: "updated_at",
	},
	{
		ID:            "global_suppressions",
		Endpoint:      "/v3/suppression/unsubscribes",
		Strategy:      StrategyEndTime,
		BookmarkField: "created",
	},
	{
		ID:            "blocks",
		Endpoint:      "/v3/suppression/blocks",
		Strategy:      StrategyEndTime,
		BookmarkField: "created",
	},
	{
		ID:            "bounces",
		Endpoint:      "/v3/suppression/bounces",
		Strategy:      StrategyEndTime,
		BookmarkField: "created",
	},
	{
		ID:            "invalid_emails",
		Endpoint:      "/v3/suppression/invalid_emails",
		Strategy:      StrategyEndTime,
		BookmarkField: "created",
	},
	{
		ID:            "spam_reports",
		Endpoint:      "/v3/suppression/spam_reports",
		Strategy:      StrategyEndTime,
		BookmarkField: "created",
	},
	{
		ID:            "lists_members",
		Endpoint:      "/v3/contactdb/lists/{id}/recipients",
		ResultsKey:    "recipients",
		Strategy:      StrategyMemberCount,
		BookmarkField: "updated_at",
		ParentStream:  "lists",
		ParentKey:     "list_id",
		CountField:    "member_count",
	},
	{
		ID:            "segments_members",
		Endpoint:      "/v3/contactdb/segments/{id}/recipients",
		ResultsKey:    "recipients",
		Strategy:      StrategyMemberCount,
		BookmarkField: "updated_at",
		ParentStream:  "segments",
		ParentKey:     "segment_id",
		CountField:    "member_count",
	},
	{
		ID:            "groups_members",
		Endpoint:      "/v3/asm/groups/{id}/suppressions",
		Strategy:      StrategyMemberCount,
		BookmarkField: "updated_at",
		ParentStream:  "groups",
		ParentKey:     "group_id",
		CountField:    "unsubscribes",
		ItemField:     "email",
		Unpaged:       true,
	},
}

// All returns every known stream, in sync order.
func All() []Stream {
	out := make([]Stream, len(all))
	copy(out, all)
	return out
}

// Lookup returns the stream descriptor for the given id.
func Lookup(id string) (Stream, bool) {
	for _, s := range all {
		if s.ID == id {
			return s, true
		}
	}
	return Stream{}, false
}

// Results extracts the record list from a decoded payload according to the
// stream's declared shape. A missing sub-list or a payload of the wrong
// shape yields nil: absence of data is not an error.
func Results(payload any, resultsKey string) []map[string]any {
	if resultsKey != "" {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil
		}
		payload = obj[resultsKey]
	}

	items, ok := payload.([]any)
	if !ok {
		return nil
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}

// Records extracts the record list from a decoded payload according to the
// stream's declared shape. Streams with an ItemField wrap each bare scalar
// item into a record under that property; the rest defer to Results.
func (s Stream) Records(payload any) []map[string]any {
	if s.ItemField == "" {
		return Results(payload, s.ResultsKey)
	}

	if s.ResultsKey != "" {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil
		}
		payload = obj[s.ResultsKey]
	}
	items, ok := payload.([]any)
	if !ok {
		return nil
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
			continue
		}
		records = append(records, map[string]any{s.ItemField: item})
	}
	return records
}
