package sync

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rivermill/tap-sendgrid/pkg/catalog"
	"github.com/rivermill/tap-sendgrid/pkg/client"
	"github.com/rivermill/tap-sendgrid/pkg/cursor"
	"github.com/rivermill/tap-sendgrid/pkg/streams"
)

// searchFields are the timestamp filters the day-windowed strategy issues
// per day. Both are needed: updating a record does not touch the
// created-timestamp index.
var searchFields = [2]string{"created_at", "updated_at"}

// syncTimestamp is the day-windowed dual-field search. For every calendar
// day from the bookmark's day through today it pages through two searches,
// one per filter field, then advances the bookmark to "now".
//
// Advancing to "now" rather than the searched day means a crash mid-loop
// resumes from the last persisted "now" and can skip days searched never;
// the state write after the stream completes is what makes the advance
// durable. Kept as-is from the reference behavior.
func (s *Syncer) syncTimestamp(ctx context.Context, entry catalog.Entry, stream streams.Stream) error {
	start, err := parseTimeValue(s.bookmarkOrStart(stream))
	if err != nil {
		return err
	}

	now := s.now().UTC()
	day := start.Truncate(24 * time.Hour)

	for !day.After(now) {
		for _, field := range searchFields {
			s.logger.Info().
				Str("stream", stream.ID).
				Str("field", field).
				Str("day", day.Format("2006-01-02")).
				Msg("Searching contacts")

			params := url.Values{}
			params.Set(field, strconv.FormatInt(day.Unix(), 10))

			if err := s.writePagedRecords(ctx, entry, stream, stream.URL(s.transport.BaseURL(), ""), params, nil); err != nil {
				return err
			}
		}

		s.st.SetBookmark(stream.ID, stream.BookmarkField, s.nowString())
		day = day.Add(24 * time.Hour)
	}
	return nil
}

// syncEndTime drives the offset-window cursor over [bookmark, now] and
// advances the bookmark to the window's end once the cursor is exhausted.
func (s *Syncer) syncEndTime(ctx context.Context, entry catalog.Entry, stream streams.Stream) error {
	start, err := parseTimeValue(s.bookmarkOrStart(stream))
	if err != nil {
		return err
	}
	end := s.now().Unix()

	s.logger.Info().
		Str("stream", stream.ID).
		Int64("start", start.Unix()).
		Int64("end", end).
		Msg("Starting to extract")

	cur := cursor.NewOffset(s.transport, stream, stream.URL(s.transport.BaseURL(), ""), start.Unix(), end)
	for {
		batch, more, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if err := s.writeRecords(entry, batch, nil); err != nil {
			return err
		}
	}

	s.st.SetBookmark(stream.ID, stream.BookmarkField, time.Unix(end, 0).UTC().Format(time.RFC3339))
	return nil
}

// syncMemberCount refreshes each parent entity's member listing only when
// its live member count exceeds the count recorded at the last refresh. The
// cache decides skipping only; it is never trusted for emitted data.
func (s *Syncer) syncMemberCount(ctx context.Context, entry catalog.Entry, stream streams.Stream) error {
	s.bookmarkOrStart(stream)

	for _, parent := range s.cache[stream.ParentStream] {
		id := parentID(parent["id"])
		if id == "" {
			continue
		}

		liveCount := intField(parent, stream.CountField)
		oldCount := s.st.MemberCount(stream.ID, id)
		if liveCount <= oldCount {
			s.logger.Info().
				Str("stream", stream.ID).
				Str("parent_id", id).
				Int("count", liveCount).
				Msg("Not syncing, same size as last sync")
			continue
		}

		s.logger.Info().
			Str("stream", stream.ID).
			Str("parent_id", id).
			Int("count", liveCount).
			Int("was", oldCount).
			Msg("Starting to extract, list has grown")

		if err := s.refreshMembers(ctx, entry, stream, parent, id); err != nil {
			return err
		}

		// Only a completed refresh moves the recorded count forward.
		s.st.SetMemberCount(stream.ID, id, liveCount)
	}
	return nil
}

// refreshMembers re-fetches one parent's member listing, as a single fetch
// or a paged walk per the stream's declared shape.
func (s *Syncer) refreshMembers(ctx context.Context, entry catalog.Entry, stream streams.Stream, parent map[string]any, id string) error {
	added := map[string]any{stream.ParentKey: parent["id"]}
	rawURL := stream.URL(s.transport.BaseURL(), id)

	if stream.Unpaged {
		resp, err := s.transport.GetWithRetry(ctx, stream.ID, rawURL, nil)
		if err != nil {
			return err
		}
		var body any
		if err := resp.Decode(&body); err != nil {
			return fmt.Errorf("%w: %v", client.ErrMalformedResponse, err)
		}
		return s.writeRecords(entry, stream.Records(body), added)
	}

	return s.writePagedRecords(ctx, entry, stream, rawURL, nil, added)
}

// syncMemberCountLimits always refreshes in full via the bulk offset cursor,
// for listings where count comparison is unavailable or unreliable.
func (s *Syncer) syncMemberCountLimits(ctx context.Context, entry catalog.Entry, stream streams.Stream) error {
	s.logger.Info().Str("stream", stream.ID).Msg("Starting extract")

	cur := cursor.NewBulk(s.transport, stream, stream.URL(s.transport.BaseURL(), ""))
	for {
		body, more, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := s.writeRecords(entry, stream.Records(body), nil); err != nil {
			return err
		}
	}
}

// writePagedRecords drains a paged cursor and writes each page's records.
func (s *Syncer) writePagedRecords(ctx context.Context, entry catalog.Entry, stream streams.Stream, rawURL string, params url.Values, added map[string]any) error {
	cur := cursor.NewPaged(s.transport, stream.ID, rawURL, params)
	for {
		body, more, err := cur.Next(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := s.writeRecords(entry, stream.Records(body), added); err != nil {
			return err
		}
	}
}
