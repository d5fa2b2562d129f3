// Package sync orchestrates extraction: it walks the selected catalog,
// dispatches each stream to its bookmark strategy, and persists state as
// streams complete.
package sync

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rivermill/tap-sendgrid/pkg/catalog"
	"github.com/rivermill/tap-sendgrid/pkg/client"
	"github.com/rivermill/tap-sendgrid/pkg/config"
	"github.com/rivermill/tap-sendgrid/pkg/cursor"
	"github.com/rivermill/tap-sendgrid/pkg/state"
	"github.com/rivermill/tap-sendgrid/pkg/streams"
)

// Transport is the client surface the syncer needs.
type Transport interface {
	GetWithRetry(ctx context.Context, stream, rawURL string, params url.Values) (*client.Response, error)
	BaseURL() string
}

// Sink receives shaped records and state snapshots.
type Sink interface {
	WriteRecords(entry catalog.Entry, records []map[string]any) error
	WriteState(st *state.State) error
}

// Syncer runs one extraction pass over the selected catalog. Streams are
// processed strictly sequentially; a fatal stream error aborts the run
// without rolling back bookmarks already advanced for earlier streams.
type Syncer struct {
	transport Transport
	store     state.Store
	sink      Sink
	cfg       *config.Config

	st *state.State

	// cache holds the full-table results of the current run, keyed by
	// stream id. Member streams consult it for parent ids and counts.
	cache map[string][]map[string]any

	now    func() time.Time
	logger zerolog.Logger
}

// New creates a syncer.
func New(transport Transport, store state.Store, sink Sink, cfg *config.Config) *Syncer {
	return &Syncer{
		transport: transport,
		store:     store,
		sink:      sink,
		cfg:       cfg,
		cache:     make(map[string][]map[string]any),
		now:       time.Now,
		logger:    log.With().Str("component", "syncer").Logger(),
	}
}

// Sync runs one full pass: full-table streams first, so their results seed
// the member-count cache, then incremental streams. State is persisted after
// each incremental stream and once more at the end.
func (s *Syncer) Sync(ctx context.Context, cat *catalog.Catalog) error {
	st, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	s.st = st

	if err := s.syncAlls(ctx, cat); err != nil {
		return err
	}
	if err := s.syncIncrementals(ctx, cat); err != nil {
		return err
	}

	return s.persistState(ctx)
}

// syncAlls runs the fetch-everything path for every selected stream without
// a bookmark strategy, once per invocation.
func (s *Syncer) syncAlls(ctx context.Context, cat *catalog.Catalog) error {
	for _, entry := range cat.Selected() {
		stream, ok := streams.Lookup(entry.Stream)
		if !ok {
			return fmt.Errorf("unknown stream %q in catalog", entry.Stream)
		}
		if stream.HasBookmark() {
			continue
		}

		s.logger.Info().Str("stream", stream.ID).Msg("Extracting all")

		start, err := s.startTimeUnix()
		if err != nil {
			return err
		}

		cur := cursor.NewOffset(s.transport, stream, stream.URL(s.transport.BaseURL(), ""), start, s.now().Unix())
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
			s.cache[stream.ID] = append(s.cache[stream.ID], batch...)
		}
	}
	return nil
}

// syncIncrementals dispatches each selected bookmark stream to its strategy
// and persists state after each one completes.
func (s *Syncer) syncIncrementals(ctx context.Context, cat *catalog.Catalog) error {
	for _, entry := range cat.Selected() {
		stream, ok := streams.Lookup(entry.Stream)
		if !ok {
			return fmt.Errorf("unknown stream %q in catalog", entry.Stream)
		}

		var err error
		switch stream.Strategy {
		case streams.StrategyNone:
			continue
		case streams.StrategyTimestamp:
			err = s.syncTimestamp(ctx, entry, stream)
		case streams.StrategyEndTime:
			err = s.syncEndTime(ctx, entry, stream)
		case streams.StrategyMemberCount:
			err = s.syncMemberCount(ctx, entry, stream)
		case streams.StrategyMemberCountLimits:
			err = s.syncMemberCountLimits(ctx, entry, stream)
		default:
			err = fmt.Errorf("stream %q has unsupported strategy %v", stream.ID, stream.Strategy)
		}
		if err != nil {
			return err
		}

		if err := s.persistState(ctx); err != nil {
			return err
		}
	}
	return nil
}

// writeRecords shapes a batch against the entry's schema and hands it to
// the sink.
func (s *Syncer) writeRecords(entry catalog.Entry, records []map[string]any, added map[string]any) error {
	if len(records) == 0 {
		return nil
	}
	return s.sink.WriteRecords(entry, entry.Trim(records, added))
}

// persistState saves state durably and emits a STATE message.
func (s *Syncer) persistState(ctx context.Context) error {
	if err := s.store.Save(ctx, s.st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return s.sink.WriteState(s.st)
}

// bookmarkOrStart returns the stream's bookmark value, seeding it from the
// configured start date on first sight.
func (s *Syncer) bookmarkOrStart(stream streams.Stream) string {
	value, ok := s.st.Bookmark(stream.ID, stream.BookmarkField)
	if !ok {
		value = s.cfg.StartDate
		s.st.SetBookmark(stream.ID, stream.BookmarkField, value)
	}
	return value
}

// startTimeUnix returns the configured global start date as epoch seconds.
func (s *Syncer) startTimeUnix() (int64, error) {
	start, err := s.cfg.StartTime()
	if err != nil {
		return 0, err
	}
	return start.Unix(), nil
}

// nowString is the bookmark value written for "now".
func (s *Syncer) nowString() string {
	return s.now().UTC().Format(time.RFC3339)
}

// parseTimeValue parses a bookmark value, RFC3339 timestamp or bare ISO date.
func parseTimeValue(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse bookmark value %q: %w", value, err)
	}
	return t.UTC(), nil
}

// parentID renders a parent entity id from a decoded JSON record.
func parentID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}

// intField reads a numeric field off a decoded JSON record.
func intField(rec map[string]any, field string) int {
	if n, ok := rec[field].(float64); ok {
		return int(n)
	}
	return 0
}
