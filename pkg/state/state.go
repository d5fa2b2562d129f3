// Package state persists tap progress between runs: one bookmark value per
// (stream, field) pair plus the member-count cache consulted by the
// conditional refresh strategy.
package state

import (
	"context"
)

// Store persists tap state to durable storage.
type Store interface {
	// Load reads the state. Returns a fresh empty state if the store has
	// none yet.
	Load(ctx context.Context) (*State, error)

	// Save writes the state atomically.
	Save(ctx context.Context, st *State) error
}

// State is the persisted tap state document.
type State struct {
	// Bookmarks maps stream id -> bookmark field -> value. Values are
	// RFC3339 timestamps or ISO dates and only ever move forward.
	Bookmarks map[string]map[string]string `json:"bookmarks"`

	// MemberCounts maps stream id -> parent entity id -> member count
	// observed at the last successful refresh.
	MemberCounts map[string]map[string]int `json:"member_counts,omitempty"`
}

// New returns an empty state.
func New() *State {
	return &State{
		Bookmarks:    make(map[string]map[string]string),
		MemberCounts: make(map[string]map[string]int),
	}
}

// normalize backfills nil maps after JSON decoding.
func (s *State) normalize() {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]string)
	}
	if s.MemberCounts == nil {
		s.MemberCounts = make(map[string]map[string]int)
	}
}

// Bookmark returns the bookmark value for a (stream, field) pair.
func (s *State) Bookmark(stream, field string) (string, bool) {
	value, ok := s.Bookmarks[stream][field]
	return value, ok && value != ""
}

// SetBookmark advances the bookmark for a (stream, field) pair. A value that
// would regress behind the stored one is ignored: bookmark values are
// monotonically non-decreasing. RFC3339 and ISO date strings order
// lexicographically, so a string compare is sufficient.
func (s *State) SetBookmark(stream, field, value string) {
	if s.Bookmarks[stream] == nil {
		s.Bookmarks[stream] = make(map[string]string)
	}
	if existing := s.Bookmarks[stream][field]; existing > value {
		return
	}
	s.Bookmarks[stream][field] = value
}

// MemberCount returns the cached member count for a parent entity, zero when
// the parent has never been refreshed.
func (s *State) MemberCount(stream, parentID string) int {
	return s.MemberCounts[stream][parentID]
}

// SetMemberCount records the member count observed for a parent entity.
// Called only after the parent's refresh completed without error.
func (s *State) SetMemberCount(stream, parentID string, count int) {
	if s.MemberCounts[stream] == nil {
		s.MemberCounts[stream] = make(map[string]int)
	}
	s.MemberCounts[stream][parentID] = count
}
