package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookmarkRoundTrip(t *testing.T) {
	st := New()

	_, ok := st.Bookmark("contacts", "created_at")
	assert.False(t, ok, "fresh state should have no bookmark")

	st.SetBookmark("contacts", "created_at", "2026-01-02T00:00:00Z")
	value, ok := st.Bookmark("contacts", "created_at")
	require.True(t, ok)
	assert.Equal(t, "2026-01-02T00:00:00Z", value)
}

func TestSetBookmark_NeverRegresses(t *testing.T) {
	st := New()
	st.SetBookmark("blocks", "created", "2026-05-01T12:00:00Z")

	// An older value must not overwrite a newer one.
	st.SetBookmark("blocks", "created", "2026-04-30T23:59:59Z")

	value, _ := st.Bookmark("blocks", "created")
	assert.Equal(t, "2026-05-01T12:00:00Z", value)

	// Equal and newer values are accepted.
	st.SetBookmark("blocks", "created", "2026-05-01T12:00:00Z")
	st.SetBookmark("blocks", "created", "2026-05-02T00:00:00Z")
	value, _ = st.Bookmark("blocks", "created")
	assert.Equal(t, "2026-05-02T00:00:00Z", value)
}

func TestMemberCounts(t *testing.T) {
	st := New()

	assert.Equal(t, 0, st.MemberCount("lists_members", "42"), "unknown parent should read as zero")

	st.SetMemberCount("lists_members", "42", 10)
	assert.Equal(t, 10, st.MemberCount("lists_members", "42"))

	st.SetMemberCount("lists_members", "42", 15)
	assert.Equal(t, 15, st.MemberCount("lists_members", "42"))
}

func TestFileStore_LoadMissingIsFresh(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Bookmarks)
	assert.Empty(t, st.MemberCounts)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	st := New()
	st.SetBookmark("contacts", "created_at", "2026-02-03T04:05:06Z")
	st.SetMemberCount("segments_members", "7", 99)
	require.NoError(t, store.Save(ctx, st))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	value, ok := loaded.Bookmark("contacts", "created_at")
	require.True(t, ok)
	assert.Equal(t, "2026-02-03T04:05:06Z", value)
	assert.Equal(t, 99, loaded.MemberCount("segments_members", "7"))
}

func TestFileStore_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err, "a corrupt state file must not silently reset progress")
}

func TestFileStore_SaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	first := New()
	first.SetBookmark("bounces", "created", "2026-01-01T00:00:00Z")
	require.NoError(t, store.Save(ctx, first))

	second := New()
	second.SetBookmark("bounces", "created", "2026-06-01T00:00:00Z")
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	value, _ := loaded.Bookmark("bounces", "created")
	assert.Equal(t, "2026-06-01T00:00:00Z", value)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
