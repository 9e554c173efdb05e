package prefs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewStore(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadReturnsDefaultsWhenUnset(t *testing.T) {
	store := newTestStore(t)

	p, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := Preferences{DarkMode: true, Language: "es", ExportFormat: "json"}
	require.NoError(t, store.Save(ctx, "user-1", want))

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPreferencesAreScopedPerUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "user-1", Preferences{DarkMode: true, Language: "fr", ExportFormat: "html"}))

	other, err := store.Load(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), other)
}

func TestSaveRejectsUnknownLanguage(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), "user-1", Preferences{Language: "xx", ExportFormat: "html"})
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestSaveRejectsUnknownFormat(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), "user-1", Preferences{Language: "en", ExportFormat: "docx"})
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestSaveAcceptsPDFFormat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "user-1", Preferences{Language: "en", ExportFormat: "pdf"}))

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "pdf", got.ExportFormat)
}

func TestLoadFallsBackFieldByField(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewStore(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer store.Close()

	// A stale value written by an older build with a language that is no
	// longer supported.
	mr.Set(key("user-1"), `{"darkMode": true, "language": "tlh", "exportFormat": "json"}`)

	p, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, p.DarkMode)
	assert.Equal(t, "en", p.Language)
	assert.Equal(t, "json", p.ExportFormat)
}

func TestLoadIgnoresCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewStore(mr.Addr(), "", 0)
	require.NoError(t, err)
	defer store.Close()

	mr.Set(key("user-1"), "not json at all")

	p, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)
}
