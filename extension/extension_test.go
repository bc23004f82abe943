package extension

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RunTheBot/echo-HiFi-extension/config"
	"github.com/RunTheBot/echo-HiFi-extension/hifi"
	"github.com/RunTheBot/echo-HiFi-extension/history"
)

type fakeTransport struct {
	requests []string
	handle   func(call int, url string) (*hifi.Response, error)
}

func (f *fakeTransport) Get(_ context.Context, url string, _ map[string]string) (*hifi.Response, error) {
	call := len(f.requests)
	f.requests = append(f.requests, url)
	return f.handle(call, url)
}

func jsonResponse(body string) (*hifi.Response, error) {
	return &hifi.Response{
		Status:      http.StatusOK,
		ContentType: "application/json",
		Body:        []byte(body),
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		API:     config.APIConfig{Endpoint: "http://upstream.test", CountryCode: "US"},
		Options: config.Options{SearchLimit: 10},
	}
}

func newTestExtension(t *testing.T, transport hifi.Transport, withHistory bool) *Extension {
	t.Helper()
	var store *history.Store
	if withHistory {
		var err error
		store, err = history.New(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
	}
	ext, err := New(testConfig(), transport, store)
	require.NoError(t, err)
	return ext
}

const albumBody = `[
	{"id": 9, "title": "Record", "cover": "cov", "artist": {"id": 7, "name": "Band"}},
	{"items": [
		{"id": 1, "title": "One", "duration": 100, "trackNumber": 1},
		{"id": 2, "title": "Two", "duration": 120, "trackNumber": 2}
	]}
]`

func TestLoadAlbumTracksServedFromCache(t *testing.T) {
	transport := &fakeTransport{
		handle: func(_ int, url string) (*hifi.Response, error) {
			require.Contains(t, url, "/album/?id=9")
			return jsonResponse(albumBody)
		},
	}
	ext := newTestExtension(t, transport, false)

	item, err := ext.LoadAlbum(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Record", item.Title)

	tracks, err := ext.LoadAlbumTracks(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "One", tracks[0].Title)

	// The track list came out of the cache; only the LoadAlbum call hit
	// the upstream.
	assert.Len(t, transport.requests, 1)
}

func TestLoadAlbumTracksFetchesOnCacheMiss(t *testing.T) {
	transport := &fakeTransport{
		handle: func(_ int, url string) (*hifi.Response, error) {
			return jsonResponse(albumBody)
		},
	}
	ext := newTestExtension(t, transport, false)

	tracks, err := ext.LoadAlbumTracks(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.Len(t, transport.requests, 1)
}

func TestLoadArtistFeedShelves(t *testing.T) {
	body := `[
		{"id": 7, "name": "Band", "type": "MAIN", "artistTypes": ["MAIN"]},
		{"modules": [
			{"pagedList": {"items": [
				{"id": 9, "title": "Record", "cover": "cov", "popularity": 50}
			]}},
			{"pagedList": {"items": [
				{"id": 1, "title": "Hit", "duration": 100, "trackNumber": 1, "popularity": 80,
				 "album": {"id": 9, "title": "Record", "cover": "cov"}}
			]}}
		]}
	]`
	transport := &fakeTransport{
		handle: func(_ int, url string) (*hifi.Response, error) {
			require.Contains(t, url, "/artist/?f=7")
			return jsonResponse(body)
		},
	}
	ext := newTestExtension(t, transport, false)

	shelves, err := ext.LoadArtistFeed(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, shelves, 2)
	assert.Equal(t, "Albums", shelves[0].Title)
	require.Len(t, shelves[0].Items, 1)
	assert.Equal(t, "Top Tracks", shelves[1].Title)
	require.Len(t, shelves[1].Items, 1)
	assert.Equal(t, "Hit", shelves[1].Items[0].Title)
}

func searchHandler(t *testing.T) func(int, string) (*hifi.Response, error) {
	t.Helper()
	return func(_ int, url string) (*hifi.Response, error) {
		switch {
		case strings.Contains(url, "?s="):
			return jsonResponse(`{"tracks": {"items": [{"id": 1, "title": "Song", "duration": 90}]}}`)
		case strings.Contains(url, "?a="):
			return jsonResponse(`{"artists": {"items": [{"id": 7, "name": "Band"}]}}`)
		case strings.Contains(url, "?al="):
			return jsonResponse(`{"albums": {"items": []}}`)
		case strings.Contains(url, "?p="):
			return jsonResponse(`{"playlists": {"items": []}}`)
		}
		t.Fatalf("unexpected url %s", url)
		return nil, nil
	}
}

func TestLoadSearchFeedBuildsShelvesAndMemoizes(t *testing.T) {
	transport := &fakeTransport{handle: searchHandler(t)}
	ext := newTestExtension(t, transport, false)

	shelves, err := ext.LoadSearchFeed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, shelves, 2)
	assert.Equal(t, "Tracks", shelves[0].Title)
	assert.Equal(t, "Artists", shelves[1].Title)
	assert.Len(t, transport.requests, 4)

	// Same query again is served from the memo.
	again, err := ext.LoadSearchFeed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, shelves, again)
	assert.Len(t, transport.requests, 4)

	// A new query invalidates it.
	_, err = ext.LoadSearchFeed(context.Background(), "other")
	require.NoError(t, err)
	assert.Len(t, transport.requests, 8)
}

func TestQuickSearchHistory(t *testing.T) {
	transport := &fakeTransport{handle: searchHandler(t)}
	ext := newTestExtension(t, transport, true)

	_, err := ext.LoadSearchFeed(context.Background(), "hello")
	require.NoError(t, err)
	_, err = ext.LoadSearchFeed(context.Background(), "heaven")
	require.NoError(t, err)
	_, err = ext.LoadSearchFeed(context.Background(), "other")
	require.NoError(t, err)

	all, err := ext.QuickSearch("")
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "heaven", "hello"}, all)

	narrowed, err := ext.QuickSearch("He")
	require.NoError(t, err)
	assert.Equal(t, []string{"heaven", "hello"}, narrowed)

	require.NoError(t, ext.DeleteQuickSearch("heaven"))
	all, err = ext.QuickSearch("")
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "hello"}, all)

	require.NoError(t, ext.DeleteQuickSearch(""))
	all, err = ext.QuickSearch("")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestQuickSearchWithoutHistoryStore(t *testing.T) {
	ext := newTestExtension(t, &fakeTransport{}, false)

	queries, err := ext.QuickSearch("x")
	require.NoError(t, err)
	assert.Empty(t, queries)
	require.NoError(t, ext.DeleteQuickSearch("x"))
}
