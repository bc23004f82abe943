package hifi

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackSearchBody = `{
	"tracks": {
		"limit": 10, "offset": 0, "totalNumberOfItems": 2,
		"items": [
			{"id": 1, "title": "First", "duration": 100, "artists": [{"id": 5, "name": "Solo"}]},
			{"id": 2, "title": "Second", "duration": 200, "artist": {"id": 6, "name": "Other"}}
		]
	}
}`

func TestSearchTracksDecodesAndNormalizes(t *testing.T) {
	transport := &fakeTransport{
		handle: func(_ int, url string) (*Response, error) {
			require.Contains(t, url, "/search/?s=hello+world&li=10")
			return jsonResponse(200, trackSearchBody), nil
		},
	}
	client, _ := newTestClient(transport)

	resp, err := client.SearchTracks(context.Background(), "hello world", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalNumberOfItems)
	require.Len(t, resp.Items, 2)

	// List-only input got its primary artist backfilled, and vice versa.
	first := resp.Items[0]
	require.NotNil(t, first.Artist)
	assert.Equal(t, "Solo", first.Artist.Name)
	second := resp.Items[1]
	require.Len(t, second.Artists, 1)
	assert.Equal(t, "Other", second.Artists[0].Name)
}

func TestSearchSectionBuriedInWrapper(t *testing.T) {
	body := `{"data": {"results": {"albums": {"items": [{"id": 3, "title": "Rec", "cover": "c"}]}}}}`
	transport := &fakeTransport{
		handle: func(_ int, url string) (*Response, error) {
			require.Contains(t, url, "al=q")
			return jsonResponse(200, body), nil
		},
	}
	client, _ := newTestClient(transport)

	resp, err := client.SearchAlbums(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Rec", resp.Items[0].Title)
}

func TestSearchNoSectionMeansEmpty(t *testing.T) {
	transport := &fakeTransport{
		handle: func(int, string) (*Response, error) {
			return jsonResponse(200, `{"unrelated": true}`), nil
		},
	}
	client, _ := newTestClient(transport)

	resp, err := client.SearchPlaylists(context.Background(), "nothing", 5)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.TotalNumberOfItems)
}

func TestSearchFailsFastOnError(t *testing.T) {
	transport := &fakeTransport{
		handle: func(int, string) (*Response, error) {
			return jsonResponse(500, `{}`), nil
		},
	}
	client, waits := newTestClient(transport)

	_, err := client.SearchTracks(context.Background(), "q", 5)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Len(t, transport.requests, 1) // search has no retry loop
	assert.Empty(t, *waits)
}

func TestSearchRateLimitAborts(t *testing.T) {
	transport := &fakeTransport{
		handle: func(int, string) (*Response, error) {
			return jsonResponse(429, ``), nil
		},
	}
	client, _ := newTestClient(transport)

	_, err := client.SearchArtists(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSearchAllIsolatesFailures(t *testing.T) {
	transport := &fakeTransport{
		handle: func(_ int, url string) (*Response, error) {
			switch {
			case strings.Contains(url, "?s="):
				return jsonResponse(200, trackSearchBody), nil
			case strings.Contains(url, "?a="):
				return jsonResponse(500, `{}`), nil // artist search down
			case strings.Contains(url, "?al="):
				return jsonResponse(200, `{"albums": {"items": [{"id": 3, "title": "A", "cover": "c"}]}}`), nil
			default:
				return jsonResponse(200, `{"playlists": {"items": []}}`), nil
			}
		},
	}
	client, _ := newTestClient(transport)

	results := client.SearchAll(context.Background(), "q", 10)
	require.NotNil(t, results.Tracks)
	assert.Len(t, results.Tracks.Items, 2)
	assert.Nil(t, results.Artists) // failed type omitted, siblings intact
	require.NotNil(t, results.Albums)
	assert.Len(t, results.Albums.Items, 1)
	require.NotNil(t, results.Playlists)
	assert.Empty(t, results.Playlists.Items)
	assert.Len(t, transport.requests, 4)
}
