package hifi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAlbumArrayResponse(t *testing.T) {
	body := `[
		{"id": 9, "title": "Record", "cover": "cov", "releaseDate": "2022-06-15",
		 "numberOfTracks": 2, "artist": {"id": 7, "name": "Band"}},
		{"limit": 100, "offset": 0, "totalNumberOfItems": 2,
		 "items": [
			{"item": {"id": 1, "title": "One", "duration": 100, "trackNumber": 1}},
			{"item": {"id": 2, "title": "Two", "duration": 120, "trackNumber": 2}}
		 ]}
	]`
	transport := &fakeTransport{
		handle: func(_ int, url string) (*Response, error) {
			require.Contains(t, url, "/album/?id=9")
			return jsonResponse(200, body), nil
		},
	}
	client, _ := newTestClient(transport)

	lookup, err := client.GetAlbum(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Record", lookup.Album.Title)
	require.Len(t, lookup.Tracks, 2)
	// Envelope tracks had no album; they get the parent stamped in.
	for _, track := range lookup.Tracks {
		require.NotNil(t, track.Album)
		assert.Equal(t, 9, track.Album.ID)
	}
}

func TestGetAlbumBareObjectResponse(t *testing.T) {
	transport := &fakeTransport{
		handle: func(int, string) (*Response, error) {
			return jsonResponse(200, `{"id": 9, "title": "Record", "cover": "cov"}`), nil
		},
	}
	client, _ := newTestClient(transport)

	lookup, err := client.GetAlbum(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 9, lookup.Album.ID)
	assert.Empty(t, lookup.Tracks)
}

func TestGetAlbumMissingAlbumElement(t *testing.T) {
	transport := &fakeTransport{
		handle: func(int, string) (*Response, error) {
			return jsonResponse(200, `[{"items": []}]`), nil
		},
	}
	client, _ := newTestClient(transport)

	_, err := client.GetAlbum(context.Background(), 9)
	var malformed *MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestGetAlbumUpstreamError(t *testing.T) {
	transport := &fakeTransport{
		handle: func(int, string) (*Response, error) {
			return jsonResponse(404, `{"detail":"album not found"}`), nil
		},
	}
	client, _ := newTestClient(transport)

	_, err := client.GetAlbum(context.Background(), 9)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 404, upstream.Status)
}
