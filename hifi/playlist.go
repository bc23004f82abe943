package hifi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// GetPlaylist fetches playlist metadata plus its track list. Playlists are
// keyed by UUID; an invalid id fails before any request is made.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*PlaylistLookup, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid playlist id %q: %w", id, err)
	}

	url, err := c.gw.BuildURL(fmt.Sprintf("/playlist/?id=%s", id))
	if err != nil {
		return nil, err
	}

	logger := c.logger.WithFields(log.Fields{"function": "GetPlaylist", "playlist_id": id})

	resp, err := c.gw.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.gw.EnsureNotRateLimited(resp); err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newUpstreamError(resp.Status, parseErrorEnvelope(resp.Body), false)
	}

	var root any
	if err := json.Unmarshal(resp.Body, &root); err != nil {
		return nil, &MalformedResponseError{Reason: "playlist response is not JSON"}
	}
	elements, ok := root.([]any)
	if !ok {
		elements = []any{root}
	}

	var lookup PlaylistLookup
	havePlaylist := false
	for _, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		// Some revisions wrap the playlist object under a "playlist" key.
		meta := obj
		if inner, ok := obj["playlist"].(map[string]any); ok {
			meta = inner
		}
		if !havePlaylist && isPlaylistLike(meta) {
			playlist, err := decodeAs[Playlist](meta)
			if err != nil {
				return nil, &MalformedResponseError{Reason: "undecodable playlist element: " + err.Error()}
			}
			lookup.Playlist = playlist
			havePlaylist = true
		}
		if items, ok := obj["items"].([]any); ok {
			lookup.Tracks = append(lookup.Tracks, decodeTrackItems(items)...)
		}
	}

	if !havePlaylist {
		return nil, &MalformedResponseError{Reason: "no playlist element in response"}
	}

	logger.Debugf("playlist %q: %d tracks", lookup.Playlist.Title, len(lookup.Tracks))
	return &lookup, nil
}

func isPlaylistLike(obj map[string]any) bool {
	if !primitiveValue(obj["uuid"]) || !primitiveValue(obj["title"]) {
		return false
	}
	return true
}
