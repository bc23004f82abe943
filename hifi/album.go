package hifi

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// GetAlbum fetches album metadata plus its ordered track list. The endpoint
// answers either a bare album object or an array mixing the album with one or
// more paginated track envelopes; elements are sniffed by shape like
// everywhere else.
func (c *Client) GetAlbum(ctx context.Context, id int) (*AlbumLookup, error) {
	url, err := c.gw.BuildURL(fmt.Sprintf("/album/?id=%d", id))
	if err != nil {
		return nil, err
	}

	logger := c.logger.WithFields(log.Fields{"function": "GetAlbum", "album_id": id})

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
		return nil, &MalformedResponseError{Reason: "album response is not JSON"}
	}
	elements, ok := root.([]any)
	if !ok {
		elements = []any{root}
	}

	var lookup AlbumLookup
	haveAlbum := false
	for _, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if !haveAlbum && isAlbumLike(obj) {
			album, err := decodeAs[Album](obj)
			if err != nil {
				return nil, &MalformedResponseError{Reason: "undecodable album element: " + err.Error()}
			}
			lookup.Album = NormalizeAlbum(album)
			haveAlbum = true
			continue
		}
		if items, ok := obj["items"].([]any); ok {
			lookup.Tracks = append(lookup.Tracks, decodeTrackItems(items)...)
		}
	}

	if !haveAlbum {
		return nil, &MalformedResponseError{Reason: "no album element in response"}
	}

	// Track elements inside an album envelope often omit their album.
	for i := range lookup.Tracks {
		if lookup.Tracks[i].Album == nil {
			album := lookup.Album
			lookup.Tracks[i].Album = &album
		}
	}

	logger.Debugf("album %q: %d tracks", lookup.Album.Title, len(lookup.Tracks))
	return &lookup, nil
}

// decodeTrackItems decodes a track envelope's entries, unwrapping the
// {"item": ...} wrapper when present and skipping anything undecodable.
func decodeTrackItems(items []any) []Track {
	tracks := make([]Track, 0, len(items))
	for _, entry := range items {
		value := entry
		if obj, ok := entry.(map[string]any); ok {
			if inner, ok := obj["item"]; ok {
				value = inner
			}
		}
		obj, ok := value.(map[string]any)
		if !ok {
			continue
		}
		track, err := decodeAs[Track](obj)
		if err != nil || track.ID == 0 {
			log.Tracef("skipping undecodable track item: %v", err)
			continue
		}
		tracks = append(tracks, NormalizeTrack(track))
	}
	return tracks
}
