package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"
)

// Per-entity query parameters and section names of the search endpoint.
var searchKinds = map[string]string{
	"tracks":    "s",
	"artists":   "a",
	"albums":    "al",
	"playlists": "p",
}

// searchSection issues one type-specific search and locates the named section
// in the arbitrarily nested response. No retry loop here; search calls fail
// fast.
func (c *Client) searchSection(ctx context.Context, query, section string, limit int) (map[string]any, error) {
	param, ok := searchKinds[section]
	if !ok {
		return nil, fmt.Errorf("unknown search section %q", section)
	}

	u, err := c.gw.BuildURL(fmt.Sprintf("/search/?%s=%s&li=%d", param, url.QueryEscape(query), limit))
	if err != nil {
		return nil, err
	}

	resp, err := c.gw.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := c.gw.EnsureNotRateLimited(resp); err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, newUpstreamError(resp.Status, parseErrorEnvelope(resp.Body), false)
	}

	var tree any
	if err := json.Unmarshal(resp.Body, &tree); err != nil {
		return nil, &MalformedResponseError{Reason: "search response is not JSON"}
	}

	found := FindSearchSection(tree, section)
	if found == nil {
		// No section at all means zero results, not an error.
		return map[string]any{"items": []any{}}, nil
	}
	return found, nil
}

// decodeSearchSection builds the typed pagination envelope out of a located
// section, normalizing each decodable item and skipping the rest.
func decodeSearchSection[T any](section map[string]any, normalize func(T) T) SearchResponse[T] {
	raw := BuildSearchResponse(section)
	out := SearchResponse[T]{
		Limit:              raw.Limit,
		Offset:             raw.Offset,
		TotalNumberOfItems: raw.TotalNumberOfItems,
		Items:              make([]T, 0, len(raw.Items)),
	}
	for _, item := range raw.Items {
		decoded, err := decodeAs[T](item)
		if err != nil {
			log.Tracef("skipping undecodable search item: %v", err)
			continue
		}
		out.Items = append(out.Items, normalize(decoded))
	}
	return out
}

// SearchTracks searches the track catalog.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) (*SearchResponse[Track], error) {
	section, err := c.searchSection(ctx, query, "tracks", limit)
	if err != nil {
		return nil, err
	}
	resp := decodeSearchSection(section, NormalizeTrack)
	return &resp, nil
}

// SearchArtists searches the artist catalog.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) (*SearchResponse[Artist], error) {
	section, err := c.searchSection(ctx, query, "artists", limit)
	if err != nil {
		return nil, err
	}
	resp := decodeSearchSection(section, NormalizeArtist)
	return &resp, nil
}

// SearchAlbums searches the album catalog.
func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) (*SearchResponse[Album], error) {
	section, err := c.searchSection(ctx, query, "albums", limit)
	if err != nil {
		return nil, err
	}
	resp := decodeSearchSection(section, NormalizeAlbum)
	return &resp, nil
}

// SearchPlaylists searches the playlist catalog.
func (c *Client) SearchPlaylists(ctx context.Context, query string, limit int) (*SearchResponse[Playlist], error) {
	section, err := c.searchSection(ctx, query, "playlists", limit)
	if err != nil {
		return nil, err
	}
	resp := decodeSearchSection(section, func(p Playlist) Playlist { return p })
	return &resp, nil
}

// SearchAll runs the four type-specific searches and assembles whatever
// subset succeeded. One type failing is logged and omitted; it never aborts
// the siblings.
func (c *Client) SearchAll(ctx context.Context, query string, limit int) *SearchResults {
	logger := c.logger.WithFields(log.Fields{"function": "SearchAll", "query": query})
	results := &SearchResults{}

	if tracks, err := c.SearchTracks(ctx, query, limit); err != nil {
		logger.Warnf("track search failed: %v", err)
	} else {
		results.Tracks = tracks
	}
	if artists, err := c.SearchArtists(ctx, query, limit); err != nil {
		logger.Warnf("artist search failed: %v", err)
	} else {
		results.Artists = artists
	}
	if albums, err := c.SearchAlbums(ctx, query, limit); err != nil {
		logger.Warnf("album search failed: %v", err)
	} else {
		results.Albums = albums
	}
	if playlists, err := c.SearchPlaylists(ctx, query, limit); err != nil {
		logger.Warnf("playlist search failed: %v", err)
	} else {
		results.Playlists = playlists
	}

	return results
}
