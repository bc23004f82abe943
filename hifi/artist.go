package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	log "github.com/sirupsen/logrus"
)

// moduleKeys are the wrapper keys the upstream nests discography collections
// under, at inconsistent depths.
var moduleKeys = []string{"modules", "pagedList", "items", "rows", "listItems"}

const maxArtistTracks = 100

// GetArtist fetches an artist's full discography payload and recovers the
// artist record, every album and every track mentioned anywhere in its
// module tree. Falls back to the basic artist endpoint when the tree never
// names the artist outright.
func (c *Client) GetArtist(ctx context.Context, id int) (*ArtistDiscography, error) {
	url, err := c.gw.BuildURL(fmt.Sprintf("/artist/?f=%d", id))
	if err != nil {
		return nil, err
	}

	logger := c.logger.WithFields(log.Fields{"function": "GetArtist", "artist_id": id})

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
		return nil, &MalformedResponseError{Reason: "discography response is not JSON"}
	}

	// The payload is sometimes an array of page objects, sometimes a lone
	// object; normalize to array-of-one.
	elements, ok := root.([]any)
	if !ok {
		elements = []any{root}
	}

	scan := newDiscographyScan()
	for _, el := range elements {
		scan.scanValue(el)
	}

	artist, ok := scan.resolveArtist()
	if !ok {
		logger.Debug("no artist record in discography tree, trying basic endpoint")
		artist, err = c.fetchBasicArtist(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	artist = NormalizeArtist(artist)

	disco := scan.assemble(artist)
	logger.Debugf("discography for %q: %d albums, %d tracks", artist.Name, len(disco.Albums), len(disco.Tracks))
	return disco, nil
}

// fetchBasicArtist hits the basic artist endpoint variant and decodes
// whatever object comes back, bare or array-wrapped.
func (c *Client) fetchBasicArtist(ctx context.Context, id int) (Artist, error) {
	url, err := c.gw.BuildURL(fmt.Sprintf("/artist/?id=%d", id))
	if err != nil {
		return Artist{}, err
	}
	resp, err := c.gw.Fetch(ctx, url)
	if err != nil {
		return Artist{}, err
	}
	if err := c.gw.EnsureNotRateLimited(resp); err != nil {
		return Artist{}, err
	}
	if !resp.OK() {
		return Artist{}, &ArtistNotFoundError{ArtistID: id}
	}

	var root any
	if err := json.Unmarshal(resp.Body, &root); err != nil {
		return Artist{}, &ArtistNotFoundError{ArtistID: id}
	}
	if arr, ok := root.([]any); ok && len(arr) > 0 {
		root = arr[0]
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return Artist{}, &ArtistNotFoundError{ArtistID: id}
	}
	artist, err := decodeAs[Artist](obj)
	if err != nil || artist.ID == 0 {
		return Artist{}, &ArtistNotFoundError{ArtistID: id}
	}
	return artist, nil
}

// discographyScan accumulates artist/album/track records discovered at
// arbitrary nesting depth, deduplicating by id and keeping insertion order
// for deterministic fallback resolution.
type discographyScan struct {
	visited map[uintptr]struct{}

	artist     *Artist
	albums     map[int]*Album
	albumOrder []int
	tracks     map[int]*Track
	trackOrder []int
}

func newDiscographyScan() *discographyScan {
	return &discographyScan{
		visited: make(map[uintptr]struct{}),
		albums:  make(map[int]*Album),
		tracks:  make(map[int]*Track),
	}
}

// primitiveValue reports whether a decoded JSON value is a scalar.
func primitiveValue(v any) bool {
	switch v.(type) {
	case string, float64, bool:
		return true
	}
	return false
}

func isTrackLike(obj map[string]any) bool {
	if !primitiveValue(obj["id"]) || !primitiveValue(obj["title"]) || !primitiveValue(obj["duration"]) {
		return false
	}
	if _, ok := obj["trackNumber"]; !ok {
		return false
	}
	return obj["album"] != nil
}

func isAlbumLike(obj map[string]any) bool {
	if !primitiveValue(obj["id"]) || !primitiveValue(obj["title"]) {
		return false
	}
	_, ok := obj["cover"]
	return ok
}

func isArtistLike(obj map[string]any) bool {
	if !primitiveValue(obj["id"]) || !primitiveValue(obj["name"]) || !primitiveValue(obj["type"]) {
		return false
	}
	for _, key := range []string{"artistRoles", "artistTypes", "url"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func (s *discographyScan) mark(node any) bool {
	v := reflect.ValueOf(node)
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return false
		}
		ptr := v.Pointer()
		if _, seen := s.visited[ptr]; seen {
			return true
		}
		s.visited[ptr] = struct{}{}
	}
	return false
}

func (s *discographyScan) scanValue(node any) {
	switch n := node.(type) {
	case []any:
		if s.mark(n) {
			return
		}
		// An array holding any track-like element is assumed to be an
		// exhaustive track collection; record those and stop descending.
		hasTracks := false
		for _, el := range n {
			if obj, ok := el.(map[string]any); ok && isTrackLike(obj) {
				hasTracks = true
				break
			}
		}
		if hasTracks {
			for _, el := range n {
				if obj, ok := el.(map[string]any); ok && isTrackLike(obj) {
					s.recordTrackObj(obj)
				}
			}
			return
		}
		for _, el := range n {
			s.scanValue(el)
		}
	case map[string]any:
		if s.mark(n) {
			return
		}
		if isArtistLike(n) {
			s.recordArtistObj(n)
		}

		handled := make(map[string]bool, len(moduleKeys))
		for _, key := range moduleKeys {
			val, ok := n[key]
			if !ok {
				continue
			}
			if key == "pagedList" {
				if paged, ok := val.(map[string]any); ok {
					if items, ok := paged["items"].([]any); ok {
						handled[key] = true
						s.scanModuleItems(items)
					}
				}
				continue
			}
			if items, ok := val.([]any); ok {
				handled[key] = true
				s.scanModuleItems(items)
			}
		}

		// Fallback sweep catches collections not under a known wrapper key.
		for k, val := range n {
			if handled[k] {
				continue
			}
			s.scanValue(val)
		}
	}
}

// scanModuleItems classifies each entry of a located collection, unwrapping
// the upstream's {"item": ..., "type": ...} envelope when present.
func (s *discographyScan) scanModuleItems(entries []any) {
	if s.mark(entries) {
		return
	}
	for _, entry := range entries {
		value := entry
		if obj, ok := entry.(map[string]any); ok {
			if inner, ok := obj["item"]; ok {
				value = inner
			}
		}
		obj, ok := value.(map[string]any)
		if !ok {
			s.scanValue(value)
			continue
		}
		switch {
		case isAlbumLike(obj):
			s.recordAlbumObj(obj)
		case isTrackLike(obj):
			s.recordTrackObj(obj)
		default:
			s.scanValue(obj)
		}
	}
}

// recordArtistObj installs an artist candidate: first sighting wins the slot,
// later sightings with the same id overwrite it with fresher data.
func (s *discographyScan) recordArtistObj(obj map[string]any) {
	artist, err := decodeAs[Artist](obj)
	if err != nil || artist.ID == 0 {
		return
	}
	if s.artist == nil || s.artist.ID == artist.ID {
		s.artist = &artist
	}
}

func (s *discographyScan) recordAlbumObj(obj map[string]any) {
	album, err := decodeAs[Album](obj)
	if err != nil || album.ID == 0 {
		return
	}
	s.recordAlbum(NormalizeAlbum(album))
}

func (s *discographyScan) recordAlbum(album Album) {
	if _, dup := s.albums[album.ID]; !dup {
		a := album
		s.albums[album.ID] = &a
		s.albumOrder = append(s.albumOrder, album.ID)
	}
	if s.artist == nil && album.Artist != nil {
		artist := *album.Artist
		s.artist = &artist
	}
}

// recordTrackObj keeps a track only when it carries an album reference; the
// album joins the dedup map and the track is rewired to the canonical copy.
func (s *discographyScan) recordTrackObj(obj map[string]any) {
	track, err := decodeAs[Track](obj)
	if err != nil || track.ID == 0 || track.Album == nil {
		return
	}
	track = NormalizeTrack(track)

	s.recordAlbum(*track.Album)
	track.Album = s.albums[track.Album.ID]

	if _, dup := s.tracks[track.ID]; !dup {
		t := track
		s.tracks[track.ID] = &t
		s.trackOrder = append(s.trackOrder, track.ID)
	}

	if s.artist == nil && track.Artist != nil {
		artist := *track.Artist
		s.artist = &artist
	}
}

// resolveArtist applies the fallback chain: a directly sighted artist, then
// the first track's artist, then the first album's. The basic-endpoint fetch
// is the caller's last resort.
func (s *discographyScan) resolveArtist() (Artist, bool) {
	if s.artist != nil {
		return *s.artist, true
	}
	for _, id := range s.trackOrder {
		t := s.tracks[id]
		if t.Artist != nil {
			return *t.Artist, true
		}
		if len(t.Artists) > 0 {
			return t.Artists[0], true
		}
	}
	for _, id := range s.albumOrder {
		a := s.albums[id]
		if a.Artist != nil {
			return *a.Artist, true
		}
		if len(a.Artists) > 0 {
			return a.Artists[0], true
		}
	}
	return Artist{}, false
}

// assemble stamps the resolved artist onto artist-less records, reconciles
// track album references against the canonical map and applies the final
// ordering.
func (s *discographyScan) assemble(artist Artist) *ArtistDiscography {
	albums := make([]Album, 0, len(s.albumOrder))
	for _, id := range s.albumOrder {
		album := *s.albums[id]
		if album.Artist == nil {
			a := artist
			album.Artist = &a
			if len(album.Artists) == 0 {
				album.Artists = []Artist{artist}
			}
		}
		albums = append(albums, album)
	}

	sort.SliceStable(albums, func(i, j int) bool {
		ti, oki := albums[i].ReleaseTime()
		tj, okj := albums[j].ReleaseTime()
		if oki != okj {
			return oki // dated albums first
		}
		if oki && okj && !ti.Equal(tj) {
			return ti.After(tj) // most recent first
		}
		return albums[i].Popularity > albums[j].Popularity
	})

	tracks := make([]Track, 0, len(s.trackOrder))
	for _, id := range s.trackOrder {
		track := *s.tracks[id]
		if track.Artist == nil {
			a := artist
			track.Artist = &a
			if len(track.Artists) == 0 {
				track.Artists = []Artist{artist}
			}
		}
		if track.Album != nil {
			if canonical, ok := s.albums[track.Album.ID]; ok {
				album := *canonical
				track.Album = &album
			}
		}
		tracks = append(tracks, track)
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Popularity > tracks[j].Popularity
	})
	if len(tracks) > maxArtistTracks {
		tracks = tracks[:maxArtistTracks]
	}

	return &ArtistDiscography{
		Artist: artist,
		Albums: albums,
		Tracks: tracks,
	}
}
