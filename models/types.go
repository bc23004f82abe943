package models

import (
	"strconv"

	"github.com/RunTheBot/echo-HiFi-extension/hifi"
)

// MediaKind discriminates host media items.
type MediaKind string

const (
	KindTrack    MediaKind = "track"
	KindAlbum    MediaKind = "album"
	KindArtist   MediaKind = "artist"
	KindPlaylist MediaKind = "playlist"
)

// MediaItem is the host's media-model shape this extension maps upstream
// entities into. IDs are strings host-side regardless of what the upstream
// keys entities by.
type MediaItem struct {
	Kind       MediaKind `json:"kind"`
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle,omitempty"`
	Cover      string    `json:"cover,omitempty"`
	Duration   int       `json:"duration,omitempty"`
	Explicit   bool      `json:"explicit,omitempty"`
	TrackCount int       `json:"trackCount,omitempty"`
}

// Shelf is a titled group of media items, the unit the host renders feeds
// and search results in.
type Shelf struct {
	Title string      `json:"title"`
	Items []MediaItem `json:"items"`
}

// Streamable is what the host hands to its player: a resolved URL plus the
// quality it was resolved at.
type Streamable struct {
	URL     string       `json:"url"`
	Quality hifi.Quality `json:"quality"`
}

// FromTrack maps an upstream track to a host media item.
func FromTrack(t hifi.Track) MediaItem {
	item := MediaItem{
		Kind:     KindTrack,
		ID:       strconv.Itoa(t.ID),
		Title:    t.Title,
		Duration: t.Duration,
		Explicit: t.Explicit,
	}
	if t.Artist != nil {
		item.Subtitle = t.Artist.Name
	}
	if t.Album != nil {
		item.Cover = t.Album.Cover
	}
	return item
}

// FromAlbum maps an upstream album to a host media item.
func FromAlbum(a hifi.Album) MediaItem {
	item := MediaItem{
		Kind:       KindAlbum,
		ID:         strconv.Itoa(a.ID),
		Title:      a.Title,
		Cover:      a.Cover,
		Duration:   a.Duration,
		Explicit:   a.Explicit,
		TrackCount: a.NumberOfTracks,
	}
	if a.Artist != nil {
		item.Subtitle = a.Artist.Name
	}
	return item
}

// FromArtist maps an upstream artist to a host media item.
func FromArtist(a hifi.Artist) MediaItem {
	return MediaItem{
		Kind:  KindArtist,
		ID:    strconv.Itoa(a.ID),
		Title: a.Name,
		Cover: a.Picture,
	}
}

// FromPlaylist maps an upstream playlist to a host media item.
func FromPlaylist(p hifi.Playlist) MediaItem {
	cover := p.SquareImage
	if cover == "" {
		cover = p.Image
	}
	return MediaItem{
		Kind:       KindPlaylist,
		ID:         p.UUID,
		Title:      p.Title,
		Subtitle:   p.Description,
		Cover:      cover,
		TrackCount: p.NumberOfTracks,
	}
}

// FromTracks maps a track list.
func FromTracks(tracks []hifi.Track) []MediaItem {
	items := make([]MediaItem, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, FromTrack(t))
	}
	return items
}
