package hifi

import (
	"time"
)

// Quality is the audio quality tier the upstream proxy understands. The
// ordered tiers are LOW < HIGH < LOSSLESS < HI_RES_LOSSLESS; DOLBY_ATMOS is
// exclusive and only valid for the dash endpoint.
type Quality string

const (
	QualityLow           Quality = "LOW"
	QualityHigh          Quality = "HIGH"
	QualityLossless      Quality = "LOSSLESS"
	QualityHiResLossless Quality = "HI_RES_LOSSLESS"
	QualityDolbyAtmos    Quality = "DOLBY_ATMOS"
)

// Artist represents an upstream artist. Type is the singular role
// (e.g. MAIN, FEATURED) mirrored against ArtistTypes by NormalizeArtist.
type Artist struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Picture     string   `json:"picture,omitempty"`
	URL         string   `json:"url,omitempty"`
	ArtistTypes []string `json:"artistTypes,omitempty"`
}

// Album represents an upstream album. ReleaseDate stays the raw ISO string;
// ReleaseTime parses it on demand.
type Album struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Cover          string   `json:"cover,omitempty"`
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	Duration       int      `json:"duration,omitempty"`
	NumberOfTracks int      `json:"numberOfTracks,omitempty"`
	Explicit       bool     `json:"explicit,omitempty"`
	Popularity     int      `json:"popularity,omitempty"`
	Artist         *Artist  `json:"artist,omitempty"`
	Artists        []Artist `json:"artists,omitempty"`
}

// ReleaseTime parses the ISO release date. ok is false for absent or
// unparsable dates; such albums sort after every dated album.
func (a *Album) ReleaseTime() (t time.Time, ok bool) {
	if a.ReleaseDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", a.ReleaseDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Track represents an upstream track. Artist is the primary artist; after
// NormalizeTrack it is mutually consistent with Artists.
type Track struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Duration     int      `json:"duration"`
	ISRC         string   `json:"isrc,omitempty"`
	Explicit     bool     `json:"explicit,omitempty"`
	TrackNumber  int      `json:"trackNumber,omitempty"`
	VolumeNumber int      `json:"volumeNumber,omitempty"`
	Popularity   int      `json:"popularity,omitempty"`
	AudioQuality string   `json:"audioQuality,omitempty"`
	Artist       *Artist  `json:"artist,omitempty"`
	Artists      []Artist `json:"artists,omitempty"`
	Album        *Album   `json:"album,omitempty"`
}

// Playlist represents an upstream playlist. Playlists are keyed by UUID, not
// by an integer id like every other entity.
type Playlist struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	SquareImage    string `json:"squareImage,omitempty"`
	Image          string `json:"image,omitempty"`
	NumberOfTracks int    `json:"numberOfTracks,omitempty"`
}

// TrackInfo is the playback descriptor half of a track lookup: quality, audio
// mode and the base64-encoded manifest the codec decodes.
type TrackInfo struct {
	TrackID          int    `json:"trackId,omitempty"`
	AudioQuality     string `json:"audioQuality,omitempty"`
	AudioMode        string `json:"audioMode,omitempty"`
	Manifest         string `json:"manifest"`
	ManifestMimeType string `json:"manifestMimeType,omitempty"`
	BitDepth         int    `json:"bitDepth,omitempty"`
	SampleRate       int    `json:"sampleRate,omitempty"`
}

// TrackLookup pairs a track's metadata with its playback descriptor for a
// single getTrack call. OriginalTrackURL, when present, is directly playable
// without touching the manifest.
type TrackLookup struct {
	Track            Track
	Info             TrackInfo
	OriginalTrackURL string
}

// Manifest kinds for DashManifest.
const (
	ManifestKindDash = "dash"
	ManifestKindFlac = "flac"
)

// DashManifest is the outcome of a dash endpoint call: either a raw DASH XML
// document or a list of direct FLAC URLs, discriminated by Kind.
type DashManifest struct {
	Kind     string
	Manifest string
	URLs     []string
}

// SearchResponse is the pagination envelope the upstream wraps search
// sections in.
type SearchResponse[T any] struct {
	Limit              int `json:"limit"`
	Offset             int `json:"offset"`
	TotalNumberOfItems int `json:"totalNumberOfItems"`
	Items              []T `json:"items"`
}

// SearchResults groups the per-type result sets of a combined search. A type
// whose search failed is left nil; sibling types are unaffected.
type SearchResults struct {
	Tracks    *SearchResponse[Track]
	Artists   *SearchResponse[Artist]
	Albums    *SearchResponse[Album]
	Playlists *SearchResponse[Playlist]
}

// ArtistDiscography is everything GetArtist recovers from the full
// discography payload: the artist of record plus every album and track found
// anywhere in the module tree.
type ArtistDiscography struct {
	Artist Artist
	Albums []Album
	Tracks []Track
}

// AlbumLookup pairs album metadata with its ordered track list.
type AlbumLookup struct {
	Album  Album
	Tracks []Track
}

// PlaylistLookup pairs playlist metadata with its track list.
type PlaylistLookup struct {
	Playlist Playlist
	Tracks   []Track
}
