// Package extension implements the host-facing plugin operations, mapping
// upstream entities into the host's media model and caching track lists
// between the host's paired load calls.
package extension

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sentry "github.com/getsentry/sentry-go"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/RunTheBot/echo-HiFi-extension/config"
	"github.com/RunTheBot/echo-HiFi-extension/hifi"
	"github.com/RunTheBot/echo-HiFi-extension/history"
	"github.com/RunTheBot/echo-HiFi-extension/models"
)

// trackListCacheSize bounds the per-instance track list cache. The host's
// usual pattern is load-metadata-then-load-tracks for one item at a time, so
// a small LRU is plenty.
const trackListCacheSize = 128

type Extension struct {
	client  *hifi.Client
	history *history.Store
	limit   int
	logger  *log.Entry

	trackLists *lru.Cache[string, []hifi.Track]

	mu          sync.Mutex
	lastQuery   string
	lastShelves []models.Shelf
}

// New builds the extension. store may be nil, in which case quick-search
// history is disabled.
func New(cfg *config.Config, transport hifi.Transport, store *history.Store) (*Extension, error) {
	cache, err := lru.New[string, []hifi.Track](trackListCacheSize)
	if err != nil {
		return nil, err
	}
	return &Extension{
		client:     hifi.NewClient(cfg, transport),
		history:    store,
		limit:      cfg.Options.SearchLimit,
		logger:     log.WithFields(log.Fields{"module": "extension"}),
		trackLists: cache,
	}, nil
}

// LoadTrack refreshes a track's metadata.
func (e *Extension) LoadTrack(ctx context.Context, id int) (models.MediaItem, error) {
	span := sentry.StartSpan(ctx, "extension.load_track")
	span.SetTag("track_id", fmt.Sprint(id))
	defer span.Finish()

	lookup, err := e.client.GetTrack(ctx, id, hifi.QualityLow)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return models.MediaItem{}, err
	}
	span.Status = sentry.SpanStatusOK
	return models.FromTrack(lookup.Track), nil
}

// LoadStreamableMedia resolves a playable URL for the requested quality.
func (e *Extension) LoadStreamableMedia(ctx context.Context, id int, quality hifi.Quality) (models.Streamable, error) {
	span := sentry.StartSpan(ctx, "extension.load_streamable_media")
	span.SetTag("track_id", fmt.Sprint(id))
	span.SetTag("quality", string(quality))
	defer span.Finish()

	url, err := e.client.GetStreamURL(ctx, id, quality)
	if err != nil {
		e.logger.Errorf("stream resolution failed for track %d: %v", id, err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return models.Streamable{}, err
	}
	span.Status = sentry.SpanStatusOK
	return models.Streamable{URL: url, Quality: quality}, nil
}

// LoadAlbum fetches album metadata and remembers its track list for the
// host's follow-up LoadAlbumTracks call.
func (e *Extension) LoadAlbum(ctx context.Context, id int) (models.MediaItem, error) {
	lookup, err := e.client.GetAlbum(ctx, id)
	if err != nil {
		sentry.CaptureException(err)
		return models.MediaItem{}, err
	}
	e.trackLists.Add(albumKey(id), lookup.Tracks)
	return models.FromAlbum(lookup.Album), nil
}

// LoadAlbumTracks returns an album's tracks, from cache when the album was
// just loaded.
func (e *Extension) LoadAlbumTracks(ctx context.Context, id int) ([]models.MediaItem, error) {
	if tracks, ok := e.trackLists.Get(albumKey(id)); ok {
		return models.FromTracks(tracks), nil
	}
	lookup, err := e.client.GetAlbum(ctx, id)
	if err != nil {
		sentry.CaptureException(err)
		return nil, err
	}
	e.trackLists.Add(albumKey(id), lookup.Tracks)
	return models.FromTracks(lookup.Tracks), nil
}

// LoadPlaylist fetches playlist metadata and remembers its track list.
func (e *Extension) LoadPlaylist(ctx context.Context, uuid string) (models.MediaItem, error) {
	lookup, err := e.client.GetPlaylist(ctx, uuid)
	if err != nil {
		sentry.CaptureException(err)
		return models.MediaItem{}, err
	}
	e.trackLists.Add(playlistKey(uuid), lookup.Tracks)
	return models.FromPlaylist(lookup.Playlist), nil
}

// LoadPlaylistTracks returns a playlist's tracks, cached when possible.
func (e *Extension) LoadPlaylistTracks(ctx context.Context, uuid string) ([]models.MediaItem, error) {
	if tracks, ok := e.trackLists.Get(playlistKey(uuid)); ok {
		return models.FromTracks(tracks), nil
	}
	lookup, err := e.client.GetPlaylist(ctx, uuid)
	if err != nil {
		sentry.CaptureException(err)
		return nil, err
	}
	e.trackLists.Add(playlistKey(uuid), lookup.Tracks)
	return models.FromTracks(lookup.Tracks), nil
}

// LoadArtist fetches an artist's record and caches the discography's top
// tracks for LoadArtistFeed.
func (e *Extension) LoadArtist(ctx context.Context, id int) (models.MediaItem, error) {
	disco, err := e.client.GetArtist(ctx, id)
	if err != nil {
		sentry.CaptureException(err)
		return models.MediaItem{}, err
	}
	e.trackLists.Add(artistKey(id), disco.Tracks)
	return models.FromArtist(disco.Artist), nil
}

// LoadArtistFeed builds the artist page shelves: albums first, then the most
// popular tracks.
func (e *Extension) LoadArtistFeed(ctx context.Context, id int) ([]models.Shelf, error) {
	span := sentry.StartSpan(ctx, "extension.load_artist_feed")
	span.SetTag("artist_id", fmt.Sprint(id))
	defer span.Finish()

	disco, err := e.client.GetArtist(ctx, id)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	e.trackLists.Add(artistKey(id), disco.Tracks)

	var shelves []models.Shelf
	if len(disco.Albums) > 0 {
		albums := make([]models.MediaItem, 0, len(disco.Albums))
		for _, a := range disco.Albums {
			albums = append(albums, models.FromAlbum(a))
		}
		shelves = append(shelves, models.Shelf{Title: "Albums", Items: albums})
	}
	if len(disco.Tracks) > 0 {
		shelves = append(shelves, models.Shelf{Title: "Top Tracks", Items: models.FromTracks(disco.Tracks)})
	}
	span.Status = sentry.SpanStatusOK
	return shelves, nil
}

// LoadSearchFeed runs the combined search and assembles shelves from
// whatever subset of types succeeded. The last result is memoized so the
// host's immediate re-request of the "All" tab doesn't hit the upstream
// again.
func (e *Extension) LoadSearchFeed(ctx context.Context, query string) ([]models.Shelf, error) {
	e.mu.Lock()
	if query != "" && query == e.lastQuery {
		shelves := e.lastShelves
		e.mu.Unlock()
		return shelves, nil
	}
	e.mu.Unlock()

	span := sentry.StartSpan(ctx, "extension.load_search_feed")
	span.SetTag("query", query)
	defer span.Finish()

	results := e.client.SearchAll(ctx, query, e.limit)

	var shelves []models.Shelf
	if results.Tracks != nil && len(results.Tracks.Items) > 0 {
		shelves = append(shelves, models.Shelf{Title: "Tracks", Items: models.FromTracks(results.Tracks.Items)})
	}
	if results.Artists != nil && len(results.Artists.Items) > 0 {
		items := make([]models.MediaItem, 0, len(results.Artists.Items))
		for _, a := range results.Artists.Items {
			items = append(items, models.FromArtist(a))
		}
		shelves = append(shelves, models.Shelf{Title: "Artists", Items: items})
	}
	if results.Albums != nil && len(results.Albums.Items) > 0 {
		items := make([]models.MediaItem, 0, len(results.Albums.Items))
		for _, a := range results.Albums.Items {
			items = append(items, models.FromAlbum(a))
		}
		shelves = append(shelves, models.Shelf{Title: "Albums", Items: items})
	}
	if results.Playlists != nil && len(results.Playlists.Items) > 0 {
		items := make([]models.MediaItem, 0, len(results.Playlists.Items))
		for _, p := range results.Playlists.Items {
			items = append(items, models.FromPlaylist(p))
		}
		shelves = append(shelves, models.Shelf{Title: "Playlists", Items: items})
	}

	e.mu.Lock()
	e.lastQuery = query
	e.lastShelves = shelves
	e.mu.Unlock()

	if e.history != nil {
		if err := e.history.Record(query); err != nil {
			e.logger.Warnf("failed to record search history: %v", err)
		}
	}

	span.Status = sentry.SpanStatusOK
	return shelves, nil
}

// QuickSearch returns recent queries, optionally narrowed by prefix.
func (e *Extension) QuickSearch(query string) ([]string, error) {
	if e.history == nil {
		return nil, nil
	}
	records, err := e.history.Recent(10)
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(records))
	for _, r := range records {
		if query != "" && !strings.HasPrefix(strings.ToLower(r.Query), strings.ToLower(query)) {
			continue
		}
		queries = append(queries, r.Query)
	}
	return queries, nil
}

// DeleteQuickSearch forgets one remembered query, or everything when the
// query is blank.
func (e *Extension) DeleteQuickSearch(query string) error {
	if e.history == nil {
		return nil
	}
	if query == "" {
		return e.history.Clear()
	}
	return e.history.Delete(query)
}

func albumKey(id int) string { return fmt.Sprintf("album:%d", id) }

func playlistKey(id string) string { return "playlist:" + id }

func artistKey(id int) string { return fmt.Sprintf("artist:%d", id) }
