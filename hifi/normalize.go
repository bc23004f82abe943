package hifi

import (
	"encoding/json"
	"reflect"
)

// NormalizeTrack reconciles the singular/plural artist fields of a track and
// of its embedded album. Pure and idempotent; applying it twice is the same
// as applying it once.
func NormalizeTrack(t Track) Track {
	t.Artist, t.Artists = reconcileArtists(t.Artist, t.Artists)
	if t.Album != nil {
		album := NormalizeAlbum(*t.Album)
		t.Album = &album
	}
	return t
}

// NormalizeAlbum reconciles the singular/plural artist fields of an album.
func NormalizeAlbum(a Album) Album {
	a.Artist, a.Artists = reconcileArtists(a.Artist, a.Artists)
	return a
}

// NormalizeArtist mirrors the singular role against the role list, the same
// first-element rule tracks use for their primary artist.
func NormalizeArtist(a Artist) Artist {
	if a.Type == "" && len(a.ArtistTypes) > 0 {
		a.Type = a.ArtistTypes[0]
	} else if a.Type != "" && len(a.ArtistTypes) == 0 {
		a.ArtistTypes = []string{a.Type}
	}
	return a
}

// reconcileArtists enforces the invariant that primary != nil iff the list is
// non-empty, with primary being the list's first element when only one side
// was populated upstream.
func reconcileArtists(primary *Artist, list []Artist) (*Artist, []Artist) {
	if primary == nil && len(list) > 0 {
		first := list[0]
		primary = &first
	} else if primary != nil && len(list) == 0 {
		list = []Artist{*primary}
	}
	return primary, list
}

// FindSearchSection walks a decoded JSON tree looking for the section that
// holds search results. Priority: an object carrying an "items" array wins
// outright; otherwise a child under the requested key is searched before the
// remaining children. A per-call identity-based visited set keeps shared or
// cyclic references from recursing forever.
func FindSearchSection(tree any, key string) map[string]any {
	w := &sectionWalker{visited: make(map[uintptr]struct{})}
	return w.find(tree, key)
}

type sectionWalker struct {
	visited map[uintptr]struct{}
}

// mark records a container node's identity, reporting true if it was already
// seen. Scalars are never marked.
func (w *sectionWalker) mark(node any) bool {
	v := reflect.ValueOf(node)
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return false
		}
		ptr := v.Pointer()
		if _, seen := w.visited[ptr]; seen {
			return true
		}
		w.visited[ptr] = struct{}{}
	}
	return false
}

func (w *sectionWalker) find(node any, key string) map[string]any {
	switch n := node.(type) {
	case map[string]any:
		if w.mark(n) {
			return nil
		}
		if _, ok := n["items"].([]any); ok {
			return n
		}
		if nested, ok := n[key]; ok {
			if found := w.find(nested, key); found != nil {
				return found
			}
		}
		for k, val := range n {
			if k == key {
				continue
			}
			if found := w.find(val, key); found != nil {
				return found
			}
		}
	case []any:
		if w.mark(n) {
			return nil
		}
		for _, elem := range n {
			if found := w.find(elem, key); found != nil {
				return found
			}
		}
	}
	return nil
}

// BuildSearchResponse reads the pagination envelope out of a located section.
// Missing or unparsable fields fall back to the item count (limit, total) or
// zero (offset).
func BuildSearchResponse(section map[string]any) SearchResponse[any] {
	items, _ := section["items"].([]any)
	resp := SearchResponse[any]{
		Items:              items,
		Limit:              intField(section, "limit", len(items)),
		Offset:             intField(section, "offset", 0),
		TotalNumberOfItems: intField(section, "totalNumberOfItems", len(items)),
	}
	return resp
}

func intField(m map[string]any, key string, fallback int) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return fallback
}

// decodeAs re-encodes a loosely-typed JSON value into a typed record. The
// round trip through json is how boundary decoding works everywhere in this
// package: sniff on the map, decode into the struct.
func decodeAs[T any](value any) (T, error) {
	var out T
	raw, err := json.Marshal(value)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
