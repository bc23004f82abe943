package hifi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTrackSingularListInvariant(t *testing.T) {
	main := Artist{ID: 1, Name: "Main"}
	feat := Artist{ID: 2, Name: "Feat"}

	tests := []struct {
		name  string
		input Track
	}{
		{"singular only", Track{ID: 10, Artist: &main}},
		{"list only", Track{ID: 11, Artists: []Artist{main, feat}}},
		{"both populated", Track{ID: 12, Artist: &main, Artists: []Artist{main, feat}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrack(tt.input)
			require.NotNil(t, got.Artist)
			require.NotEmpty(t, got.Artists)
			assert.Equal(t, got.Artists[0], *got.Artist)
		})
	}
}

func TestNormalizeTrackNoArtistData(t *testing.T) {
	got := NormalizeTrack(Track{ID: 1, Title: "instrumental"})
	assert.Nil(t, got.Artist)
	assert.Empty(t, got.Artists)
}

func TestNormalizeIdempotence(t *testing.T) {
	track := Track{
		ID:      1,
		Artist:  &Artist{ID: 5, Name: "X"},
		Album:   &Album{ID: 7, Title: "Y", Artists: []Artist{{ID: 5, Name: "X"}}},
		Artists: nil,
	}
	once := NormalizeTrack(track)
	twice := NormalizeTrack(once)
	assert.Equal(t, once, twice)

	album := Album{ID: 2, Artist: &Artist{ID: 9, Name: "Z"}}
	assert.Equal(t, NormalizeAlbum(album), NormalizeAlbum(NormalizeAlbum(album)))

	artist := Artist{ID: 3, Name: "W", Type: "MAIN"}
	assert.Equal(t, NormalizeArtist(artist), NormalizeArtist(NormalizeArtist(artist)))
}

func TestNormalizeArtistTypeMirroring(t *testing.T) {
	fromList := NormalizeArtist(Artist{ID: 1, Name: "A", ArtistTypes: []string{"COMPOSER", "PERFORMER"}})
	assert.Equal(t, "COMPOSER", fromList.Type)

	fromSingular := NormalizeArtist(Artist{ID: 2, Name: "B", Type: "MAIN"})
	assert.Equal(t, []string{"MAIN"}, fromSingular.ArtistTypes)
}

func TestFindSearchSectionDeepNesting(t *testing.T) {
	raw := `{
		"wrapper": {
			"unrelated": {"noise": true},
			"deeper": {
				"tracks": {
					"limit": 5,
					"offset": 0,
					"totalNumberOfItems": 42,
					"items": [{"id": 1}]
				}
			}
		}
	}`
	var tree any
	require.NoError(t, json.Unmarshal([]byte(raw), &tree))

	section := FindSearchSection(tree, "tracks")
	require.NotNil(t, section)

	resp := BuildSearchResponse(section)
	assert.Equal(t, 5, resp.Limit)
	assert.Equal(t, 42, resp.TotalNumberOfItems)
	assert.Len(t, resp.Items, 1)
}

func TestFindSearchSectionPrefersRequestedKey(t *testing.T) {
	raw := `{
		"albums": {"items": [{"id": "album"}]},
		"tracks": {"items": [{"id": "track"}]}
	}`
	var tree any
	require.NoError(t, json.Unmarshal([]byte(raw), &tree))

	section := FindSearchSection(tree, "tracks")
	require.NotNil(t, section)
	items := section["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "track", items[0].(map[string]any)["id"])
}

func TestFindSearchSectionCycleTerminates(t *testing.T) {
	// Decoded JSON can't be cyclic, so build the shared/cyclic tree by hand.
	shared := map[string]any{"label": "shared"}
	shared["self"] = shared
	tree := map[string]any{
		"a": shared,
		"b": shared,
		"c": map[string]any{"items": []any{1.0, 2.0}},
	}

	section := FindSearchSection(tree, "tracks")
	require.NotNil(t, section)
	assert.Len(t, section["items"], 2)
}

func TestFindSearchSectionMissing(t *testing.T) {
	var tree any
	require.NoError(t, json.Unmarshal([]byte(`{"a":{"b":[1,2,3]},"c":"x"}`), &tree))
	assert.Nil(t, FindSearchSection(tree, "tracks"))
}

func TestBuildSearchResponseDefaults(t *testing.T) {
	resp := BuildSearchResponse(map[string]any{
		"items": []any{map[string]any{}, map[string]any{}},
	})
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.Equal(t, 2, resp.TotalNumberOfItems)

	empty := BuildSearchResponse(map[string]any{"limit": "bogus"})
	assert.Equal(t, 0, resp.Offset)
	assert.Equal(t, 0, empty.Limit)
	assert.Empty(t, empty.Items)
}
