package webapi

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

const canonicalBaseURL = "https://open.spotify.com"

// Track is a normalized catalog track.
type Track struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Artists     []string      `json:"artists"`      // never empty
	Album       string        `json:"album"`
	Duration    time.Duration `json:"duration_ns"`
	Explicit    bool          `json:"explicit"`
	TrackNumber int           `json:"track_number"`
	URL         string        `json:"url"`          // canonical web URL
	URI         string        `json:"uri"`
	Thumbnail   string        `json:"thumbnail"`    // first image URL, empty if none
}

// SearchHit is the flattened shape returned by Search and
// GetRecommendations.
type SearchHit struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`      // artist names joined with ", "
	Duration  time.Duration `json:"duration_ns"`
	URL       string        `json:"url"`
	Thumbnail string        `json:"thumbnail"`   // empty if none
}

// Playlist is a playlist with every track that could be fetched.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Owner       string  `json:"owner"`
	URL         string  `json:"url"`
	Thumbnail   string  `json:"thumbnail"`
	Total       int     `json:"total"`       // track count reported upstream, before filtering
	Tracks      []Track `json:"tracks"`
}

// Album is an album with its tracks. Tracks carry the album's artwork.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	Label       string   `json:"label"`
	URL         string   `json:"url"`
	Thumbnail   string   `json:"thumbnail"`
	Total       int      `json:"total"`
	Tracks      []Track  `json:"tracks"`
}

// Raw upstream payloads. Only fields this package reads are declared.

type rawImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type rawArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rawAlbumRef struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Images []rawImage `json:"images"`
}

type rawTrack struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []rawArtist       `json:"artists"`
	Album        *rawAlbumRef      `json:"album"`
	DurationMs   int               `json:"duration_ms"`
	Explicit     bool              `json:"explicit"`
	TrackNumber  int               `json:"track_number"`
	URI          string            `json:"uri"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// rawPage is one page of a cursor-paginated collection.
type rawPage[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
	Total int    `json:"total"`
}

// rawPlaylistItem wraps playlist entries; track is null for removed items.
type rawPlaylistItem struct {
	Track *rawTrack `json:"track"`
}

type rawPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Images       []rawImage               `json:"images"`
	ExternalURLs map[string]string        `json:"external_urls"`
	Tracks       rawPage[rawPlaylistItem] `json:"tracks"`
}

type rawAlbum struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []rawArtist       `json:"artists"`
	Images       []rawImage        `json:"images"`
	ReleaseDate  string            `json:"release_date"`
	Label        string            `json:"label"`
	ExternalURLs map[string]string `json:"external_urls"`
	Tracks       rawPage[rawTrack] `json:"tracks"`
}

type rawSearch struct {
	Tracks *rawPage[rawTrack] `json:"tracks"`
}

type rawRecommendations struct {
	Tracks []rawTrack `json:"tracks"`
}

// artistNames returns the non-empty artist names.
func artistNames(artists []rawArtist) []string {
	return lo.FilterMap(artists, func(a rawArtist, _ int) (string, bool) {
		name := strings.TrimSpace(a.Name)
		return name, name != ""
	})
}

// valid reports whether the track can be surfaced. Upstream returns
// placeholders without a name or artists for items unavailable in the
// requested market.
func (r rawTrack) valid() bool {
	return strings.TrimSpace(r.Name) != "" && len(artistNames(r.Artists)) > 0
}

// toTrack shapes a raw track. albumImages is used when the payload carries
// no album of its own, as with album track listings.
func (r rawTrack) toTrack(albumImages []rawImage) Track {
	t := Track{
		ID:          r.ID,
		Name:        strings.TrimSpace(r.Name),
		Artists:     artistNames(r.Artists),
		Duration:    time.Duration(r.DurationMs) * time.Millisecond,
		Explicit:    r.Explicit,
		TrackNumber: r.TrackNumber,
		URI:         r.URI,
		URL:         canonicalURL(r.ExternalURLs, "track", r.ID),
	}

	images := albumImages
	if r.Album != nil {
		t.Album = r.Album.Name
		if len(r.Album.Images) > 0 {
			images = r.Album.Images
		}
	}
	t.Thumbnail = firstImage(images)
	return t
}

func (t Track) hit() SearchHit {
	return SearchHit{
		ID:        t.ID,
		Title:     t.Name,
		Artist:    strings.Join(t.Artists, ", "),
		Duration:  t.Duration,
		URL:       t.URL,
		Thumbnail: t.Thumbnail,
	}
}

// shapeTracks drops invalid entries and shapes the rest, keeping order.
func shapeTracks(raws []rawTrack, albumImages []rawImage) []Track {
	return lo.FilterMap(raws, func(r rawTrack, _ int) (Track, bool) {
		if !r.valid() {
			return Track{}, false
		}
		return r.toTrack(albumImages), true
	})
}

func hits(tracks []Track) []SearchHit {
	return lo.Map(tracks, func(t Track, _ int) SearchHit {
		return t.hit()
	})
}

func firstImage(images []rawImage) string {
	for _, img := range images {
		if img.URL != "" {
			return img.URL
		}
	}
	return ""
}

func canonicalURL(external map[string]string, kind, id string) string {
	if u := external["spotify"]; u != "" {
		return u
	}
	if id == "" {
		return ""
	}
	return canonicalBaseURL + "/" + kind + "/" + id
}
