package webapi

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	// DefaultRecommendationLimit is used when GetRecommendations is given a
	// non-positive limit. It is also the upstream maximum.
	DefaultRecommendationLimit = 100

	// maxSeeds is the most seed tracks upstream accepts per request.
	maxSeeds = 5
)

// Search returns tracks matching query.
//
// A structurally valid response without matches yields an empty, non-nil
// slice. A failed request yields a nil slice and a nil error. Only token and
// context errors are returned.
func (c *Client) Search(ctx context.Context, query string) ([]SearchHit, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(c.searchLimit))

	var raw rawSearch
	if err := c.getJSON(ctx, c.url("/search", q), "search results", &raw); err != nil {
		return nil, c.bestEffort(err, "search", query)
	}
	if raw.Tracks == nil {
		c.logger.Debug().Str("query", query).Msg("search response without tracks")
		return nil, nil
	}

	return hits(shapeTracks(raw.Tracks.Items, nil)), nil
}

// GetTrack returns a single track, or nil if it is missing, malformed or
// could not be fetched.
func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	var raw rawTrack
	if err := c.getJSON(ctx, c.url("/tracks/"+url.PathEscape(id), nil), "track", &raw); err != nil {
		return nil, c.bestEffort(err, "track", id)
	}
	if !raw.valid() {
		c.logger.Debug().Str("id", id).Msg("track missing name or artists")
		return nil, nil
	}

	t := raw.toTrack(nil)
	return &t, nil
}

// GetPlaylist returns a playlist with all of its pages. It returns nil when
// the playlist cannot be fetched, its first page is empty, or no valid
// tracks remain after filtering. A failure on a later page keeps the pages
// fetched so far.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var raw rawPlaylist
	if err := c.getJSON(ctx, c.url("/playlists/"+url.PathEscape(id), nil), "playlist", &raw); err != nil {
		return nil, c.bestEffort(err, "playlist", id)
	}
	if len(raw.Tracks.Items) == 0 {
		return nil, nil
	}

	items, err := paginate(ctx, c, raw.Tracks, "playlist page")
	if err != nil {
		return nil, err
	}

	// Unwrap {track: ...}; removed entries have a null track.
	raws := lo.FilterMap(items, func(it rawPlaylistItem, _ int) (rawTrack, bool) {
		if it.Track == nil {
			return rawTrack{}, false
		}
		return *it.Track, true
	})

	tracks := shapeTracks(raws, nil)
	if len(tracks) == 0 {
		return nil, nil
	}

	return &Playlist{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Owner:       lo.Ternary(raw.Owner.DisplayName != "", raw.Owner.DisplayName, raw.Owner.ID),
		URL:         canonicalURL(raw.ExternalURLs, "playlist", raw.ID),
		Thumbnail:   firstImage(raw.Images),
		Total:       raw.Tracks.Total,
		Tracks:      tracks,
	}, nil
}

// GetAlbum returns an album with all of its pages. Album track listings omit
// artwork, so every track inherits the album's images. Nil results follow
// the same rules as GetPlaylist.
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	var raw rawAlbum
	if err := c.getJSON(ctx, c.url("/albums/"+url.PathEscape(id), nil), "album", &raw); err != nil {
		return nil, c.bestEffort(err, "album", id)
	}
	if len(raw.Tracks.Items) == 0 {
		return nil, nil
	}

	items, err := paginate(ctx, c, raw.Tracks, "album page")
	if err != nil {
		return nil, err
	}

	tracks := shapeTracks(items, raw.Images)
	if len(tracks) == 0 {
		return nil, nil
	}
	for i := range tracks {
		if tracks[i].Album == "" {
			tracks[i].Album = raw.Name
		}
	}

	return &Album{
		ID:          raw.ID,
		Name:        raw.Name,
		Artists:     artistNames(raw.Artists),
		ReleaseDate: raw.ReleaseDate,
		Label:       raw.Label,
		URL:         canonicalURL(raw.ExternalURLs, "album", raw.ID),
		Thumbnail:   firstImage(raw.Images),
		Total:       raw.Tracks.Total,
		Tracks:      tracks,
	}, nil
}

// GetRecommendations returns tracks related to the seed track IDs. Only the
// first five seeds are sent. A non-positive limit means 100.
//
// In client-credentials mode it returns ErrUnsupported without making a
// request. A failed request yields a nil slice and a nil error.
func (c *Client) GetRecommendations(ctx context.Context, seedIDs []string, limit int) ([]SearchHit, error) {
	if !c.SupportsRecommendations() {
		return nil, ErrUnsupported
	}

	seeds := lo.Compact(seedIDs)
	if len(seeds) == 0 {
		return []SearchHit{}, nil
	}
	if len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}
	if limit <= 0 || limit > DefaultRecommendationLimit {
		limit = DefaultRecommendationLimit
	}

	q := url.Values{}
	q.Set("seed_tracks", strings.Join(seeds, ","))
	q.Set("limit", strconv.Itoa(limit))

	var raw rawRecommendations
	if err := c.getJSON(ctx, c.url("/recommendations", q), "recommendations", &raw); err != nil {
		return nil, c.bestEffort(err, "recommendations", strings.Join(seeds, ","))
	}

	return hits(shapeTracks(raw.Tracks, nil)), nil
}

// url builds a catalog URL, adding the market when one is configured.
func (c *Client) url(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if c.market != "" {
		q.Set("market", c.market)
	}

	u := c.endpoints.API + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// paginate follows next cursors from first, one page at a time, and returns
// every item in upstream order. A page that fails with a network or schema
// error ends pagination and the items gathered so far are returned. Token
// and context errors are returned as errors.
func paginate[T any](ctx context.Context, c *Client, first rawPage[T], what string) ([]T, error) {
	items := append([]T(nil), first.Items...)
	seen := map[string]bool{}

	for next := first.Next; next != ""; {
		if seen[next] {
			c.logger.Warn().Str("cursor", redactQuery(next)).Msg("pagination cursor repeated, stopping")
			break
		}
		seen[next] = true

		var page rawPage[T]
		if err := c.getJSON(ctx, next, what, &page); err != nil {
			if !isBestEffort(err) {
				return nil, err
			}
			c.logger.Debug().Err(err).Int("items", len(items)).Msg("pagination stopped early, keeping partial result")
			break
		}

		items = append(items, page.Items...)
		next = page.Next
	}

	return items, nil
}
