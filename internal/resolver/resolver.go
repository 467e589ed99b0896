// Package resolver turns user queries (URLs, search text, Spotify links)
// into playable tracks with stream URLs, backed by yt-dlp and the Spotify
// Web API, with TTL-cached results.
package resolver

import (
	"context"
	"fmt"

	"github.com/gaanbot/gaanbot/internal/cache"
)

// Resolver is the single entry point for query resolution.
type Resolver struct {
	ytdlp   *YTDLP
	spotify *Spotify
	tracks  cache.Cache[Track]
	links   cache.Cache[[]Track]
}

// New wires a resolver. spotify may be nil to disable Spotify links; the
// caches must not be nil.
func New(ytdlp *YTDLP, spotify *Spotify, tracks cache.Cache[Track], links cache.Cache[[]Track]) *Resolver {
	return &Resolver{
		ytdlp:   ytdlp,
		spotify: spotify,
		tracks:  tracks,
		links:   links,
	}
}

// Resolve expands a query into the tracks it names. A Spotify link may yield
// many tracks, all unresolved; anything else yields exactly one resolved
// track. Spotify link expansions are cached by URL; yt-dlp extractions by
// query.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]Track, error) {
	if IsSpotifyURL(query) {
		if r.spotify == nil {
			return nil, fmt.Errorf("%w: spotify links are not configured", ErrNoResults)
		}
		return r.links.GetOrCompute(ctx, query, func(ctx context.Context) ([]Track, error) {
			return r.spotify.Tracks(ctx, query)
		})
	}

	track, err := r.extract(ctx, query)
	if err != nil {
		return nil, err
	}
	return []Track{track}, nil
}

// ResolveStream fills in the stream URL of an unresolved track right before
// playback. Spotify-derived tracks keep their own title and artwork; only
// the stream URL and duration come from the extraction.
func (r *Resolver) ResolveStream(ctx context.Context, track Track) (Track, error) {
	if track.Resolved() {
		return track, nil
	}
	if track.SearchQuery == "" {
		return Track{}, fmt.Errorf("%w: track has no search query", ErrNoResults)
	}

	extracted, err := r.extract(ctx, track.SearchQuery)
	if err != nil {
		return Track{}, err
	}

	track.StreamURL = extracted.StreamURL
	if track.Duration == 0 {
		track.Duration = extracted.Duration
	}
	if track.Thumbnail == "" {
		track.Thumbnail = extracted.Thumbnail
	}
	return track, nil
}

func (r *Resolver) extract(ctx context.Context, query string) (Track, error) {
	return r.tracks.GetOrCompute(ctx, query, func(ctx context.Context) (Track, error) {
		return r.ytdlp.Extract(ctx, query)
	})
}

// CacheStats exposes both resolution caches for the stats surface.
func (r *Resolver) CacheStats() (tracks, links cache.Stats) {
	return r.tracks.Stats(), r.links.Stats()
}
