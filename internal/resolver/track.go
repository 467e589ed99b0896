package resolver

import "time"

// SourceKind classifies where a track's metadata came from.
type SourceKind string

const (
	// KindDirect is a plain URL the transcoder can open as-is.
	KindDirect SourceKind = "direct"

	// KindYouTube is a track resolved through yt-dlp.
	KindYouTube SourceKind = "youtube"

	// KindSpotify is a Spotify item converted to a YouTube search query.
	// Its stream URL is resolved lazily, right before playback.
	KindSpotify SourceKind = "spotify"
)

// Track is the resolved metadata for one playable item.
type Track struct {
	Title     string
	Uploader  string
	Duration  time.Duration
	PageURL   string
	Thumbnail string
	Kind      SourceKind

	// StreamURL is the URL handed to the transcoder. Empty for lazily
	// resolved tracks; see SearchQuery.
	StreamURL string

	// SearchQuery re-resolves the stream URL when StreamURL is empty or has
	// expired. Always set for Spotify-derived tracks.
	SearchQuery string
}

// Resolved reports whether the track already carries a playable stream URL.
func (t Track) Resolved() bool {
	return t.StreamURL != ""
}

// CacheKey is the stable identity used by the resolution cache and the audio
// archive. Page URLs are stable across stream URL expiry.
func (t Track) CacheKey() string {
	if t.PageURL != "" {
		return t.PageURL
	}
	return t.SearchQuery
}
