package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifyURL matches open.spotify.com links (including the intl-xx variants)
// and spotify: URIs for the item kinds the bot can play.
var spotifyURL = regexp.MustCompile(
	`(?:spotify:(track|album|playlist|artist):|https?://[a-z]+\.spotify\.com/(?:intl-[a-z]+/)?(track|album|playlist|artist)/)([A-Za-z0-9]+)`,
)

// IsSpotifyURL reports whether the query points at a Spotify item.
func IsSpotifyURL(query string) bool {
	return spotifyURL.MatchString(query)
}

// parseSpotifyURL returns the item kind and ID of a Spotify link.
func parseSpotifyURL(query string) (kind, id string, ok bool) {
	m := spotifyURL.FindStringSubmatch(query)
	if m == nil {
		return "", "", false
	}
	kind = m[1]
	if kind == "" {
		kind = m[2]
	}
	return kind, m[3], true
}

// Spotify turns Spotify links into YouTube search queries. Spotify does not
// serve audio through its public API, so each track becomes an unresolved
// Track whose stream URL is found at play time.
type Spotify struct {
	client *spotify.Client
}

// NewSpotify authenticates with the client-credentials flow; the bot never
// acts on behalf of a user.
func NewSpotify(ctx context.Context, clientID, clientSecret string) (*Spotify, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotify auth: %w", err)
	}
	httpClient := spotifyauth.New().Client(ctx, token)
	return &Spotify{client: spotify.New(httpClient)}, nil
}

// Tracks expands a Spotify link into its playable tracks: one for a track
// link, every item for albums and playlists, the top tracks for an artist.
func (s *Spotify) Tracks(ctx context.Context, url string) ([]Track, error) {
	kind, id, ok := parseSpotifyURL(url)
	if !ok {
		return nil, fmt.Errorf("%w: not a spotify link", ErrNoResults)
	}

	switch kind {
	case "track":
		track, err := s.client.GetTrack(ctx, spotify.ID(id))
		if err != nil {
			return nil, fmt.Errorf("spotify track %s: %w", id, err)
		}
		return []Track{fromFullTrack(*track)}, nil

	case "album":
		return s.albumTracks(ctx, spotify.ID(id))

	case "playlist":
		return s.playlistTracks(ctx, spotify.ID(id))

	case "artist":
		tracks, err := s.client.GetArtistsTopTracks(ctx, spotify.ID(id), "US")
		if err != nil {
			return nil, fmt.Errorf("spotify artist %s: %w", id, err)
		}
		out := make([]Track, 0, len(tracks))
		for _, t := range tracks {
			out = append(out, fromFullTrack(t))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported spotify link", ErrNoResults)
}

func (s *Spotify) albumTracks(ctx context.Context, id spotify.ID) ([]Track, error) {
	album, err := s.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("spotify album %s: %w", id, err)
	}

	var out []Track
	page := &album.Tracks
	for {
		for _, t := range page.Tracks {
			out = append(out, fromSimpleTrack(t, album.SimpleAlbum))
		}
		if err := s.client.NextPage(ctx, page); err == spotify.ErrNoMorePages {
			break
		} else if err != nil {
			return nil, fmt.Errorf("spotify album %s: %w", id, err)
		}
	}
	return out, nil
}

func (s *Spotify) playlistTracks(ctx context.Context, id spotify.ID) ([]Track, error) {
	items, err := s.client.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("spotify playlist %s: %w", id, err)
	}

	var out []Track
	for {
		for _, item := range items.Items {
			if item.Track.Track == nil {
				// Episodes and removed tracks are skipped.
				continue
			}
			out = append(out, fromFullTrack(*item.Track.Track))
		}
		if err := s.client.NextPage(ctx, items); err == spotify.ErrNoMorePages {
			break
		} else if err != nil {
			return nil, fmt.Errorf("spotify playlist %s: %w", id, err)
		}
	}
	return out, nil
}

func fromFullTrack(t spotify.FullTrack) Track {
	return spotifyTrack(t.SimpleTrack, t.Album)
}

func fromSimpleTrack(t spotify.SimpleTrack, album spotify.SimpleAlbum) Track {
	return spotifyTrack(t, album)
}

func spotifyTrack(t spotify.SimpleTrack, album spotify.SimpleAlbum) Track {
	artists := artistNames(t.Artists)
	track := Track{
		Title:       fmt.Sprintf("%s - %s", t.Name, artists),
		Uploader:    artists,
		Duration:    t.TimeDuration(),
		PageURL:     t.ExternalURLs["spotify"],
		Kind:        KindSpotify,
		SearchQuery: SearchQuery(t.Name, artists),
	}
	if len(album.Images) > 0 {
		track.Thumbnail = album.Images[0].URL
	}
	return track
}

// SearchQuery is the YouTube search used to find audio for a Spotify track.
func SearchQuery(name, artists string) string {
	return fmt.Sprintf("%s %s official audio", name, artists)
}

func artistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
