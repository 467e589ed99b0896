package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// ErrNoResults is returned when a query matched nothing playable.
var ErrNoResults = errors.New("no results for query")

// YTDLP extracts playable stream URLs and metadata by running the yt-dlp
// binary with JSON output. One subprocess per extraction, never long-lived.
type YTDLP struct {
	path    string
	timeout time.Duration
}

func NewYTDLP(path string, timeout time.Duration) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YTDLP{path: path, timeout: timeout}
}

// ytdlpInfo is the subset of yt-dlp's -J output the bot cares about. A search
// or playlist query nests results under entries.
type ytdlpInfo struct {
	Type       string      `json:"_type"`
	Entries    []ytdlpInfo `json:"entries"`
	URL        string      `json:"url"`
	Title      string      `json:"title"`
	Duration   float64     `json:"duration"`
	WebpageURL string      `json:"webpage_url"`
	Uploader   string      `json:"uploader"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"thumbnails"`
}

// Extract resolves a URL or free-text search into a playable track.
func (y *YTDLP) Extract(ctx context.Context, query string) (Track, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(
		ctx,
		y.path,
		"-J",
		"--no-warnings",
		"--no-check-certificates",
		"--default-search", "auto",
		"--format", "bestaudio/best",
		"--source-address", "0.0.0.0",
		query,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Track{}, fmt.Errorf("extract %q: %w", query, ctx.Err())
		}
		return Track{}, fmt.Errorf("extract %q: %w: %s", query, err, firstLine(stderr.String()))
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return Track{}, fmt.Errorf("extract %q: decode output: %w", query, err)
	}
	if info.Type == "playlist" {
		if len(info.Entries) == 0 {
			return Track{}, fmt.Errorf("extract %q: %w", query, ErrNoResults)
		}
		info = info.Entries[0]
	}
	if info.URL == "" {
		return Track{}, fmt.Errorf("extract %q: %w", query, ErrNoResults)
	}

	track := info.toTrack()
	if track.PageURL == "" {
		track.PageURL = query
	}
	return track, nil
}

func (info ytdlpInfo) toTrack() Track {
	return Track{
		Title:     info.Title,
		Uploader:  info.Uploader,
		Duration:  time.Duration(info.Duration * float64(time.Second)),
		PageURL:   info.WebpageURL,
		Thumbnail: info.bestThumbnail(),
		Kind:      KindYouTube,
		StreamURL: info.URL,
	}
}

// bestThumbnail prefers the widest thumbnail with a known width.
func (info ytdlpInfo) bestThumbnail() string {
	candidates := make([]struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	}, 0, len(info.Thumbnails))
	for _, t := range info.Thumbnails {
		if t.Width > 0 {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return info.Thumbnail
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Width > candidates[j].Width
	})
	return candidates[0].URL
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
