// Package presenters builds the Discord-facing representations of playback
// state: embeds, progress bars, and plain responses.
package presenters

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gaanbot/gaanbot/internal/cache"
	"github.com/gaanbot/gaanbot/internal/playback"
)

const (
	colorPlaying = 0x1db954
	colorPaused  = 0xfee75c
	colorError   = 0xed4245
	colorNeutral = 0x5865f2
)

// FormatDuration renders mm:ss, or h:mm:ss past the hour.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

const progressBarWidth = 15

// ProgressBar renders the position inside the track, with a play or pause
// marker matching the session state.
func ProgressBar(elapsed, duration time.Duration, paused bool) string {
	progress := 0.0
	if duration > 0 {
		progress = min(float64(elapsed)/float64(duration), 1.0)
	}
	filled := int(progressBarWidth * progress)

	marker := "▶️"
	if paused {
		marker = "⏸️"
	}

	var bar strings.Builder
	bar.WriteString(strings.Repeat("▬", filled))
	bar.WriteString("🔘")
	bar.WriteString(strings.Repeat("▬", progressBarWidth-filled))

	return fmt.Sprintf("%s %s `%s / %s`", marker, bar.String(), FormatDuration(elapsed), FormatDuration(duration))
}

// NowPlayingEmbed renders the active track with its progress bar.
func NowPlayingEmbed(status *playback.Status) *discordgo.MessageEmbed {
	track := status.Request.Track
	color := colorPlaying
	if status.State == playback.StatePaused {
		color = colorPaused
	}

	embed := &discordgo.MessageEmbed{
		Title:       track.Title,
		URL:         track.PageURL,
		Description: ProgressBar(status.Elapsed, track.Duration, status.State == playback.StatePaused),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uploader", Value: orUnknown(track.Uploader), Inline: true},
			{Name: "Requested by", Value: mention(status.Request.RequesterID), Inline: true},
		},
	}
	if track.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail}
	}
	return embed
}

// TrackQueuedEmbed confirms an enqueue with the track's queue position.
func TrackQueuedEmbed(req playback.PlayRequest, position int) *discordgo.MessageEmbed {
	track := req.Track
	embed := &discordgo.MessageEmbed{
		Title:       track.Title,
		URL:         track.PageURL,
		Description: fmt.Sprintf("Queued at position **%d**", position),
		Color:       colorNeutral,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: FormatDuration(track.Duration), Inline: true},
			{Name: "Requested by", Value: mention(req.RequesterID), Inline: true},
		},
	}
	if track.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.Thumbnail}
	}
	return embed
}

// TracksQueuedEmbed confirms a multi-track enqueue (album or playlist).
func TracksQueuedEmbed(count int, source string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Tracks queued",
		Description: fmt.Sprintf("Added **%d** tracks from %s", count, source),
		Color:       colorNeutral,
	}
}

// QueueEmbed renders one page of the queue.
func QueueEmbed(page []playback.PlayRequest, pageNumber, totalPages, totalTracks int, now *playback.Status) *discordgo.MessageEmbed {
	var body strings.Builder
	if now != nil {
		fmt.Fprintf(&body, "**Now playing:** [%s](%s)\n\n", now.Request.Track.Title, now.Request.Track.PageURL)
	}
	if len(page) == 0 {
		body.WriteString("The queue is empty.")
	}
	start := (pageNumber - 1) * queuePageSize
	for i, req := range page {
		fmt.Fprintf(
			&body,
			"`%d.` [%s](%s) `%s`\n",
			start+i+1,
			req.Track.Title,
			req.Track.PageURL,
			FormatDuration(req.Track.Duration),
		)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: body.String(),
		Color:       colorNeutral,
	}
	if totalPages > 1 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d of %d (%d tracks)", pageNumber, totalPages, totalTracks),
		}
	}
	return embed
}

// queuePageSize is the number of tracks per queue page.
const queuePageSize = 10

// QueuePageSize exposes the page size to the command layer.
func QueuePageSize() int { return queuePageSize }

// BotStats is the data behind the stats embed.
type BotStats struct {
	Uptime         time.Duration
	Guilds         int
	ActiveSessions int
	TrackCache     cache.Stats
	LinkCache      cache.Stats
}

func StatsEmbed(stats BotStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Stats",
		Color: colorNeutral,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: FormatDuration(stats.Uptime), Inline: true},
			{Name: "Guilds", Value: fmt.Sprintf("%d", stats.Guilds), Inline: true},
			{Name: "Active sessions", Value: fmt.Sprintf("%d", stats.ActiveSessions), Inline: true},
			{Name: "Track cache", Value: cacheLine(stats.TrackCache), Inline: false},
			{Name: "Link cache", Value: cacheLine(stats.LinkCache), Inline: false},
		},
	}
}

func cacheLine(stats cache.Stats) string {
	return fmt.Sprintf(
		"%d hits / %d misses (%.0f%% hit rate), %d entries",
		stats.Hits,
		stats.Misses,
		stats.HitRate()*100,
		stats.Size,
	)
}

// HistoryEmbed renders recently played tracks, newest first.
func HistoryEmbed(entries []playback.PlayRequest) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Recently Played",
		Description: fmt.Sprintf("The last %d tracks played in this server", len(entries)),
		Color:       colorNeutral,
	}
	for i, entry := range entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%d. %s", i+1, entry.Track.Title),
			Value: fmt.Sprintf(
				"**Uploader:** %s\n**Duration:** %s\n**Requested by:** %s",
				orUnknown(entry.Track.Uploader),
				FormatDuration(entry.Track.Duration),
				mention(entry.RequesterID),
			),
		})
	}
	if len(entries) > 0 && entries[0].Track.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: entries[0].Track.Thumbnail}
	}
	return embed
}

// HelpEmbed renders the command list from the registered command metadata,
// so it can never drift from what Discord actually offers.
func HelpEmbed(commands []*discordgo.ApplicationCommand) *discordgo.MessageEmbed {
	var lines strings.Builder
	for _, cmd := range commands {
		lines.WriteString("`/" + cmd.Name)
		for _, opt := range cmd.Options {
			if opt.Required {
				fmt.Fprintf(&lines, " <%s>", opt.Name)
			} else {
				fmt.Fprintf(&lines, " [%s]", opt.Name)
			}
		}
		lines.WriteString("` " + cmd.Description + "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       "Commands",
		Description: lines.String(),
		Color:       colorNeutral,
	}
}

// ErrorEmbed renders a user-facing failure.
func ErrorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: message,
		Color:       colorError,
	}
}

// ActionEmbed renders a short confirmation, like a skip or a shuffle.
func ActionEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: message,
		Color:       colorNeutral,
	}
}

func mention(userID string) string {
	if userID == "" {
		return "unknown"
	}
	return fmt.Sprintf("<@%s>", userID)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
