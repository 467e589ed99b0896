package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gaanbot/gaanbot/internal/metrics"
	"github.com/gaanbot/gaanbot/internal/playback"
	"github.com/gaanbot/gaanbot/internal/presenters"
	"github.com/gaanbot/gaanbot/internal/transcode"
	"github.com/gaanbot/gaanbot/internal/voice"
)

// guildSession holds per-guild state that lives outside the controller: the
// voice connection frames are written to, the text channel announcements go
// to, and the idle timer that tears the session down after the queue drains.
type guildSession struct {
	bot     *Bot
	guildID string

	mu          sync.Mutex
	discord     *discordgo.Session
	vc          *discordgo.VoiceConnection
	sink        *voice.ConnectionSink
	channelID   string
	textChannel string
	volumePct   int
	idleTimeout time.Duration
	idleTimer   *time.Timer
}

var (
	_ playback.Sink     = (*guildSession)(nil)
	_ playback.Notifier = (*guildSession)(nil)
)

// Write forwards a frame to the current voice connection. Frames produced
// between a disconnect and the next join are dropped as a pipe failure.
func (g *guildSession) Write(ctx context.Context, frame transcode.Frame) error {
	g.mu.Lock()
	sink := g.sink
	g.mu.Unlock()
	if sink == nil {
		return voice.ErrVoiceConnClosed
	}
	return sink.Write(ctx, frame)
}

func (g *guildSession) TrackStarted(sessionID string, req playback.PlayRequest) {
	metrics.TracksPlayed.Inc()
	g.bot.historyFor(g.guildID).Record(req)
	g.stopIdleTimer()
	g.announce(presenters.NowPlayingEmbed(&playback.Status{
		State:   playback.StatePlaying,
		Request: req,
	}))
}

func (g *guildSession) TrackFailed(sessionID string, req playback.PlayRequest, err error) {
	metrics.PlaybackErrors.WithLabelValues(failureReason(err)).Inc()
	g.announce(presenters.ErrorEmbed(
		fmt.Sprintf("Skipping **%s**: %s", req.Track.Title, userMessage(err)),
	))
}

func (g *guildSession) QueueDrained(sessionID string) {
	g.startIdleTimer()
}

func (g *guildSession) defaultVolume() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.volumePct
}

func (g *guildSession) announce(embed *discordgo.MessageEmbed) {
	g.mu.Lock()
	s := g.discord
	channelID := g.textChannel
	g.mu.Unlock()
	if s == nil || channelID == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		slog.Error("Failed to send announcement", "guildID", g.guildID, "error", err)
	}
}

// startIdleTimer arms the disconnect timer. A track starting before it fires
// disarms it.
func (g *guildSession) startIdleTimer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idleTimer != nil {
		g.idleTimer.Stop()
	}
	timeout := g.idleTimeout
	if timeout <= 0 {
		return
	}
	g.idleTimer = time.AfterFunc(timeout, func() {
		slog.Info("Session idle, leaving voice", "guildID", g.guildID, "after", timeout)
		g.bot.endSession(g.guildID)
	})
}

func (g *guildSession) stopIdleTimer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idleTimer != nil {
		g.idleTimer.Stop()
		g.idleTimer = nil
	}
}

func (g *guildSession) disconnect() {
	g.stopIdleTimer()
	g.mu.Lock()
	vc := g.vc
	g.vc = nil
	g.sink = nil
	g.channelID = ""
	g.mu.Unlock()
	if vc != nil {
		voice.Leave(vc)
	}
}
