package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gaanbot/gaanbot/internal/generator"
	"github.com/gaanbot/gaanbot/internal/metrics"
	"github.com/gaanbot/gaanbot/internal/playback"
	"github.com/gaanbot/gaanbot/internal/presenters"
	"github.com/gaanbot/gaanbot/internal/repository"
	"github.com/gaanbot/gaanbot/internal/resolver"
	"github.com/gaanbot/gaanbot/internal/util"
	"github.com/gaanbot/gaanbot/internal/voice"
)

// Bot ties Discord interactions to per-guild playback sessions. One Bot
// serves every guild; each guild gets its own controller and voice
// connection on demand.
type Bot struct {
	sessions *playback.Registry
	resolver *resolver.Resolver
	settings repository.SettingsRepository
	spawner  playback.Spawner
	ids      generator.Generator[string]

	queueLimit   int
	retryBackoff time.Duration
	started      time.Time

	mu        sync.Mutex
	guilds    map[string]*guildSession
	histories map[string]*playback.History
}

// historyCap mirrors the recent-track window shown by /history.
const historyCap = 20

type BotConfig struct {
	Resolver     *resolver.Resolver
	Settings     repository.SettingsRepository
	Spawner      playback.Spawner
	QueueLimit   int
	RetryBackoff time.Duration
}

func NewBot(cfg BotConfig) *Bot {
	b := &Bot{
		resolver:     cfg.Resolver,
		settings:     cfg.Settings,
		spawner:      cfg.Spawner,
		ids:          &generator.UUIDV4Generator{},
		queueLimit:   cfg.QueueLimit,
		retryBackoff: cfg.RetryBackoff,
		started:      time.Now(),
		guilds:       make(map[string]*guildSession),
		histories:    make(map[string]*playback.History),
	}
	b.sessions = playback.NewRegistry(b.newController)
	return b
}

func (b *Bot) newController(guildID string) *playback.Controller {
	g := b.guildFor(guildID)
	metrics.ActiveSessions.Inc()
	return playback.NewController(playback.ControllerConfig{
		SessionID:     guildID,
		Spawner:       b.spawner,
		Sink:          g,
		Notifier:      g,
		Resolver:      b.resolver,
		QueueLimit:    b.queueLimit,
		DefaultVolume: g.defaultVolume(),
		RetryBackoff:  b.retryBackoff,
	})
}

func (b *Bot) guildFor(guildID string) *guildSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.guilds[guildID]
	if !ok {
		g = &guildSession{bot: b, guildID: guildID}
		b.guilds[guildID] = g
	}
	return g
}

// historyFor returns the guild's recent-track history, creating it on first
// use. Histories deliberately survive endSession so /history works after an
// idle disconnect.
func (b *Bot) historyFor(guildID string) *playback.History {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.histories[guildID]
	if !ok {
		h = playback.NewHistory(historyCap)
		b.histories[guildID] = h
	}
	return h
}

// endSession tears down the controller and voice connection for a guild.
// Safe to call when neither exists.
func (b *Bot) endSession(guildID string) {
	if _, ok := b.sessions.Get(guildID); ok {
		b.sessions.Remove(guildID)
		metrics.ActiveSessions.Dec()
	}

	b.mu.Lock()
	g := b.guilds[guildID]
	delete(b.guilds, guildID)
	b.mu.Unlock()

	if g != nil {
		g.disconnect()
	}
}

// Shutdown closes every playback session and leaves every voice channel.
func (b *Bot) Shutdown() {
	closed := b.sessions.Count()
	b.sessions.Shutdown()
	metrics.ActiveSessions.Sub(float64(closed))

	b.mu.Lock()
	guilds := make([]*guildSession, 0, len(b.guilds))
	for _, g := range b.guilds {
		guilds = append(guilds, g)
	}
	b.guilds = make(map[string]*guildSession)
	b.mu.Unlock()

	for _, g := range guilds {
		g.disconnect()
	}
}

// MakeInteractionCreateHandler routes slash commands to the bot.
func MakeInteractionCreateHandler(b *Bot) InteractionCreateHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if i.GuildID == "" {
			respondEmbed(s, i, presenters.ErrorEmbed("This bot only works inside a server."))
			return
		}

		command := i.ApplicationCommandData()
		switch command.Name {
		case "play":
			b.handlePlay(s, i, command.Options)
		case "pause":
			b.handlePause(s, i)
		case "resume":
			b.handleResume(s, i)
		case "skip":
			b.handleSkip(s, i, command.Options)
		case "stop":
			b.handleStop(s, i)
		case "queue":
			b.handleQueue(s, i, command.Options)
		case "clear":
			b.handleClear(s, i)
		case "remove":
			b.handleRemove(s, i, command.Options)
		case "move":
			b.handleMove(s, i, command.Options)
		case "shuffle":
			b.handleShuffle(s, i)
		case "now":
			b.handleNowPlaying(s, i)
		case "history":
			b.handleHistory(s, i, command.Options)
		case "stats":
			b.handleStats(s, i)
		case "leave":
			b.handleLeave(s, i)
		case "help":
			respondEmbed(s, i, presenters.HelpEmbed(Commands))
		default:
			slog.Warn("Unknown command", "command", command.Name)
		}
	}
}

// MakeVoiceStateUpdateHandler ends a guild's session once the bot is alone
// in its voice channel.
func MakeVoiceStateUpdateHandler(b *Bot) VoiceStateUpdateHandler {
	return func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		b.mu.Lock()
		g, ok := b.guilds[v.GuildID]
		b.mu.Unlock()
		if !ok {
			return
		}

		g.mu.Lock()
		channelID := g.channelID
		connected := g.vc != nil
		g.mu.Unlock()
		if !connected {
			return
		}

		if voice.HumanListeners(s, v.GuildID, channelID) == 0 {
			slog.Info("Voice channel is empty, leaving", "guildID", v.GuildID)
			b.endSession(v.GuildID)
		}
	}
}

func (b *Bot) handlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) {
	opts, err := CommandToPlayRequest(options)
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}

	// Resolution can take several seconds, well past Discord's 3 second
	// interaction deadline.
	if err := deferResponse(s, i); err != nil {
		slog.Error("Failed to defer play response", "error", err)
		return
	}

	ctx := context.Background()

	if err := b.connectVoice(ctx, s, i); err != nil {
		editEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}

	start := time.Now()
	tracks, err := b.resolver.Resolve(ctx, opts.Query)
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("Failed to resolve query", "query", opts.Query, "error", err)
		editEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}

	controller := b.sessions.GetOrCreate(i.GuildID)

	var (
		lastRequest playback.PlayRequest
		lastPos     int
		queued      int
	)
	for _, track := range tracks {
		id, err := b.ids.Next()
		if err != nil {
			slog.Error("Failed to generate request ID", "error", err)
			continue
		}
		req := playback.PlayRequest{
			ID:          id,
			Track:       track,
			RequesterID: interactionUserID(i),
			EnqueuedAt:  time.Now(),
			Volume:      opts.Volume,
		}
		pos, err := controller.Enqueue(ctx, req)
		if err != nil {
			editEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
			return
		}
		lastRequest = req
		lastPos = pos
		queued++
	}

	switch queued {
	case 0:
		editEmbed(s, i, presenters.ErrorEmbed(userMessage(resolver.ErrNoResults)))
	case 1:
		editEmbed(s, i, presenters.TrackQueuedEmbed(lastRequest, lastPos))
	default:
		editEmbed(s, i, presenters.TracksQueuedEmbed(queued, opts.Query))
	}
}

// connectVoice joins the caller's voice channel, reusing the existing
// connection when the bot is already there.
func (b *Bot) connectVoice(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) error {
	channelID, err := voice.UserChannel(s, i.GuildID, interactionUserID(i))
	if err != nil {
		return err
	}

	settings, err := b.settings.Get(ctx, i.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}

	g := b.guildFor(i.GuildID)
	g.mu.Lock()
	defer g.mu.Unlock()

	g.discord = s
	g.textChannel = i.ChannelID
	g.volumePct = settings.Volume
	g.idleTimeout = settings.IdleTimeout

	if g.vc == nil || g.channelID != channelID {
		vc, err := voice.Join(s, i.GuildID, channelID)
		if err != nil {
			return err
		}
		g.vc = vc
		g.sink = voice.NewConnectionSink(vc)
		g.channelID = channelID
	}

	return nil
}

func (b *Bot) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		if err := c.Pause(context.Background()); err != nil {
			return nil, err
		}
		return presenters.ActionEmbed("Paused."), nil
	})
}

func (b *Bot) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		if err := c.Resume(context.Background()); err != nil {
			return nil, err
		}
		return presenters.ActionEmbed("Resumed."), nil
	})
}

func (b *Bot) handleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) {
	count, err := intOption(options, "count", 1)
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		if err := c.Skip(context.Background(), count); err != nil {
			return nil, err
		}
		if count == 1 {
			return presenters.ActionEmbed("Skipped."), nil
		}
		return presenters.ActionEmbed(fmt.Sprintf("Skipped %d tracks.", count)), nil
	})
}

func (b *Bot) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		if err := c.Stop(context.Background()); err != nil {
			return nil, err
		}
		return presenters.ActionEmbed("Stopped playback and cleared the queue."), nil
	})
}

func (b *Bot) handleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) {
	pageNumber, err := intOption(options, "page", 1)
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		snapshot := c.Queue().Snapshot()
		page, totalPages := util.Paginate(snapshot, pageNumber, presenters.QueuePageSize())
		now, err := c.NowPlaying(context.Background())
		if err != nil {
			return nil, err
		}
		return presenters.QueueEmbed(page, pageNumber, totalPages, len(snapshot), now), nil
	})
}

func (b *Bot) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		removed := c.Queue().Clear()
		return presenters.ActionEmbed(fmt.Sprintf("Removed %d tracks from the queue.", removed)), nil
	})
}

func (b *Bot) handleRemove(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) {
	position, err := requiredIntOption(options, "position")
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		req, err := c.Queue().RemoveAt(position)
		if err != nil {
			return nil, err
		}
		return presenters.ActionEmbed(fmt.Sprintf("Removed **%s** from the queue.", req.Track.Title)), nil
	})
}

func (b *Bot) handleMove(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) {
	move, err := CommandToMoveRequest(options)
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		if err := c.Queue().Move(move.From, move.To); err != nil {
			return nil, err
		}
		return presenters.ActionEmbed(fmt.Sprintf("Moved track %d to position %d.", move.From, move.To)), nil
	})
}

func (b *Bot) handleShuffle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		c.Queue().Shuffle()
		return presenters.ActionEmbed("Shuffled the queue."), nil
	})
}

func (b *Bot) handleNowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withController(s, i, func(c *playback.Controller) (*discordgo.MessageEmbed, error) {
		status, err := c.NowPlaying(context.Background())
		if err != nil {
			return nil, err
		}
		if status == nil {
			return nil, playback.ErrNothingPlaying
		}
		return presenters.NowPlayingEmbed(status), nil
	})
}

func (b *Bot) handleHistory(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) {
	limit, err := intOption(options, "limit", 10)
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}
	entries := b.historyFor(i.GuildID).Recent(limit)
	if len(entries) == 0 {
		respondEmbed(s, i, presenters.ErrorEmbed("No tracks have been played in this server yet."))
		return
	}
	respondEmbed(s, i, presenters.HistoryEmbed(entries))
}

func (b *Bot) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, hasController := b.sessions.Get(i.GuildID)
	b.mu.Lock()
	_, hasGuild := b.guilds[i.GuildID]
	b.mu.Unlock()
	if !hasController && !hasGuild {
		respondEmbed(s, i, presenters.ErrorEmbed("I'm not in a voice channel."))
		return
	}
	b.endSession(i.GuildID)
	respondEmbed(s, i, presenters.ActionEmbed("Stopped playback and left the voice channel."))
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	trackStats, linkStats := b.resolver.CacheStats()
	stats := presenters.BotStats{
		Uptime:         time.Since(b.started),
		Guilds:         len(s.State.Guilds),
		ActiveSessions: b.sessions.Count(),
		TrackCache:     trackStats,
		LinkCache:      linkStats,
	}
	respondEmbed(s, i, presenters.StatsEmbed(stats))
}

// withController runs fn against the guild's live session and replies with
// either the embed it produces or a user-facing error.
func (b *Bot) withController(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	fn func(*playback.Controller) (*discordgo.MessageEmbed, error),
) {
	controller, ok := b.sessions.Get(i.GuildID)
	if !ok {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(playback.ErrNothingPlaying)))
		return
	}
	embed, err := fn(controller)
	if err != nil {
		respondEmbed(s, i, presenters.ErrorEmbed(userMessage(err)))
		return
	}
	respondEmbed(s, i, embed)
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
