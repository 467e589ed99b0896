package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	minOne          = float64(1)
	maxVolume       = float64(200)
	maxSkipCount    = float64(100)
	maxHistoryLimit = float64(20)
)

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "play",
		Description: "Play a track, or queue it if something is already playing",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "query",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "A URL or search terms. YouTube and Spotify links are supported.",
				Required:    true,
			},
			{
				Name:        "volume",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Volume for this track (1-200). Defaults to the server volume.",
				MinValue:    &minOne,
				MaxValue:    maxVolume,
			},
		},
	},
	{
		Name:        "pause",
		Description: "Pause the current track",
	},
	{
		Name:        "resume",
		Description: "Resume a paused track",
	},
	{
		Name:        "skip",
		Description: "Skip the current track",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "count",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Number of tracks to skip. Defaults to 1.",
				MinValue:    &minOne,
				MaxValue:    maxSkipCount,
			},
		},
	},
	{
		Name:        "stop",
		Description: "Stop playback and clear the queue",
	},
	{
		Name:        "leave",
		Description: "Stop playback, clear the queue, and leave the voice channel",
	},
	{
		Name:        "queue",
		Description: "Show the queue",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "page",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Page of the queue to show. Defaults to the first page.",
				MinValue:    &minOne,
			},
		},
	},
	{
		Name:        "clear",
		Description: "Remove every queued track without stopping the current one",
	},
	{
		Name:        "remove",
		Description: "Remove a queued track by its position",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "position",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Position of the track in the queue, as shown by /queue.",
				Required:    true,
				MinValue:    &minOne,
			},
		},
	},
	{
		Name:        "move",
		Description: "Move a queued track to a different position",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "from",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Current position of the track.",
				Required:    true,
				MinValue:    &minOne,
			},
			{
				Name:        "to",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Position to move the track to.",
				Required:    true,
				MinValue:    &minOne,
			},
		},
	},
	{
		Name:        "shuffle",
		Description: "Shuffle the queue",
	},
	{
		Name:        "now",
		Description: "Show the current track and playback progress",
	},
	{
		Name:        "history",
		Description: "Show recently played tracks",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "limit",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Description: "Number of tracks to show. Defaults to 10.",
				MinValue:    &minOne,
				MaxValue:    maxHistoryLimit,
			},
		},
	},
	{
		Name:        "stats",
		Description: "Show bot statistics",
	},
	{
		Name:        "help",
		Description: "Show all available commands",
	},
}

// EstablishCommands registers the command set with Discord. An empty guildID
// registers the commands globally.
func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
