// Package voice manages Discord voice connections and adapts them to the
// playback engine's frame sink.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gaanbot/gaanbot/internal/metrics"
	"github.com/gaanbot/gaanbot/internal/transcode"
	"github.com/gaanbot/gaanbot/internal/util"
)

// ErrVoiceConnClosed is returned when the voice connection stops accepting
// frames.
var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// ErrNotInVoice is returned when the acting user is not in a voice channel.
var ErrNotInVoice = errors.New("user is not in a voice channel")

// UserChannel returns the voice channel the user currently occupies.
func UserChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("unable to read guild state: %w", err)
	}
	vs, ok := util.FindFirst(guild.VoiceStates, func(vs *discordgo.VoiceState) bool {
		return vs.UserID == userID
	})
	if !ok {
		return "", ErrNotInVoice
	}
	return vs.ChannelID, nil
}

// connection is the part of *discordgo.VoiceConnection needed to finish or
// abort a join.
type connection interface {
	Speaking(b bool) error
	Disconnect() error
}

// Join connects to a voice channel and marks the bot as speaking.
func Join(s *discordgo.Session, guildID, channelID string) (*discordgo.VoiceConnection, error) {
	vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("unable to join the voice channel: %w", err)
	}
	if err := beginSpeaking(vc); err != nil {
		return nil, err
	}
	return vc, nil
}

// beginSpeaking sets the speaking state, disconnecting on failure so a
// half-joined voice session is never leaked.
func beginSpeaking(vc connection) error {
	if err := vc.Speaking(true); err != nil {
		if derr := vc.Disconnect(); derr != nil {
			slog.Error("failed to disconnect after speaking error", "error", derr)
		}
		return fmt.Errorf("error setting speaking state to 'true': %w", err)
	}
	return nil
}

// Leave stops speaking and disconnects.
func Leave(vc *discordgo.VoiceConnection) {
	if err := vc.Speaking(false); err != nil {
		slog.Error("failed to stop speaking", "error", err)
	}
	if err := vc.Disconnect(); err != nil {
		slog.Error("failed to disconnect", "error", err)
	}
}

// HumanListeners counts non-bot users in the bot's current voice channel.
// Zero means the bot is playing to an empty room.
func HumanListeners(s *discordgo.Session, guildID, channelID string) int {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return 0
	}
	listeners := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID || vs.UserID == s.State.User.ID {
			continue
		}
		member, err := s.State.Member(guildID, vs.UserID)
		if err != nil || member.User == nil || member.User.Bot {
			continue
		}
		listeners++
	}
	return listeners
}

// ConnectionSink writes Opus frames to a voice connection. A send that makes
// no progress within the timeout reports the connection as closed rather than
// blocking playback forever.
type ConnectionSink struct {
	vc          *discordgo.VoiceConnection
	sendTimeout time.Duration
}

func NewConnectionSink(vc *discordgo.VoiceConnection) *ConnectionSink {
	return &ConnectionSink{vc: vc, sendTimeout: time.Minute}
}

func (s *ConnectionSink) Write(ctx context.Context, frame transcode.Frame) error {
	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()

	select {
	case s.vc.OpusSend <- frame:
		metrics.FramesDelivered.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrVoiceConnClosed
	}
}
