package handler

import (
	"errors"

	"github.com/gaanbot/gaanbot/internal/playback"
	"github.com/gaanbot/gaanbot/internal/resolver"
	"github.com/gaanbot/gaanbot/internal/transcode"
	"github.com/gaanbot/gaanbot/internal/voice"
)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

// userMessage translates an internal error into something safe and useful
// to show in a Discord reply.
func userMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}

	switch {
	case errors.Is(err, voice.ErrNotInVoice):
		return "You need to be in a voice channel first."
	case errors.Is(err, resolver.ErrNoResults):
		return "No playable tracks found for that query."
	case errors.Is(err, playback.ErrNothingPlaying):
		return "Nothing is playing right now."
	case errors.Is(err, playback.ErrQueueFull):
		return "The queue is full."
	case errors.Is(err, playback.ErrQueueEmpty):
		return "The queue is empty."
	case errors.Is(err, playback.ErrBadPosition):
		return "There is no track at that position."
	case errors.Is(err, playback.ErrSessionClosed):
		return "The playback session has ended. Use /play to start a new one."
	case errors.Is(err, transcode.ErrSourceUnavailable):
		return "That track could not be streamed."
	case errors.Is(err, transcode.ErrCapacityExceeded):
		return "The bot is at capacity right now. Your track stays queued and will be retried."
	default:
		return "Something went wrong. Try again in a moment."
	}
}

// failureReason buckets playback errors for the error counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, transcode.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, transcode.ErrSpawnFailed):
		return "spawn_failed"
	case errors.Is(err, transcode.ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, transcode.ErrStallTimeout):
		return "stall"
	case errors.Is(err, transcode.ErrPipe):
		return "pipe"
	default:
		return "other"
	}
}
