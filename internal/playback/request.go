package playback

import (
	"time"

	"github.com/gaanbot/gaanbot/internal/resolver"
)

// PlayRequest is one queued playback item. Immutable once created.
type PlayRequest struct {
	// ID uniquely identifies the request across its whole lifetime,
	// including retries and notifications.
	ID string

	Track resolver.Track

	// RequesterID is the user who enqueued the track.
	RequesterID string

	EnqueuedAt time.Time

	// Volume is a percentage applied to this play; 0 means the session
	// default.
	Volume int
}
