package playback

import "errors"

var (
	// ErrQueueEmpty signals a normal empty queue, not a failure.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrQueueFull is returned by Enqueue once the queue cap is reached.
	ErrQueueFull = errors.New("queue is full")

	// ErrNothingPlaying is returned by operations that need an active track.
	ErrNothingPlaying = errors.New("nothing is playing")

	// ErrSessionClosed is returned by all operations after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrBadPosition is returned by Remove and Move for positions outside
	// the queue.
	ErrBadPosition = errors.New("no track at that position")
)
