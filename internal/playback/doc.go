// Package playback is the per-guild playback engine: a FIFO queue of play
// requests, a message-driven controller goroutine per session that drives the
// transcode supervisor and writes frames to an injected sink, and a registry
// mapping guild IDs to controllers.
//
// All controller state is owned by the session's run loop; the exported
// methods deliver messages and never touch state directly, so there is no
// shared-memory contention between sessions.
package playback
