// Package transcode spawns and supervises the external FFmpeg process that
// decodes a media source into Opus audio frames for Discord voice playback.
//
// One subprocess is spawned per active stream. Frames flow through a bounded
// pipe: when the consumer falls behind, the producer blocks and FFmpeg stalls
// on its own stdout buffer, so frames are never dropped or reordered.
//
// Archived audio uses a minimal binary format: concatenated length-prefixed
// frames ([uint16 LE length][opus bytes]). No headers, no metadata.
package transcode
