package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type PlaybackConfig struct {
	FFmpegPath      string        `env:"FFMPEG_PATH, default=ffmpeg"`
	MaxTranscodes   int           `env:"PLAYBACK_MAX_TRANSCODES, default=16"`
	FrameBuffer     int           `env:"PLAYBACK_FRAME_BUFFER, default=128"`
	StallTimeout    time.Duration `env:"PLAYBACK_STALL_TIMEOUT, default=15s"`
	Bitrate         int           `env:"PLAYBACK_BITRATE_KBPS, default=96"`
	QueueLimit      int           `env:"PLAYBACK_QUEUE_LIMIT, default=500"`
	RetryBackoff    time.Duration `env:"PLAYBACK_RETRY_BACKOFF, default=3s"`
	ArchiveMaxBytes int           `env:"PLAYBACK_ARCHIVE_MAX_BYTES, default=52428800"`
}

func NewPlaybackConfigFromEnv() (*PlaybackConfig, error) {
	var cfg PlaybackConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
