package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type ResolverConfig struct {
	YTDLPPath string        `env:"YTDLP_PATH, default=yt-dlp"`
	Timeout   time.Duration `env:"RESOLVER_TIMEOUT, default=30s"`

	// CacheBackend is either memory or redis.
	CacheBackend string        `env:"RESOLVER_CACHE_BACKEND, default=memory"`
	CacheTTL     time.Duration `env:"RESOLVER_CACHE_TTL, default=6h"`
	CacheSize    int           `env:"RESOLVER_CACHE_SIZE, default=1000"`
}

func NewResolverConfigFromEnv() (*ResolverConfig, error) {
	var cfg ResolverConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

type SpotifyConfig struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
}

// Enabled reports whether Spotify credentials are configured. The bot runs
// without them; Spotify links are rejected instead.
func (c *SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func NewSpotifyConfigFromEnv() (*SpotifyConfig, error) {
	var cfg SpotifyConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
