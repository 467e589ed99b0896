package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gaanbot/gaanbot/internal/audiocache"
	"github.com/gaanbot/gaanbot/internal/cache"
	"github.com/gaanbot/gaanbot/internal/config"
	"github.com/gaanbot/gaanbot/internal/datalayer"
	"github.com/gaanbot/gaanbot/internal/repository"
	"github.com/gaanbot/gaanbot/internal/resolver"
	"github.com/gaanbot/gaanbot/internal/transcode"
)

func newResolver() (*resolver.Resolver, error) {
	resolverConfig, err := config.NewResolverConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load resolver config: %w", err)
	}
	ytdlp := resolver.NewYTDLP(resolverConfig.YTDLPPath, resolverConfig.Timeout)
	trackCache := cache.NewMemory[resolver.Track](resolverConfig.CacheTTL, resolverConfig.CacheSize)
	linkCache := cache.NewMemory[[]resolver.Track](resolverConfig.CacheTTL, resolverConfig.CacheSize)
	return resolver.New(ytdlp, nil, trackCache, linkCache), nil
}

func newSettingsRepository() (*repository.PostgresSettingsRepository, error) {
	pool, err := datalayer.NewPostgresPoolFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}
	return repository.NewPostgresSettingsRepository(pool), nil
}

// prewarm resolves a query, transcodes it end to end, and lets the
// supervisor archive the result so the first real /play is instant.
func prewarm(ctx context.Context, query string) error {
	playbackConfig, err := config.NewPlaybackConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load playback config: %w", err)
	}

	minioStorage, err := datalayer.NewMinioStorageFromEnv()
	if err != nil {
		return fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := minioStorage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure minio bucket: %w", err)
	}

	trackResolver, err := newResolver()
	if err != nil {
		return err
	}

	tracks, err := trackResolver.Resolve(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to resolve query: %w", err)
	}

	supervisor := transcode.NewSupervisor(transcode.Config{
		FFmpegPath:      playbackConfig.FFmpegPath,
		StallTimeout:    playbackConfig.StallTimeout,
		Bitrate:         playbackConfig.Bitrate,
		ArchiveMaxBytes: playbackConfig.ArchiveMaxBytes,
	}, audiocache.New(minioStorage))

	for _, track := range tracks {
		track, err := trackResolver.ResolveStream(ctx, track)
		if err != nil {
			return fmt.Errorf("failed to resolve stream for %q: %w", track.Title, err)
		}

		stream, err := supervisor.Spawn(ctx, transcode.Source{
			URL:        track.StreamURL,
			ArchiveKey: track.CacheKey(),
		})
		if err != nil {
			return fmt.Errorf("failed to spawn transcode for %q: %w", track.Title, err)
		}

		frames := 0
		for {
			_, err := stream.ReadNext(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				stream.Terminate()
				return fmt.Errorf("transcode of %q failed: %w", track.Title, err)
			}
			frames++
		}
		stream.Terminate()

		duration := time.Duration(frames) * transcode.FrameDuration
		log.Printf("archived %q (%s of audio)", track.Title, duration)
	}

	return nil
}

func main() {
	if err := config.LoadEnv(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	app := &cli.App{
		Name:        "gaanbot-cli",
		Description: "A development CLI tool for operating gaanbot without Discord",
		Commands: []*cli.Command{
			{
				Name:      "prewarm",
				Usage:     "Resolve and transcode a track into the audio archive",
				ArgsUsage: "<url or search query>",
				Action: func(c *cli.Context) error {
					query := c.Args().First()
					if query == "" {
						return cli.Exit("Please provide a URL or search query", 1)
					}
					if err := prewarm(c.Context, query); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return nil
				},
			},
			{
				Name:  "settings",
				Usage: "Show or change playback settings for a guild",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "guild-id",
						Usage:    "ID of the guild to operate on",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "volume",
						Usage: "Default playback volume (1-200)",
					},
					&cli.DurationFlag{
						Name:  "idle-timeout",
						Usage: "How long to stay in an idle voice channel",
					},
				},
				Action: func(c *cli.Context) error {
					repo, err := newSettingsRepository()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}

					guildID := c.String("guild-id")
					settings, err := repo.Get(c.Context, guildID)
					if err != nil {
						return cli.Exit("Failed to load settings: "+err.Error(), 1)
					}

					if !c.IsSet("volume") && !c.IsSet("idle-timeout") {
						log.Printf("guild %s: volume=%d idleTimeout=%s", guildID, settings.Volume, settings.IdleTimeout)
						return nil
					}

					if c.IsSet("volume") {
						settings.Volume = c.Int("volume")
					}
					if c.IsSet("idle-timeout") {
						settings.IdleTimeout = c.Duration("idle-timeout")
					}

					if err := repo.Save(c.Context, settings); err != nil {
						return cli.Exit("Failed to save settings: "+err.Error(), 1)
					}
					log.Println("Settings saved.")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
