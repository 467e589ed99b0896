package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/gaanbot/gaanbot/internal/audiocache"
	"github.com/gaanbot/gaanbot/internal/cache"
	"github.com/gaanbot/gaanbot/internal/config"
	"github.com/gaanbot/gaanbot/internal/datalayer"
	"github.com/gaanbot/gaanbot/internal/handler"
	"github.com/gaanbot/gaanbot/internal/metrics"
	"github.com/gaanbot/gaanbot/internal/playback"
	"github.com/gaanbot/gaanbot/internal/repository"
	"github.com/gaanbot/gaanbot/internal/resolver"
	"github.com/gaanbot/gaanbot/internal/transcode"
)

func buildResolver(ctx context.Context) (*resolver.Resolver, error) {
	resolverConfig, err := config.NewResolverConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load resolver config: %w", err)
	}

	var spotifyClient *resolver.Spotify
	spotifyConfig, err := config.NewSpotifyConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load spotify config: %w", err)
	}
	if spotifyConfig.Enabled() {
		spotifyClient, err = resolver.NewSpotify(ctx, spotifyConfig.ClientID, spotifyConfig.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create spotify client: %w", err)
		}
	} else {
		slog.Warn("Spotify credentials not configured, spotify links disabled")
	}

	var (
		trackCache cache.Cache[resolver.Track]
		linkCache  cache.Cache[[]resolver.Track]
	)
	switch resolverConfig.CacheBackend {
	case "redis":
		redisConfig, err := config.NewRedisConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load redis config: %w", err)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     redisConfig.Addr,
			Password: redisConfig.Password,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		trackCache = cache.NewRedis[resolver.Track](client, "tracks", resolverConfig.CacheTTL)
		linkCache = cache.NewRedis[[]resolver.Track](client, "links", resolverConfig.CacheTTL)
	case "memory":
		trackCache = cache.NewMemory[resolver.Track](resolverConfig.CacheTTL, resolverConfig.CacheSize)
		linkCache = cache.NewMemory[[]resolver.Track](resolverConfig.CacheTTL, resolverConfig.CacheSize)
	default:
		return nil, fmt.Errorf("unknown resolver cache backend: %q", resolverConfig.CacheBackend)
	}

	ytdlp := resolver.NewYTDLP(resolverConfig.YTDLPPath, resolverConfig.Timeout)
	return resolver.New(ytdlp, spotifyClient, trackCache, linkCache), nil
}

func runBotForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	ctx := context.Background()

	pool, err := datalayer.NewPostgresPoolFromEnv()
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}

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

	trackResolver, err := buildResolver(ctx)
	if err != nil {
		return err
	}

	supervisor := transcode.NewSupervisor(transcode.Config{
		FFmpegPath:      playbackConfig.FFmpegPath,
		MaxConcurrent:   playbackConfig.MaxTranscodes,
		FrameBuffer:     playbackConfig.FrameBuffer,
		StallTimeout:    playbackConfig.StallTimeout,
		Bitrate:         playbackConfig.Bitrate,
		ArchiveMaxBytes: playbackConfig.ArchiveMaxBytes,
	}, audiocache.New(minioStorage))
	metrics.RegisterActiveTranscodes(supervisor.Active)

	bot := handler.NewBot(handler.BotConfig{
		Resolver: trackResolver,
		Settings: repository.NewPostgresSettingsRepository(pool),
		Spawner: playback.SpawnerFunc(func(ctx context.Context, src transcode.Source) (playback.Handle, error) {
			stream, err := supervisor.Spawn(ctx, src)
			if err != nil {
				return nil, err
			}
			return stream, nil
		}),
		QueueLimit:   playbackConfig.QueueLimit,
		RetryBackoff: playbackConfig.RetryBackoff,
	})

	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready:             handler.ReadyLog,
		InteractionCreate: handler.MakeInteractionCreateHandler(bot),
		VoiceStateUpdate:  handler.MakeVoiceStateUpdateHandler(bot),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.GuildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	metricsConfig, err := config.NewMetricsConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load metrics config: %w", err)
	}
	if metricsConfig.Addr != "" {
		go metrics.Serve(metricsConfig.Addr)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	slog.Info("Shutting down, closing playback sessions")
	bot.Shutdown()
	return nil
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
