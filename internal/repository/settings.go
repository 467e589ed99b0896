package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GuildSettings is the per-guild playback configuration. Guilds that never
// changed anything have no row; DefaultGuildSettings applies.
type GuildSettings struct {
	GuildID     string
	Volume      int
	IdleTimeout time.Duration
}

func DefaultGuildSettings(guildID string) GuildSettings {
	return GuildSettings{
		GuildID:     guildID,
		Volume:      100,
		IdleTimeout: 5 * time.Minute,
	}
}

type SettingsRepository interface {
	Get(ctx context.Context, guildID string) (GuildSettings, error)
	Save(ctx context.Context, settings GuildSettings) error
}

type PostgresSettingsRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSettingsRepository(db *pgxpool.Pool) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

var _ SettingsRepository = (*PostgresSettingsRepository)(nil)

// Get returns the guild's settings, falling back to defaults when the guild
// has no row.
func (r *PostgresSettingsRepository) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	const query = `
	SELECT guild_id, default_volume, idle_timeout_seconds
	FROM guild_settings
	WHERE guild_id = $1
	`

	var (
		settings    GuildSettings
		idleSeconds int
	)
	err := r.db.QueryRow(ctx, query, guildID).Scan(
		&settings.GuildID,
		&settings.Volume,
		&idleSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultGuildSettings(guildID), nil
	}
	if err != nil {
		return GuildSettings{}, fmt.Errorf("failed to query guild settings: %w", err)
	}
	settings.IdleTimeout = time.Duration(idleSeconds) * time.Second
	return settings, nil
}

func (r *PostgresSettingsRepository) Save(ctx context.Context, settings GuildSettings) error {
	const query = `
	INSERT INTO guild_settings (guild_id, default_volume, idle_timeout_seconds, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (guild_id) DO UPDATE SET
		default_volume = EXCLUDED.default_volume,
		idle_timeout_seconds = EXCLUDED.idle_timeout_seconds,
		updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(
		ctx,
		query,
		settings.GuildID,
		settings.Volume,
		int(settings.IdleTimeout.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	return nil
}
