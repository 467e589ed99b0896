package e2e_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gaanbot/gaanbot/e2e"
	"github.com/gaanbot/gaanbot/internal/repository"
)

func TestGuildSettings_DefaultsWhenUnset(t *testing.T) {
	connStr := e2e.UsePostgres(t)
	repo := e2e.GetSettingsRepository(t, connStr)
	e2e.SeedGlobalNoise(t, repo)

	const guildID = "74241007174813750"

	settings, err := repo.Get(t.Context(), guildID)
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}

	diff := cmp.Diff(repository.DefaultGuildSettings(guildID), settings)
	if diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestGuildSettings_SaveThenGet(t *testing.T) {
	connStr := e2e.UsePostgres(t)
	repo := e2e.GetSettingsRepository(t, connStr)
	e2e.SeedGlobalNoise(t, repo)

	const guildID = "517907971481534467"

	want := repository.GuildSettings{
		GuildID:     guildID,
		Volume:      80,
		IdleTimeout: 10 * time.Minute,
	}
	if err := repo.Save(t.Context(), want); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	got, err := repo.Get(t.Context(), guildID)
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestGuildSettings_SaveIsAnUpsert(t *testing.T) {
	connStr := e2e.UsePostgres(t)
	repo := e2e.GetSettingsRepository(t, connStr)

	const guildID = "302808141410692418"

	first := repository.GuildSettings{
		GuildID:     guildID,
		Volume:      120,
		IdleTimeout: time.Minute,
	}
	if err := repo.Save(t.Context(), first); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	second := first
	second.Volume = 60
	if err := repo.Save(t.Context(), second); err != nil {
		t.Fatalf("failed to overwrite settings: %v", err)
	}

	got, err := repo.Get(t.Context(), guildID)
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	if got.Volume != 60 {
		t.Errorf("expected volume 60 after overwrite, got %d", got.Volume)
	}
}
