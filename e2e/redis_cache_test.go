package e2e_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gaanbot/gaanbot/e2e"
	"github.com/gaanbot/gaanbot/internal/cache"
	"github.com/gaanbot/gaanbot/internal/resolver"
)

func TestRedisCache_ComputesOnceAndServesHits(t *testing.T) {
	client := e2e.UseRedis(t)
	tracks := cache.NewRedis[resolver.Track](client, "e2e-tracks", time.Minute)

	want := resolver.Track{
		Title:    "Resonance",
		Uploader: "Home",
		Duration: 215 * time.Second,
		PageURL:  "https://www.youtube.com/watch?v=8GW6sLrK40k",
		Kind:     resolver.KindYouTube,
	}

	var computes atomic.Int64
	compute := func(ctx context.Context) (resolver.Track, error) {
		computes.Add(1)
		return want, nil
	}

	for range 3 {
		got, err := tracks.GetOrCompute(t.Context(), want.PageURL, compute)
		if err != nil {
			t.Fatalf("GetOrCompute() error: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("track mismatch (-want +got):\n%s", diff)
		}
	}

	if n := computes.Load(); n != 1 {
		t.Errorf("expected 1 compute, got %d", n)
	}
}

func TestRedisCache_RoundTripsSlices(t *testing.T) {
	client := e2e.UseRedis(t)
	links := cache.NewRedis[[]resolver.Track](client, "e2e-links", time.Minute)

	want := []resolver.Track{
		{Title: "Intro", Kind: resolver.KindSpotify, SearchQuery: "Intro artist official audio"},
		{Title: "Outro", Kind: resolver.KindSpotify, SearchQuery: "Outro artist official audio"},
	}

	const key = "https://open.spotify.com/album/2noRn2Aes5aoNVsU6iWThc"
	_, err := links.GetOrCompute(t.Context(), key, func(ctx context.Context) ([]resolver.Track, error) {
		return want, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() error: %v", err)
	}

	got, err := links.GetOrCompute(t.Context(), key, func(ctx context.Context) ([]resolver.Track, error) {
		t.Fatal("compute should not run on a hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() hit error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisCache_SizeCountsOnlyOwnPrefix(t *testing.T) {
	client := e2e.UseRedis(t)
	first := cache.NewRedis[string](client, "e2e-size-first", time.Minute)
	second := cache.NewRedis[string](client, "e2e-size-second", time.Minute)

	store := func(c cache.Cache[string], keys ...string) {
		for _, key := range keys {
			_, err := c.GetOrCompute(t.Context(), key, func(ctx context.Context) (string, error) {
				return "value", nil
			})
			if err != nil {
				t.Fatalf("GetOrCompute() error: %v", err)
			}
		}
	}
	store(first, "a", "b", "c")
	store(second, "a")

	if size := first.Stats().Size; size != 3 {
		t.Errorf("first cache Size = %d, want 3", size)
	}
	if size := second.Stats().Size; size != 1 {
		t.Errorf("second cache Size = %d, want 1", size)
	}
}
