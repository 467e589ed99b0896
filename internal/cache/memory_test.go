package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gaanbot/gaanbot/internal/cache"
)

func constant(value string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return value, nil
	}
}

func TestMemoryComputesOnceAndCachesHits(t *testing.T) {
	c := cache.NewMemory[string](time.Minute, 10)
	ctx := t.Context()

	computed := 0
	compute := func(context.Context) (string, error) {
		computed++
		return "value", nil
	}

	for range 3 {
		got, err := c.GetOrCompute(ctx, "key", compute)
		if err != nil {
			t.Fatalf("GetOrCompute() error: %v", err)
		}
		if got != "value" {
			t.Fatalf("GetOrCompute() = %q, want %q", got, "value")
		}
	}
	if computed != 1 {
		t.Errorf("compute ran %d times, want 1", computed)
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Stats() = %d hits / %d misses, want 2 / 1", stats.Hits, stats.Misses)
	}
}

func TestMemoryDoesNotCacheErrors(t *testing.T) {
	c := cache.NewMemory[string](time.Minute, 10)
	ctx := t.Context()

	boom := errors.New("upstream down")
	if _, err := c.GetOrCompute(ctx, "key", func(context.Context) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("GetOrCompute() = %v, want %v", err, boom)
	}

	got, err := c.GetOrCompute(ctx, "key", constant("recovered"))
	if err != nil {
		t.Fatalf("GetOrCompute() after failure: %v", err)
	}
	if got != "recovered" {
		t.Errorf("GetOrCompute() = %q, want %q", got, "recovered")
	}
}

func TestMemoryExpiresEntries(t *testing.T) {
	c := cache.NewMemory[string](50*time.Millisecond, 10)
	ctx := t.Context()

	c.GetOrCompute(ctx, "key", constant("stale"))
	time.Sleep(80 * time.Millisecond)

	got, err := c.GetOrCompute(ctx, "key", constant("fresh"))
	if err != nil {
		t.Fatalf("GetOrCompute() error: %v", err)
	}
	if got != "fresh" {
		t.Errorf("GetOrCompute() after TTL = %q, want %q", got, "fresh")
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.NewMemory[string](time.Minute, 2)
	ctx := t.Context()

	c.GetOrCompute(ctx, "a", constant("a"))
	c.GetOrCompute(ctx, "b", constant("b"))
	// Touch a so that b is the eviction candidate.
	c.GetOrCompute(ctx, "a", constant("a"))
	c.GetOrCompute(ctx, "c", constant("c"))

	// Check b last: recomputing it stores it, which evicts again.
	recomputed := map[string]bool{}
	for _, key := range []string{"a", "c", "b"} {
		c.GetOrCompute(ctx, key, func(context.Context) (string, error) {
			recomputed[key] = true
			return key, nil
		})
	}

	if recomputed["a"] || !recomputed["b"] || recomputed["c"] {
		t.Errorf("recomputed = %v, want only b evicted", recomputed)
	}
}

func TestMemoryHitRate(t *testing.T) {
	c := cache.NewMemory[int](time.Minute, 10)
	ctx := t.Context()

	for i := range 4 {
		c.GetOrCompute(ctx, fmt.Sprintf("key-%d", i%2), func(context.Context) (int, error) {
			return i, nil
		})
	}

	if rate := c.Stats().HitRate(); rate != 0.5 {
		t.Errorf("HitRate() = %v, want 0.5", rate)
	}
}
