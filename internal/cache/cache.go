// Package cache provides TTL-bounded get-or-compute caches for source
// resolution results, with hit/miss accounting for the stats surface.
package cache

import "context"

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// HitRate returns hits over total lookups, or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache computes and remembers values by key. Implementations expire entries
// after their TTL; a cache failure degrades to computing directly, it never
// fails the lookup.
type Cache[V any] interface {
	// GetOrCompute returns the cached value for key, computing and storing
	// it on a miss.
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error)

	Stats() Stats
}
