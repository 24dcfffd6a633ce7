package cache

import "sync/atomic"

// TierStats are atomic hit/miss/eviction counters for one cache tier,
// grounded on the teacher's tools/web/cache.go CacheStats (atomic.Int64
// fields) — a supplemented operational surface spec §4.3 implies ("LRU
// eviction") but does not name as a first-class operation.
type TierStats struct {
	Hits      atomic.Int64
	Misses    atomic.Int64
	Evictions atomic.Int64
}

// Snapshot is a point-in-time copy of TierStats, safe to log or serialize.
type Snapshot struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

func (s *TierStats) snapshot() Snapshot {
	return Snapshot{
		Hits:      s.Hits.Load(),
		Misses:    s.Misses.Load(),
		Evictions: s.Evictions.Load(),
	}
}

// Stats is the cache-wide statistics surface: one Snapshot per tier.
type Stats struct {
	L1 Snapshot
	L2 Snapshot
}
