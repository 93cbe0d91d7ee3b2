package client

import "sync/atomic"

// Stats holds the three process-global read-path counters. Modeled on the
// teacher's Metrics struct (pkg/core/client/metrics.go) but injected through
// the Client constructor rather than held as a package-level global, per
// the specification's note for languages without ambient globals — tests
// construct their own Stats and assert on its fields directly.
type Stats struct {
	cacheHits        atomic.Int64
	cachePartialHits atomic.Int64
	cacheMisses      atomic.Int64
}

// NewStats returns a zeroed Stats handle.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) recordHit()        { s.cacheHits.Add(1) }
func (s *Stats) recordPartialHit() { s.cachePartialHits.Add(1) }
func (s *Stats) recordMiss()       { s.cacheMisses.Add(1) }

// CacheHits is the count of reads where every used block came from cache.
func (s *Stats) CacheHits() int64 { return s.cacheHits.Load() }

// CachePartialHits is the count of reads using at least one cache block and
// at least one backend block.
func (s *Stats) CachePartialHits() int64 { return s.cachePartialHits.Load() }

// CacheMisses is the count of reads where no used block came from cache.
func (s *Stats) CacheMisses() int64 { return s.cacheMisses.Load() }

// Total is hits + partial hits + misses, which must equal the number of
// completed reads per the specification's invariant.
func (s *Stats) Total() int64 {
	return s.CacheHits() + s.CachePartialHits() + s.CacheMisses()
}
