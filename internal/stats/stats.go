// Package stats maintains process-lifetime counters for the detection
// pipeline: per-decoder attempt/success/latency figures, cache outcomes, and
// fallback service health.
//
// The registry is written from many concurrent detections; all counters are
// atomics or guarded by per-decoder locks so there is no pipeline-wide
// bottleneck. It is created at startup and injected into the pipeline rather
// than accessed as a hidden global, so tests can substitute their own.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// recentWindow bounds how many recent durations feed the p95 estimate.
const recentWindow = 512

// Attempt is the ephemeral record of a single decoder invocation. It feeds
// stats and diagnostics only; it is never returned to callers.
type Attempt struct {
	DecoderID string
	Level     int
	Rotation  int // degrees, 0 when not rotated
	Duration  time.Duration
	Success   bool
}

// Registry holds all pipeline counters.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]*decoderCounters

	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	cacheEvictions atomic.Int64

	fallbackCalls     atomic.Int64
	fallbackSuccesses atomic.Int64

	healthMu          sync.Mutex
	fallbackReachable bool
	fallbackLatency   time.Duration
	fallbackChecked   time.Time
}

type decoderCounters struct {
	attempts  atomic.Int64
	successes atomic.Int64
	totalNs   atomic.Int64

	mu     sync.Mutex
	recent []time.Duration
	next   int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]*decoderCounters)}
}

// RecordAttempt records one decoder invocation.
func (r *Registry) RecordAttempt(a Attempt) {
	c := r.counters(a.DecoderID)
	c.attempts.Add(1)
	if a.Success {
		c.successes.Add(1)
	}
	c.totalNs.Add(a.Duration.Nanoseconds())

	c.mu.Lock()
	if len(c.recent) < recentWindow {
		c.recent = append(c.recent, a.Duration)
	} else {
		c.recent[c.next] = a.Duration
		c.next = (c.next + 1) % recentWindow
	}
	c.mu.Unlock()
}

// RecordCacheHit counts a cache hit.
func (r *Registry) RecordCacheHit() { r.cacheHits.Add(1) }

// RecordCacheMiss counts a cache miss.
func (r *Registry) RecordCacheMiss() { r.cacheMisses.Add(1) }

// RecordCacheEviction counts a cache eviction.
func (r *Registry) RecordCacheEviction() { r.cacheEvictions.Add(1) }

// RecordFallback records the outcome of one remote fallback call.
func (r *Registry) RecordFallback(d time.Duration, ok bool) {
	r.fallbackCalls.Add(1)
	if ok {
		r.fallbackSuccesses.Add(1)
	}
	r.SetFallbackHealth(ok, d)
}

// SetFallbackHealth updates the reachability rollup, e.g. from a periodic
// health probe.
func (r *Registry) SetFallbackHealth(reachable bool, latency time.Duration) {
	r.healthMu.Lock()
	r.fallbackReachable = reachable
	r.fallbackLatency = latency
	r.fallbackChecked = time.Now()
	r.healthMu.Unlock()
}

func (r *Registry) counters(id string) *decoderCounters {
	r.mu.RLock()
	c, ok := r.decoders[id]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.decoders[id]; ok {
		return c
	}
	c = &decoderCounters{}
	r.decoders[id] = c
	return c
}

// DecoderSnapshot is a read-only view of one decoder's counters.
type DecoderSnapshot struct {
	Attempts    int64         `json:"attempts"`
	Successes   int64         `json:"successes"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration_ns"`
	P95Duration time.Duration `json:"p95_duration_ns"`
}

// CacheSnapshot is a read-only view of cache outcome counters.
type CacheSnapshot struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// FallbackSnapshot is a read-only view of fallback service health.
type FallbackSnapshot struct {
	Calls       int64         `json:"calls"`
	Successes   int64         `json:"successes"`
	Reachable   bool          `json:"reachable"`
	LastLatency time.Duration `json:"last_latency_ns"`
	LastChecked time.Time     `json:"last_checked"`
}

// Snapshot is the full read-only stats view served by the health surface.
type Snapshot struct {
	Decoders map[string]DecoderSnapshot `json:"decoders"`
	Cache    CacheSnapshot              `json:"cache"`
	Fallback FallbackSnapshot           `json:"fallback"`
}

// Snapshot captures the current counters. The result is independent of the
// registry; it does not change as detections continue.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{Decoders: make(map[string]DecoderSnapshot)}

	r.mu.RLock()
	ids := make([]string, 0, len(r.decoders))
	for id := range r.decoders {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		c := r.counters(id)
		snap.Decoders[id] = c.snapshot()
	}

	hits := r.cacheHits.Load()
	misses := r.cacheMisses.Load()
	snap.Cache = CacheSnapshot{
		Hits:      hits,
		Misses:    misses,
		Evictions: r.cacheEvictions.Load(),
	}
	if total := hits + misses; total > 0 {
		snap.Cache.HitRate = float64(hits) / float64(total)
	}

	r.healthMu.Lock()
	snap.Fallback = FallbackSnapshot{
		Calls:       r.fallbackCalls.Load(),
		Successes:   r.fallbackSuccesses.Load(),
		Reachable:   r.fallbackReachable,
		LastLatency: r.fallbackLatency,
		LastChecked: r.fallbackChecked,
	}
	r.healthMu.Unlock()

	return snap
}

func (c *decoderCounters) snapshot() DecoderSnapshot {
	s := DecoderSnapshot{
		Attempts:  c.attempts.Load(),
		Successes: c.successes.Load(),
	}
	if s.Attempts > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		s.AvgDuration = time.Duration(c.totalNs.Load() / s.Attempts)
	}

	c.mu.Lock()
	recent := make([]time.Duration, len(c.recent))
	copy(recent, c.recent)
	c.mu.Unlock()

	if len(recent) > 0 {
		sort.Slice(recent, func(i, j int) bool { return recent[i] < recent[j] })
		idx := (len(recent) * 95) / 100
		if idx >= len(recent) {
			idx = len(recent) - 1
		}
		s.P95Duration = recent[idx]
	}
	return s
}
