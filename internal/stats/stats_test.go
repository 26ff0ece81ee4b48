package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAttempt(t *testing.T) {
	r := NewRegistry()
	r.RecordAttempt(Attempt{DecoderID: "zxing", Level: 1, Duration: 10 * time.Millisecond, Success: true})
	r.RecordAttempt(Attempt{DecoderID: "zxing", Level: 1, Duration: 30 * time.Millisecond, Success: false})
	r.RecordAttempt(Attempt{DecoderID: "goqr", Level: 2, Rotation: 90, Duration: 5 * time.Millisecond, Success: false})

	snap := r.Snapshot()
	zx := snap.Decoders["zxing"]
	assert.Equal(t, int64(2), zx.Attempts)
	assert.Equal(t, int64(1), zx.Successes)
	assert.InDelta(t, 0.5, zx.SuccessRate, 1e-9)
	assert.Equal(t, 20*time.Millisecond, zx.AvgDuration)

	gq := snap.Decoders["goqr"]
	assert.Equal(t, int64(1), gq.Attempts)
	assert.Zero(t, gq.Successes)
}

func TestP95Duration(t *testing.T) {
	r := NewRegistry()
	for i := 1; i <= 100; i++ {
		r.RecordAttempt(Attempt{DecoderID: "d", Duration: time.Duration(i) * time.Millisecond})
	}
	snap := r.Snapshot()
	p95 := snap.Decoders["d"].P95Duration
	assert.GreaterOrEqual(t, p95, 94*time.Millisecond)
	assert.LessOrEqual(t, p95, 97*time.Millisecond)
}

func TestCacheCounters(t *testing.T) {
	r := NewRegistry()
	r.RecordCacheHit()
	r.RecordCacheHit()
	r.RecordCacheMiss()
	r.RecordCacheEviction()

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.Cache.Hits)
	assert.Equal(t, int64(1), snap.Cache.Misses)
	assert.Equal(t, int64(1), snap.Cache.Evictions)
	assert.InDelta(t, 2.0/3.0, snap.Cache.HitRate, 1e-9)
}

func TestFallbackHealth(t *testing.T) {
	r := NewRegistry()
	r.RecordFallback(120*time.Millisecond, true)
	r.RecordFallback(5*time.Second, false)

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.Fallback.Calls)
	assert.Equal(t, int64(1), snap.Fallback.Successes)
	assert.False(t, snap.Fallback.Reachable, "last call failed")
	assert.Equal(t, 5*time.Second, snap.Fallback.LastLatency)
	assert.False(t, snap.Fallback.LastChecked.IsZero())
}

func TestSnapshotIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.RecordAttempt(Attempt{DecoderID: "d", Duration: time.Millisecond, Success: true})
	snap := r.Snapshot()

	r.RecordAttempt(Attempt{DecoderID: "d", Duration: time.Millisecond, Success: true})
	assert.Equal(t, int64(1), snap.Decoders["d"].Attempts, "snapshot must not track later writes")
}

func TestConcurrentWrites(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				r.RecordAttempt(Attempt{DecoderID: "zxing", Duration: time.Millisecond, Success: true})
				r.RecordCacheMiss()
			}
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	require.Equal(t, int64(1600), snap.Decoders["zxing"].Attempts)
	require.Equal(t, int64(1600), snap.Cache.Misses)
}
