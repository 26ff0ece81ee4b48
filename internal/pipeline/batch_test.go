package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/factura-tools/qrdetect/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBatchOrderAndIDs(t *testing.T) {
	d, err := NewBuilder().Build()
	require.NoError(t, err)

	items := []BatchItem{
		{ID: "first", Image: testutil.QRImageBytes(t, "payload-1", 192)},
		{Image: []byte("not an image at all")},
		{ID: "third", Image: testutil.QRImageBytes(t, "payload-3", 192)},
	}

	out, err := d.DetectBatch(context.Background(), items, DefaultBatchOptions())
	require.NoError(t, err)
	require.Len(t, out.Results, 3)

	assert.Equal(t, "first", out.Results[0].ID)
	assert.Equal(t, "third", out.Results[2].ID)
	assert.NotEmpty(t, out.Results[1].ID, "blank IDs get a generated one")

	assert.True(t, out.Results[0].Result.Success)
	assert.Equal(t, "payload-1", out.Results[0].Result.Payload)
	assert.False(t, out.Results[1].Result.Success)
	assert.Equal(t, CauseInvalidImage, out.Results[1].Result.Cause)
	assert.Equal(t, "payload-3", out.Results[2].Result.Payload)

	assert.Equal(t, 3, out.Summary.Total)
	assert.Equal(t, 2, out.Summary.Successes)
	assert.Positive(t, out.Summary.AvgTime)
}

func TestDetectBatchConcurrencyCap(t *testing.T) {
	var inFlight, peak int64
	counting := &stubDecoder{id: "counting", fn: func(image.Image) (string, bool) {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return "seen", true
	}}

	d, err := NewBuilder().WithDecoders(counting).WithCache(0, 0).Build()
	require.NoError(t, err)

	items := make([]BatchItem, 8)
	for i := range items {
		items[i] = BatchItem{
			ID:    fmt.Sprintf("item-%d", i),
			Image: testutil.EncodePNG(t, markerImage()),
		}
	}

	out, err := d.DetectBatch(context.Background(), items, BatchOptions{
		MaxConcurrency: 2,
		ItemOptions:    Options{PreferSpeed: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 8, out.Summary.Successes)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestDetectBatchSlowItemDegradesAlone(t *testing.T) {
	hang := fallbackFunc(func(ctx context.Context, _ []byte) (string, bool, error) {
		<-ctx.Done()
		return "", false, ctx.Err()
	})

	d, err := NewBuilder().
		WithDecoders(uprightDecoder("upright", "ok")).
		WithFallback(hang).
		WithCache(0, 0).
		Build()
	require.NoError(t, err)

	items := []BatchItem{
		{ID: "a", Image: testutil.EncodePNG(t, markerImage())},
		{ID: "stuck", Image: testutil.EncodePNG(t, testutil.NoiseImage(64, 64, 7))},
		{ID: "b", Image: testutil.EncodePNG(t, markerImage())},
	}

	start := time.Now()
	out, err := d.DetectBatch(context.Background(), items, BatchOptions{
		MaxConcurrency: 3,
		PerItemTimeout: 150 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, 2, out.Summary.Successes)
	assert.True(t, out.Results[0].Result.Success)
	assert.False(t, out.Results[1].Result.Success)
	assert.Equal(t, CauseFallbackUnavailable, out.Results[1].Result.Cause)
	assert.True(t, out.Results[2].Result.Success)
}

func TestDetectBatchCancelledWhileQueuedReportsCancellation(t *testing.T) {
	release := make(chan struct{})
	blocking := &stubDecoder{id: "block", fn: func(image.Image) (string, bool) {
		<-release
		return "", false
	}}
	d, err := NewBuilder().WithDecoders(blocking).WithCache(0, 0).Build()
	require.NoError(t, err)

	img := testutil.QRImageBytes(t, "queued", 128)
	items := []BatchItem{
		{ID: "a", Image: img},
		{ID: "b", Image: img},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
		// Keep the slot occupied past the cancellation so the queued item
		// resolves through the context, not the semaphore.
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	out, err := d.DetectBatch(ctx, items,
		BatchOptions{MaxConcurrency: 1, PerItemTimeout: time.Second})
	require.NoError(t, err)
	require.Len(t, out.Results, 2)

	cancelled := 0
	for _, r := range out.Results {
		require.NotNil(t, r.Result)
		assert.False(t, r.Result.Success)
		if r.Result.Cause == CauseCancelled {
			cancelled++
			assert.Zero(t, r.Result.LevelUsed)
		}
	}
	assert.Equal(t, 1, cancelled, "exactly the queued item is abandoned")
}

func TestDetectBatchEmpty(t *testing.T) {
	d, err := NewBuilder().Build()
	require.NoError(t, err)

	_, err = d.DetectBatch(context.Background(), nil, DefaultBatchOptions())
	assert.Error(t, err)
}

func TestDetectBatchZeroOptionsGetDefaults(t *testing.T) {
	d, err := NewBuilder().WithCache(0, 0).Build()
	require.NoError(t, err)

	items := []BatchItem{{ID: "x", Image: testutil.QRImageBytes(t, "solo", 192)}}
	out, err := d.DetectBatch(context.Background(), items, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Successes)
}
