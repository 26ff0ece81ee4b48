package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BatchOptions control batch fan-out.
type BatchOptions struct {
	// MaxConcurrency caps items processing simultaneously (min 1).
	MaxConcurrency int
	// PerItemTimeout bounds each item's cascade so a hung image degrades
	// only its own result.
	PerItemTimeout time.Duration
	// ItemOptions apply to every item's detection.
	ItemOptions Options
}

// DefaultBatchOptions returns the default batch settings.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxConcurrency: 4,
		PerItemTimeout: 10 * time.Second,
	}
}

// DetectBatch runs the single-image cascade over items under a concurrency
// cap. Results are returned in input order; items without a correlation ID
// get one assigned. Item failures, including undecodable bytes, resolve to
// unsuccessful results rather than failing the batch.
func (d *Detector) DetectBatch(ctx context.Context, items []BatchItem, opts BatchOptions) (*BatchOutput, error) {
	if len(items) == 0 {
		return nil, errors.New("pipeline: no batch items provided")
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultBatchOptions().MaxConcurrency
	}
	if opts.PerItemTimeout <= 0 {
		opts.PerItemTimeout = DefaultBatchOptions().PerItemTimeout
	}

	start := time.Now()
	results := make([]BatchResult, len(items))

	// Counting semaphore bounds in-flight work; each item is independent.
	sem := make(chan struct{}, opts.MaxConcurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}

		wg.Add(1)
		go func(idx int, item BatchItem) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = BatchResult{ID: item.ID, Result: &DetectionResult{Cause: CauseCancelled}}
				return
			}

			itemOpts := opts.ItemOptions
			itemOpts.Timeout = opts.PerItemTimeout

			res, err := d.Detect(ctx, item.Image, itemOpts)
			if err != nil {
				// Invalid bytes fail this item only.
				res = &DetectionResult{Cause: CauseInvalidImage}
			}
			results[idx] = BatchResult{ID: item.ID, Result: res}
		}(i, item)
	}
	wg.Wait()

	out := &BatchOutput{Results: results}
	out.Summary.Total = len(items)
	for _, r := range results {
		if r.Result != nil && r.Result.Success {
			out.Summary.Successes++
		}
	}
	out.Summary.TotalTime = time.Since(start)
	out.Summary.AvgTime = out.Summary.TotalTime / time.Duration(len(items))
	return out, nil
}
