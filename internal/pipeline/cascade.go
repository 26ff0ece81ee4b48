package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/factura-tools/qrdetect/internal/decoder"
	"github.com/factura-tools/qrdetect/internal/stats"
	"github.com/factura-tools/qrdetect/internal/utils"
)

// FallbackDetector is the cascade's view of the remote detection service.
// The concrete transport is an implementation detail; the cascade only
// depends on this one call and its deadline behavior.
type FallbackDetector interface {
	// Detect returns (payload, true, nil) on detection, (_, false, nil) when
	// the service answered "nothing found", and a non-nil error when the
	// service could not be consulted.
	Detect(ctx context.Context, imageData []byte) (string, bool, error)
}

// rotationAngles are the Level 2 variants, tried in order.
var rotationAngles = [...]int{90, 180, 270}

// Options are per-request hints from the caller.
type Options struct {
	// MaxDecoders truncates the decoder list for this request (0 = config).
	MaxDecoders int
	// Timeout bounds the whole detection (0 = sum of level budgets).
	Timeout time.Duration
	// PreferSpeed skips rotation correction and the remote fallback.
	PreferSpeed bool
}

// Detect runs the full cascade over raw image bytes.
//
// The only error returned is ErrInvalidImage for undecodable input. All
// other outcomes, including timeouts and fallback failures, resolve to a
// DetectionResult with Success=false and a Cause.
func (d *Detector) Detect(ctx context.Context, imageData []byte, opts Options) (*DetectionResult, error) {
	start := time.Now()
	hash := utils.HashImageBytes(imageData)

	if d.results != nil {
		if cached, ok := d.results.Get(hash); ok {
			d.registry.RecordCacheHit()
			cached.Cached = true
			cached.TotalDuration = time.Since(start)
			return &cached, nil
		}
		d.registry.RecordCacheMiss()
	}

	img, _, err := utils.DecodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	pre, err := d.pre.Run(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	result := &DetectionResult{
		Preprocessing: pre.Applied,
		NoiseLevel:    pre.NoiseLevel,
	}

	decoders := decoder.Truncate(d.decoders, d.cfg.MaxDecoders)
	decoders = decoder.Truncate(decoders, opts.MaxDecoders)

	// Level 1: native decoders on the preprocessed image.
	if id, payload, ok := d.runDecoders(ctx, decoders, pre.Image, LevelNative, 0, d.cfg.Level1Timeout); ok {
		d.finish(result, start, id, payload, LevelNative, 0, hash)
		return result, nil
	}

	if opts.PreferSpeed {
		result.Cause = CauseNotFound
		result.TotalDuration = time.Since(start)
		return result, nil
	}

	// Level 2: the same decoders against each rotated variant. Orientation
	// correction is cheap relative to the remote fallback, so it runs first.
	if ctx.Err() == nil {
		deadline := time.Now().Add(d.cfg.Level2Timeout)
		for _, angle := range rotationAngles {
			if ctx.Err() != nil || time.Now().After(deadline) {
				break
			}
			rotated := rotate(pre.Image, angle)
			if id, payload, ok := d.runDecoders(ctx, decoders, rotated, LevelRotation, angle, time.Until(deadline)); ok {
				d.finish(result, start, id, payload, LevelRotation, angle, hash)
				return result, nil
			}
		}
	}

	// Level 3: remote fallback, bounded by its own hard timeout.
	result.Cause = CauseNotFound
	if d.fallback != nil && ctx.Err() == nil {
		fbCtx, cancel := context.WithTimeout(ctx, d.cfg.Level3Timeout)
		fbStart := time.Now()
		payload, ok, err := d.fallback.Detect(fbCtx, imageData)
		cancel()
		d.registry.RecordFallback(time.Since(fbStart), err == nil)

		switch {
		case err != nil:
			d.logger.Warn("fallback unavailable", "error", err)
			result.Cause = CauseFallbackUnavailable
		case ok:
			d.finish(result, start, "fallback", payload, LevelFallback, 0, hash)
			return result, nil
		}
	}

	result.TotalDuration = time.Since(start)
	return result, nil
}

// runDecoders walks the decoder list in priority order, stopping at the
// first payload. Every invocation is recorded as an attempt.
func (d *Detector) runDecoders(ctx context.Context, decoders []decoder.Decoder,
	img image.Image, level, angle int, budget time.Duration,
) (decoderID, payload string, ok bool) {
	deadline := time.Now().Add(budget)
	for _, dec := range decoders {
		if ctx.Err() != nil || (budget > 0 && time.Now().After(deadline)) {
			return "", "", false
		}

		attemptStart := time.Now()
		payload, found := dec.Decode(img)
		d.registry.RecordAttempt(stats.Attempt{
			DecoderID: dec.ID(),
			Level:     level,
			Rotation:  angle,
			Duration:  time.Since(attemptStart),
			Success:   found,
		})
		if found {
			return dec.ID(), payload, true
		}
	}
	return "", "", false
}

// finish fills in the success fields and stores the result in the cache.
// The cache holds its own copy so eviction cannot affect the caller's value.
func (d *Detector) finish(result *DetectionResult, start time.Time,
	decoderID, payload string, level, angle int, hash string,
) {
	result.Success = true
	result.Payload = payload
	result.DecoderID = decoderID
	result.LevelUsed = level
	result.RotationAngle = angle
	result.TotalDuration = time.Since(start)

	d.logger.Debug("qr detected",
		"decoder", decoderID, "level", level, "rotation", angle,
		"duration", result.TotalDuration)

	if d.results != nil {
		d.results.Put(hash, *result)
	}
}

// rotate returns a new buffer with img turned counterclockwise by angle
// degrees. The source buffer is left untouched.
func rotate(img image.Image, angle int) image.Image {
	switch angle {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}
