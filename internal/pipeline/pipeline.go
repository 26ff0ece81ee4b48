// Package pipeline implements the QR detection cascade: native decoders on a
// preprocessed image, the same decoders on rotated variants, then a remote
// fallback service, short-circuiting on the first success.
package pipeline

import (
	"errors"
	"log/slog"
	"time"

	"github.com/factura-tools/qrdetect/internal/cache"
	"github.com/factura-tools/qrdetect/internal/decoder"
	"github.com/factura-tools/qrdetect/internal/preprocess"
	"github.com/factura-tools/qrdetect/internal/stats"
)

// Config holds configuration for the detection pipeline and its components.
type Config struct {
	Preprocess preprocess.Config

	// MaxDecoders truncates the decoder priority list (0 = all).
	MaxDecoders int

	// Per-level budgets. Level 3 additionally bounds the remote call.
	Level1Timeout time.Duration
	Level2Timeout time.Duration
	Level3Timeout time.Duration

	// Cache settings. Capacity 0 disables the cache.
	CacheTTL      time.Duration
	CacheCapacity int
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Preprocess:    preprocess.DefaultConfig(),
		MaxDecoders:   0,
		Level1Timeout: 500 * time.Millisecond,
		Level2Timeout: 1500 * time.Millisecond,
		Level3Timeout: 5 * time.Second,
		CacheTTL:      time.Hour,
		CacheCapacity: 1024,
	}
}

// Builder constructs a Detector with fluent configuration.
type Builder struct {
	cfg         Config
	decoders    []decoder.Decoder
	decodersSet bool
	fallback    FallbackDetector
	registry    *stats.Registry
	logger      *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithPreprocess overrides preprocessing settings.
func (b *Builder) WithPreprocess(cfg preprocess.Config) *Builder {
	b.cfg.Preprocess = cfg
	return b
}

// WithDecoders sets the decoder priority list. Order is significant. An
// explicit empty list is kept and rejected at Build; only a builder that
// never calls WithDecoders gets the default set.
func (b *Builder) WithDecoders(decoders ...decoder.Decoder) *Builder {
	b.decoders = decoders
	b.decodersSet = true
	return b
}

// WithMaxDecoders truncates the decoder list for every detection.
func (b *Builder) WithMaxDecoders(n int) *Builder {
	if n >= 0 {
		b.cfg.MaxDecoders = n
	}
	return b
}

// WithFallback sets the remote fallback detector. nil disables Level 3.
func (b *Builder) WithFallback(f FallbackDetector) *Builder {
	b.fallback = f
	return b
}

// WithLevelTimeouts sets the per-level budgets (zero keeps the default).
func (b *Builder) WithLevelTimeouts(l1, l2, l3 time.Duration) *Builder {
	if l1 > 0 {
		b.cfg.Level1Timeout = l1
	}
	if l2 > 0 {
		b.cfg.Level2Timeout = l2
	}
	if l3 > 0 {
		b.cfg.Level3Timeout = l3
	}
	return b
}

// WithCache configures result caching. capacity 0 disables it.
func (b *Builder) WithCache(capacity int, ttl time.Duration) *Builder {
	b.cfg.CacheCapacity = capacity
	if ttl > 0 {
		b.cfg.CacheTTL = ttl
	}
	return b
}

// WithStats injects the stats registry. A registry is created when omitted.
func (b *Builder) WithStats(r *stats.Registry) *Builder {
	b.registry = r
	return b
}

// WithLogger injects the structured logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build initializes the detection pipeline.
func (b *Builder) Build() (*Detector, error) {
	decoders := b.decoders
	if !b.decodersSet {
		decoders = decoder.Default()
	}
	if len(decoders) == 0 {
		return nil, errors.New("pipeline: at least one decoder is required")
	}

	registry := b.registry
	if registry == nil {
		registry = stats.NewRegistry()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Detector{
		cfg:      b.cfg,
		pre:      preprocess.New(b.cfg.Preprocess),
		decoders: decoders,
		fallback: b.fallback,
		registry: registry,
		logger:   logger,
	}

	if b.cfg.CacheCapacity > 0 {
		d.results = cache.New(b.cfg.CacheCapacity, b.cfg.CacheTTL,
			cache.WithEvictionHook[DetectionResult](func(string) {
				registry.RecordCacheEviction()
			}))
	}
	return d, nil
}

// Detector runs the detection cascade. It is safe for concurrent use; all
// shared state lives in the injected registry and the internal cache.
type Detector struct {
	cfg      Config
	pre      *preprocess.Preprocessor
	decoders []decoder.Decoder
	fallback FallbackDetector
	results  *cache.Cache[DetectionResult]
	registry *stats.Registry
	logger   *slog.Logger
}

// Stats returns the injected registry.
func (d *Detector) Stats() *stats.Registry { return d.registry }

// Config returns the pipeline configuration.
func (d *Detector) Config() Config { return d.cfg }
