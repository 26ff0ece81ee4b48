package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the configuration used when no file, environment
// variable, or flag overrides a value. The preprocessing constants are
// empirical defaults from the reference deployment, not derived values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Pipeline: PipelineConfig{
			Preprocess: PreprocessConfig{
				ClaheTiles:      8,
				ClaheClipLimit:  2.0,
				BinarizeWindow:  32,
				MorphKernelSize: 3,
				NoiseThreshold:  0.15,
				BlurSigma:       1.0,
			},
			MaxDecoders:     0,
			Level1TimeoutMs: 500,
			Level2TimeoutMs: 1500,
			Level3TimeoutMs: 5000,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 3600,
			Capacity:   1024,
		},
		Fallback: FallbackConfig{
			Endpoint:  "http://localhost:8501",
			TimeoutMs: 5000,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			MaxConcurrency:   4,
			PerItemTimeoutMs: 10000,
			ContinueOnError:  true,
		},
	}
}

// YAML renders the resolved configuration, suitable as a starting config
// file.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache: ttl_seconds must be >= 0, got %d", c.Cache.TTLSeconds)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache: capacity must be >= 0, got %d", c.Cache.Capacity)
	}
	if c.Fallback.TimeoutMs <= 0 {
		return fmt.Errorf("fallback: timeout_ms must be > 0, got %d", c.Fallback.TimeoutMs)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Batch.MaxConcurrency <= 0 {
		return fmt.Errorf("batch: max_concurrency must be > 0, got %d", c.Batch.MaxConcurrency)
	}
	if c.Batch.PerItemTimeoutMs <= 0 {
		return fmt.Errorf("batch: per_item_timeout_ms must be > 0, got %d", c.Batch.PerItemTimeoutMs)
	}
	return nil
}

// Validate checks cascade settings.
func (p *PipelineConfig) Validate() error {
	if err := p.Preprocess.Validate(); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if p.MaxDecoders < 0 {
		return fmt.Errorf("max_decoders must be >= 0, got %d", p.MaxDecoders)
	}
	for name, ms := range map[string]int{
		"level1_timeout_ms": p.Level1TimeoutMs,
		"level2_timeout_ms": p.Level2TimeoutMs,
		"level3_timeout_ms": p.Level3TimeoutMs,
	} {
		if ms <= 0 {
			return fmt.Errorf("%s must be > 0, got %d", name, ms)
		}
	}
	return nil
}

// Validate checks preprocessing settings.
func (p *PreprocessConfig) Validate() error {
	if p.ClaheTiles <= 0 {
		return fmt.Errorf("clahe_tiles must be > 0, got %d", p.ClaheTiles)
	}
	if p.ClaheClipLimit < 1.0 {
		return fmt.Errorf("clahe_clip_limit must be >= 1.0, got %g", p.ClaheClipLimit)
	}
	if p.BinarizeWindow < 4 {
		return fmt.Errorf("binarize_window must be >= 4, got %d", p.BinarizeWindow)
	}
	if p.MorphKernelSize <= 0 || p.MorphKernelSize%2 == 0 {
		return fmt.Errorf("morph_kernel_size must be a positive odd number, got %d", p.MorphKernelSize)
	}
	if p.NoiseThreshold < 0 || p.NoiseThreshold > 1 {
		return fmt.Errorf("noise_threshold must be in [0,1], got %g", p.NoiseThreshold)
	}
	if p.BlurSigma <= 0 {
		return fmt.Errorf("blur_sigma must be > 0, got %g", p.BlurSigma)
	}
	return nil
}
