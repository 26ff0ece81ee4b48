package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestDefaultPreprocessConstants(t *testing.T) {
	pp := DefaultConfig().Pipeline.Preprocess
	assert.Equal(t, 8, pp.ClaheTiles)
	assert.InDelta(t, 2.0, pp.ClaheClipLimit, 1e-9)
	assert.Equal(t, 3, pp.MorphKernelSize)
	assert.InDelta(t, 0.15, pp.NoiseThreshold, 1e-9)
	assert.InDelta(t, 1.0, pp.BlurSigma, 1e-9)
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Cache.Capacity = 17

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "log_level: debug")

	var loaded Config
	require.NoError(t, yaml.Unmarshal(out, &loaded))
	assert.Equal(t, *cfg, loaded)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero clahe tiles", func(c *Config) { c.Pipeline.Preprocess.ClaheTiles = 0 }},
		{"clip limit below one", func(c *Config) { c.Pipeline.Preprocess.ClaheClipLimit = 0.5 }},
		{"even morph kernel", func(c *Config) { c.Pipeline.Preprocess.MorphKernelSize = 4 }},
		{"noise threshold above one", func(c *Config) { c.Pipeline.Preprocess.NoiseThreshold = 1.5 }},
		{"negative blur sigma", func(c *Config) { c.Pipeline.Preprocess.BlurSigma = -1 }},
		{"zero level1 timeout", func(c *Config) { c.Pipeline.Level1TimeoutMs = 0 }},
		{"negative max decoders", func(c *Config) { c.Pipeline.MaxDecoders = -1 }},
		{"negative cache ttl", func(c *Config) { c.Cache.TTLSeconds = -1 }},
		{"zero fallback timeout", func(c *Config) { c.Fallback.TimeoutMs = 0 }},
		{"invalid port", func(c *Config) { c.Server.Port = 70000 }},
		{"zero batch concurrency", func(c *Config) { c.Batch.MaxConcurrency = 0 }},
		{"zero per-item timeout", func(c *Config) { c.Batch.PerItemTimeoutMs = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
