package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "qrdetect"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "QRDETECT"
)

// Loader handles loading configuration from files, environment, and flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader backed by the global viper
// instance so cobra flag bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewIsolatedLoader creates a loader with its own viper instance.
// Used by tests to avoid global state leaking across cases.
func NewIsolatedLoader() *Loader {
	return &Loader{v: viper.New()}
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// Load reads configuration from files and environment variables, applies
// defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// addConfigPaths registers the search locations for the config file.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "qrdetect"))
	}
	l.v.AddConfigPath("/etc/qrdetect")
}

// setupEnvironmentVariables configures QRDETECT_* env var handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// setDefaults seeds viper with DefaultConfig values so unmarshaling always
// produces a runnable configuration.
func (l *Loader) setDefaults() {
	def := DefaultConfig()

	l.v.SetDefault("log_level", def.LogLevel)
	l.v.SetDefault("log_format", def.LogFormat)
	l.v.SetDefault("verbose", def.Verbose)

	l.v.SetDefault("pipeline.preprocess.clahe_tiles", def.Pipeline.Preprocess.ClaheTiles)
	l.v.SetDefault("pipeline.preprocess.clahe_clip_limit", def.Pipeline.Preprocess.ClaheClipLimit)
	l.v.SetDefault("pipeline.preprocess.binarize_window", def.Pipeline.Preprocess.BinarizeWindow)
	l.v.SetDefault("pipeline.preprocess.morph_kernel_size", def.Pipeline.Preprocess.MorphKernelSize)
	l.v.SetDefault("pipeline.preprocess.noise_threshold", def.Pipeline.Preprocess.NoiseThreshold)
	l.v.SetDefault("pipeline.preprocess.blur_sigma", def.Pipeline.Preprocess.BlurSigma)
	l.v.SetDefault("pipeline.max_decoders", def.Pipeline.MaxDecoders)
	l.v.SetDefault("pipeline.level1_timeout_ms", def.Pipeline.Level1TimeoutMs)
	l.v.SetDefault("pipeline.level2_timeout_ms", def.Pipeline.Level2TimeoutMs)
	l.v.SetDefault("pipeline.level3_timeout_ms", def.Pipeline.Level3TimeoutMs)

	l.v.SetDefault("cache.enabled", def.Cache.Enabled)
	l.v.SetDefault("cache.ttl_seconds", def.Cache.TTLSeconds)
	l.v.SetDefault("cache.capacity", def.Cache.Capacity)

	l.v.SetDefault("fallback.endpoint", def.Fallback.Endpoint)
	l.v.SetDefault("fallback.timeout_ms", def.Fallback.TimeoutMs)

	l.v.SetDefault("server.host", def.Server.Host)
	l.v.SetDefault("server.port", def.Server.Port)
	l.v.SetDefault("server.cors_origin", def.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", def.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", def.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)

	l.v.SetDefault("batch.max_concurrency", def.Batch.MaxConcurrency)
	l.v.SetDefault("batch.per_item_timeout_ms", def.Batch.PerItemTimeoutMs)
	l.v.SetDefault("batch.continue_on_error", def.Batch.ContinueOnError)
}
