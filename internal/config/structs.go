package config

// Config represents the complete configuration for the qrdetect application.
// It covers all commands (image, batch, pdf, serve) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Detection pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Result cache configuration
	Cache CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`

	// Remote fallback service configuration
	Fallback FallbackConfig `mapstructure:"fallback" yaml:"fallback" json:"fallback"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// PipelineConfig contains detection cascade settings.
type PipelineConfig struct {
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`

	// MaxDecoders truncates the decoder priority list (0 = all).
	MaxDecoders int `mapstructure:"max_decoders" yaml:"max_decoders" json:"max_decoders"`

	// Per-level timeouts in milliseconds. Level 3 bounds the remote call.
	Level1TimeoutMs int `mapstructure:"level1_timeout_ms" yaml:"level1_timeout_ms" json:"level1_timeout_ms"`
	Level2TimeoutMs int `mapstructure:"level2_timeout_ms" yaml:"level2_timeout_ms" json:"level2_timeout_ms"`
	Level3TimeoutMs int `mapstructure:"level3_timeout_ms" yaml:"level3_timeout_ms" json:"level3_timeout_ms"`
}

// PreprocessConfig contains image preparation settings.
type PreprocessConfig struct {
	// CLAHE-style local contrast enhancement
	ClaheTiles     int     `mapstructure:"clahe_tiles" yaml:"clahe_tiles" json:"clahe_tiles"`
	ClaheClipLimit float64 `mapstructure:"clahe_clip_limit" yaml:"clahe_clip_limit" json:"clahe_clip_limit"`

	// Adaptive binarization window (region-local Otsu)
	BinarizeWindow int `mapstructure:"binarize_window" yaml:"binarize_window" json:"binarize_window"`

	// Morphological closing kernel
	MorphKernelSize int `mapstructure:"morph_kernel_size" yaml:"morph_kernel_size" json:"morph_kernel_size"`

	// Conditional denoising blur
	NoiseThreshold float64 `mapstructure:"noise_threshold" yaml:"noise_threshold" json:"noise_threshold"`
	BlurSigma      float64 `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`
}

// CacheConfig contains result cache settings.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds" yaml:"ttl_seconds" json:"ttl_seconds"`
	Capacity   int  `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
}

// FallbackConfig contains remote fallback detector settings.
type FallbackConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms" json:"timeout_ms"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	MaxConcurrency    int  `mapstructure:"max_concurrency" yaml:"max_concurrency" json:"max_concurrency"`
	PerItemTimeoutMs  int  `mapstructure:"per_item_timeout_ms" yaml:"per_item_timeout_ms" json:"per_item_timeout_ms"`
	ContinueOnError   bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
