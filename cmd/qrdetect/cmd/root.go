package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/factura-tools/qrdetect/internal/config"
	"github.com/factura-tools/qrdetect/internal/fallback"
	"github.com/factura-tools/qrdetect/internal/logging"
	"github.com/factura-tools/qrdetect/internal/pipeline"
	"github.com/factura-tools/qrdetect/internal/preprocess"
	"github.com/factura-tools/qrdetect/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "qrdetect",
	Short: "QR code detection pipeline for invoice images",
	Long: `Detect and decode QR codes in scanned invoice images and PDFs.

The detection cascade tries fast native decoders first, retries against
rotated variants, and finally consults a remote detection service when
one is configured.

Examples:
  qrdetect image invoice.png
  qrdetect batch scans/*.png --concurrency 8
  qrdetect pdf document.pdf --pages 1-3
  qrdetect serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, _ := cmd.Flags().GetBool("version")
		if v {
			ver, commit, date := version.Info()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "qrdetect version %s\nCommit: %s\nDate: %s\n", ver, commit, date)
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/qrdetect, /etc/qrdetect)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("fallback-endpoint", "", "remote fallback service base URL (empty disables level 3)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "disable the result cache")
	rootCmd.PersistentFlags().Bool("version", false, "print version information and exit")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("fallback.endpoint", rootCmd.PersistentFlags().Lookup("fallback-endpoint"))

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if globalConfig == nil {
			initConfig()
		}

		level := globalConfig.LogLevel
		if globalConfig.Verbose {
			level = "debug"
		}
		logger, err := logging.New(logging.Config{Level: level, Format: globalConfig.LogFormat})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
			os.Exit(1)
		}
		slog.SetDefault(logger)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}

	// Reload so flag bindings registered after the initial load are included.
	var cfg config.Config
	if err := GetConfigLoader().GetViper().Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling updated configuration: %v\n", err)
		return globalConfig
	}
	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// buildDetector assembles the detection pipeline from configuration. The
// no-cache flag and fallback endpoint apply across all commands.
func buildDetector(cmd *cobra.Command, cfg *config.Config) (*pipeline.Detector, *fallback.Client, error) {
	b := pipeline.NewBuilder().
		WithPreprocess(preprocess.Config{
			ClaheTiles:      cfg.Pipeline.Preprocess.ClaheTiles,
			ClaheClipLimit:  cfg.Pipeline.Preprocess.ClaheClipLimit,
			BinarizeWindow:  cfg.Pipeline.Preprocess.BinarizeWindow,
			MorphKernelSize: cfg.Pipeline.Preprocess.MorphKernelSize,
			NoiseThreshold:  cfg.Pipeline.Preprocess.NoiseThreshold,
			BlurSigma:       cfg.Pipeline.Preprocess.BlurSigma,
		}).
		WithMaxDecoders(cfg.Pipeline.MaxDecoders).
		WithLevelTimeouts(
			time.Duration(cfg.Pipeline.Level1TimeoutMs)*time.Millisecond,
			time.Duration(cfg.Pipeline.Level2TimeoutMs)*time.Millisecond,
			time.Duration(cfg.Pipeline.Level3TimeoutMs)*time.Millisecond,
		).
		WithLogger(slog.Default())

	noCache, _ := cmd.Flags().GetBool("no-cache")
	if !cfg.Cache.Enabled || noCache {
		b = b.WithCache(0, 0)
	} else {
		b = b.WithCache(cfg.Cache.Capacity, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}

	var client *fallback.Client
	if cfg.Fallback.Endpoint != "" {
		client = fallback.New(fallback.Config{
			Endpoint: cfg.Fallback.Endpoint,
			Timeout:  time.Duration(cfg.Fallback.TimeoutMs) * time.Millisecond,
		})
		b = b.WithFallback(client)
	}

	det, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build detection pipeline: %w", err)
	}
	return det, client, nil
}
