package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/factura-tools/qrdetect/internal/pipeline"
	"github.com/factura-tools/qrdetect/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Detect QR codes across many images concurrently",
	Long: `Run the detection cascade over many image files under a concurrency cap.

Each file is an independent item; a file that fails to decode or times out
degrades only its own result.

Examples:
  qrdetect batch scans/*.png
  qrdetect batch inbox/
  qrdetect batch *.jpg --concurrency 8 --format json
  qrdetect batch inbox/*.png --item-timeout 5s`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()

		format, _ := cmd.Flags().GetString("format")
		outputFile, _ := cmd.Flags().GetString("output")
		preferSpeed, _ := cmd.Flags().GetBool("prefer-speed")
		itemTimeout, _ := cmd.Flags().GetDuration("item-timeout")

		concurrency := cfg.Batch.MaxConcurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency, _ = cmd.Flags().GetInt("concurrency")
		}

		det, _, err := buildDetector(cmd, cfg)
		if err != nil {
			return err
		}

		paths, err := expandInputs(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no supported image files found")
		}

		items := make([]pipeline.BatchItem, 0, len(paths))
		for _, path := range paths {
			data, err := os.ReadFile(path) //nolint:gosec // user-provided input path
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			items = append(items, pipeline.BatchItem{ID: path, Image: data})
		}

		opts := pipeline.BatchOptions{
			MaxConcurrency: concurrency,
			PerItemTimeout: itemTimeout,
			ItemOptions:    pipeline.Options{PreferSpeed: preferSpeed},
		}
		if opts.PerItemTimeout <= 0 {
			opts.PerItemTimeout = time.Duration(cfg.Batch.PerItemTimeoutMs) * time.Millisecond
		}

		out, err := det.DetectBatch(cmd.Context(), items, opts)
		if err != nil {
			return fmt.Errorf("batch detection failed: %w", err)
		}

		var rendered string
		if format == outputFormatJSON {
			bts, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			rendered = string(bts)
		} else {
			rendered = formatBatchText(out)
		}

		if outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(rendered+"\n"), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", outputFile)
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

// expandInputs resolves the argument list to image file paths. Directory
// arguments are expanded one level deep to their supported image files;
// explicit file arguments are passed through untouched so a bad path still
// surfaces as a read error.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(arg, entry.Name())
			if utils.IsSupportedImage(path) {
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}

func formatBatchText(out *pipeline.BatchOutput) string {
	var b []byte
	for _, r := range out.Results {
		b = append(b, formatTextResult(r.ID, r.Result)...)
		b = append(b, '\n')
	}
	b = append(b, fmt.Sprintf("%d/%d detected in %s (avg %s/item)",
		out.Summary.Successes, out.Summary.Total,
		out.Summary.TotalTime.Round(time.Millisecond),
		out.Summary.AvgTime.Round(time.Millisecond))...)
	return string(b)
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addDetectFlags(batchCmd)
	batchCmd.Flags().IntP("concurrency", "c", 0, "maximum images processed concurrently (0 = config default)")
	batchCmd.Flags().Duration("item-timeout", 0, "per-item detection timeout (0 = config default)")

	_ = viper.BindPFlag("batch.max_concurrency", batchCmd.Flags().Lookup("concurrency"))
}

// GetBatchCommand returns the batch command for testing purposes.
func GetBatchCommand() *cobra.Command {
	return batchCmd
}
