package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/factura-tools/qrdetect/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Detect QR codes in image files",
	Long: `Detect and decode QR codes in one or more image files.

Supported formats: JPEG, PNG, BMP, GIF

Examples:
  qrdetect image invoice.png
  qrdetect image *.jpg --format json
  qrdetect image scan.png --prefer-speed --output results.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()

		format, _ := cmd.Flags().GetString("format")
		if format != outputFormatText && format != outputFormatJSON {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json)", format)
		}
		outputFile, _ := cmd.Flags().GetString("output")
		preferSpeed, _ := cmd.Flags().GetBool("prefer-speed")
		maxDecoders, _ := cmd.Flags().GetInt("max-decoders")

		det, _, err := buildDetector(cmd, cfg)
		if err != nil {
			return err
		}

		opts := pipeline.Options{PreferSpeed: preferSpeed, MaxDecoders: maxDecoders}

		var outputs []string
		for _, path := range args {
			data, err := os.ReadFile(path) //nolint:gosec // user-provided input path
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			res, err := det.Detect(cmd.Context(), data, opts)
			if err != nil {
				if errors.Is(err, pipeline.ErrInvalidImage) {
					return fmt.Errorf("%s is not a valid image: %w", path, err)
				}
				return fmt.Errorf("detection failed for %s: %w", path, err)
			}

			switch format {
			case outputFormatJSON:
				obj := struct {
					File   string                    `json:"file"`
					Result *pipeline.DetectionResult `json:"result"`
				}{File: path, Result: res}
				bts, err := json.MarshalIndent(obj, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				outputs = append(outputs, string(bts))
			default:
				outputs = append(outputs, formatTextResult(path, res))
			}
		}

		final := strings.Join(outputs, "\n")
		if outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(final+"\n"), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", outputFile)
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), final)
		return err
	},
}

// formatTextResult renders one detection as a human-readable line.
func formatTextResult(path string, res *pipeline.DetectionResult) string {
	if !res.Success {
		return fmt.Sprintf("%s: no QR code found (%s)", path, res.Cause)
	}
	var extra string
	if res.Cached {
		extra = ", cached"
	} else if res.RotationAngle != 0 {
		extra = fmt.Sprintf(", rotated %d", res.RotationAngle)
	}
	return fmt.Sprintf("%s: %s (decoder=%s, level=%d%s)",
		path, res.Payload, res.DecoderID, res.LevelUsed, extra)
}

func addDetectFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("prefer-speed", false, "skip rotation retries and the remote fallback")
	cmd.Flags().Int("max-decoders", 0, "limit the number of decoders tried (0 = all)")
}

func init() {
	rootCmd.AddCommand(imageCmd)

	addDetectFlags(imageCmd)
	_ = viper.BindPFlag("pipeline.max_decoders", imageCmd.Flags().Lookup("max-decoders"))
}

// GetImageCommand returns the image command for testing purposes.
func GetImageCommand() *cobra.Command {
	return imageCmd
}
