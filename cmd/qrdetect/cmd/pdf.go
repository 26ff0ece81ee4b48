package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/factura-tools/qrdetect/internal/pdf"
	"github.com/factura-tools/qrdetect/internal/pipeline"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Detect QR codes in PDF documents",
	Long: `Extract the embedded images from PDF documents and run QR detection
over each one in page order.

Examples:
  qrdetect pdf invoice.pdf
  qrdetect pdf document.pdf --pages 1-3 --format json
  qrdetect pdf scan.pdf --first`,
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
		pages, _ := cmd.Flags().GetString("pages")
		stopOnFirst, _ := cmd.Flags().GetBool("first")

		det, _, err := buildDetector(cmd, cfg)
		if err != nil {
			return err
		}
		proc := pdf.NewProcessor(det, nil)

		opts := pdf.Options{
			Pages:       pages,
			StopOnFirst: stopOnFirst,
			Detect:      pipeline.Options{PreferSpeed: preferSpeed},
		}

		var outputs []string
		for _, path := range args {
			report, err := proc.Process(cmd.Context(), path, opts)
			if err != nil {
				return fmt.Errorf("failed to process %s: %w", path, err)
			}

			if format == outputFormatJSON {
				bts, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				outputs = append(outputs, string(bts))
				continue
			}
			outputs = append(outputs, formatReportText(report))
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

func formatReportText(report *pdf.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d embedded image(s)\n", report.Path, report.ImageCount)
	for _, pr := range report.Results {
		if pr.Result.Success {
			fmt.Fprintf(&b, "  page %d image %d: %s (decoder=%s, level=%d)\n",
				pr.Page, pr.Index, pr.Result.Payload, pr.Result.DecoderID, pr.Result.LevelUsed)
		} else {
			fmt.Fprintf(&b, "  page %d image %d: no QR code (%s)\n",
				pr.Page, pr.Index, pr.Result.Cause)
		}
	}
	fmt.Fprintf(&b, "  %d payload(s) found", len(report.Payloads))
	return b.String()
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	addDetectFlags(pdfCmd)
	pdfCmd.Flags().String("pages", "", "page range to scan, e.g. 1-3 or 1,4 (default all)")
	pdfCmd.Flags().Bool("first", false, "stop at the first detected payload")
}

// GetPdfCommand returns the pdf command for testing purposes.
func GetPdfCommand() *cobra.Command {
	return pdfCmd
}
