package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/factura-tools/qrdetect/internal/pipeline"
)

// Options control one document run.
type Options struct {
	// Pages restricts extraction, e.g. "1-3,7". Empty means all pages.
	Pages string
	// StopOnFirst ends the run at the first detected payload.
	StopOnFirst bool
	// Detect is forwarded to every per-image detection.
	Detect pipeline.Options
}

// PageResult is the detection outcome for one embedded image.
type PageResult struct {
	Page   int                       `json:"page"`
	Index  int                       `json:"index"`
	Result *pipeline.DetectionResult `json:"result"`
}

// Report summarizes a document run.
type Report struct {
	Path       string       `json:"path"`
	ImageCount int          `json:"image_count"`
	Results    []PageResult `json:"results"`
	Payloads   []string     `json:"payloads,omitempty"`
}

// Processor feeds a document's embedded images through the detection
// cascade.
type Processor struct {
	detector *pipeline.Detector
	logger   *slog.Logger
	extract  func(path, pageRange string) ([]PageImage, error)
}

// NewProcessor wires a processor to an existing detector. The detector's
// cache and stats registry are shared with direct image detection.
func NewProcessor(detector *pipeline.Detector, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		detector: detector,
		logger:   logger,
		extract:  ExtractPageImages,
	}
}

// Process extracts the document's images and runs detection over each in
// page order. Extraction failures abort the run; per-image failures only
// mark that image's result.
func (p *Processor) Process(ctx context.Context, path string, opts Options) (*Report, error) {
	images, err := p.extract(path, opts.Pages)
	if err != nil {
		return nil, err
	}

	report := &Report{Path: path, ImageCount: len(images)}
	for _, pi := range images {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		data, err := encodePNG(pi.Image)
		if err != nil {
			p.logger.Warn("skipping unencodable page image",
				"page", pi.Page, "index", pi.Index, "error", err)
			continue
		}

		res, err := p.detector.Detect(ctx, data, opts.Detect)
		if err != nil {
			res = &pipeline.DetectionResult{Cause: pipeline.CauseInvalidImage}
		}
		report.Results = append(report.Results, PageResult{
			Page:   pi.Page,
			Index:  pi.Index,
			Result: res,
		})

		if res.Success {
			report.Payloads = append(report.Payloads, res.Payload)
			p.logger.Debug("payload found in document",
				"page", pi.Page, "index", pi.Index, "decoder", res.DecoderID)
			if opts.StopOnFirst {
				break
			}
		}
	}
	return report, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	return buf.Bytes(), nil
}
