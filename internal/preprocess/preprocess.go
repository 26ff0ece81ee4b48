// Package preprocess prepares captured invoice photos for QR decoding.
//
// The stage order is fixed: grayscale conversion, noise measurement,
// clip-limited local contrast enhancement, region-local binarization,
// morphological closing, and a conditional mild blur. Each stage produces a
// new buffer; a stage never mutates its input.
package preprocess

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
	"github.com/factura-tools/qrdetect/internal/utils"
)

// Config holds preprocessing tunables. The defaults are empirical values
// from the reference deployment.
type Config struct {
	ClaheTiles      int     // tiles per axis for local histogram equalization
	ClaheClipLimit  float64 // histogram clip limit (>=1.0)
	BinarizeWindow  int     // window size for region-local Otsu thresholding
	MorphKernelSize int     // closing kernel size (odd)
	NoiseThreshold  float64 // noise level above which blur is applied
	BlurSigma       float64 // gaussian sigma for the conditional blur
}

// DefaultConfig returns the default preprocessing configuration.
func DefaultConfig() Config {
	return Config{
		ClaheTiles:      8,
		ClaheClipLimit:  2.0,
		BinarizeWindow:  32,
		MorphKernelSize: 3,
		NoiseThreshold:  0.15,
		BlurSigma:       1.0,
	}
}

// Applied records which transforms ran, for diagnostics and for reproducing
// detection misses offline.
type Applied struct {
	Grayscale        bool `json:"grayscale"`
	ContrastEnhanced bool `json:"contrast_enhanced"`
	Binarized        bool `json:"binarized"`
	MorphClosed      bool `json:"morph_closed"`
	Blurred          bool `json:"blurred"`
}

// Result is a decoding-optimized buffer plus diagnostics. It is owned by a
// single cascade execution and never mutated after creation.
type Result struct {
	Image      *image.Gray
	NoiseLevel float64
	Applied    Applied
}

// Preprocessor turns a raw decoded image into a Result.
type Preprocessor struct {
	cfg Config
}

// New creates a Preprocessor with the given configuration.
func New(cfg Config) *Preprocessor {
	if cfg.ClaheTiles <= 0 {
		cfg.ClaheTiles = DefaultConfig().ClaheTiles
	}
	if cfg.ClaheClipLimit < 1.0 {
		cfg.ClaheClipLimit = DefaultConfig().ClaheClipLimit
	}
	if cfg.BinarizeWindow < 4 {
		cfg.BinarizeWindow = DefaultConfig().BinarizeWindow
	}
	if cfg.MorphKernelSize <= 0 || cfg.MorphKernelSize%2 == 0 {
		cfg.MorphKernelSize = DefaultConfig().MorphKernelSize
	}
	if cfg.BlurSigma <= 0 {
		cfg.BlurSigma = DefaultConfig().BlurSigma
	}
	return &Preprocessor{cfg: cfg}
}

// Run executes the preprocessing chain on img.
func (p *Preprocessor) Run(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("preprocess: input image is nil")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("preprocess: input image has empty bounds")
	}

	gray := utils.ToGray(img)
	noise := EstimateNoise(gray)

	enhanced := EnhanceContrast(gray, p.cfg.ClaheTiles, p.cfg.ClaheClipLimit)
	binary := BinarizeAdaptive(enhanced, p.cfg.BinarizeWindow)
	closed := Close(binary, p.cfg.MorphKernelSize)

	applied := Applied{
		Grayscale:        true,
		ContrastEnhanced: true,
		Binarized:        true,
		MorphClosed:      true,
	}

	out := closed
	// Aggressive unconditional blurring destroys small QR modules, so the
	// blur only runs when measured grain exceeds the threshold.
	if noise > p.cfg.NoiseThreshold {
		out = utils.ToGray(imaging.Blur(closed, p.cfg.BlurSigma))
		applied.Blurred = true
	}

	return &Result{
		Image:      out,
		NoiseLevel: noise,
		Applied:    applied,
	}, nil
}
