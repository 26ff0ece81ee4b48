package decoder

import (
	"bytes"
	"image"
	"image/png"

	qrtt "github.com/tuotoo/qrcode"
)

// Tuotoo decodes QR codes with the tuotoo/qrcode library. Its internal
// thresholding recovers some codes the other two reject in heavily
// compressed captures; it runs last because it re-reads the image from an
// encoded stream and is the slowest of the set.
type Tuotoo struct{}

// NewTuotoo creates the tuotoo-backed decoder.
func NewTuotoo() *Tuotoo {
	return &Tuotoo{}
}

// ID implements Decoder.
func (t *Tuotoo) ID() string { return "tuotoo" }

// Decode implements Decoder.
func (t *Tuotoo) Decode(img image.Image) (payload string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			payload, ok = "", false
		}
	}()

	// The library consumes an encoded image stream rather than image.Image.
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", false
	}

	matrix, err := qrtt.Decode(&buf)
	if err != nil || matrix == nil || matrix.Content == "" {
		return "", false
	}
	return matrix.Content, true
}
