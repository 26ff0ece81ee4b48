package decoder

import (
	"image"

	"github.com/liyue201/goqr"
)

// GoQR decodes QR codes with the goqr port of the quirc library. Its cell
// classification tolerates low contrast and mild blur better than ZXing's
// binarizer, making it the second line of the set.
type GoQR struct{}

// NewGoQR creates the goqr-backed decoder.
func NewGoQR() *GoQR {
	return &GoQR{}
}

// ID implements Decoder.
func (g *GoQR) ID() string { return "goqr" }

// Decode implements Decoder.
func (g *GoQR) Decode(img image.Image) (payload string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			payload, ok = "", false
		}
	}()

	codes, err := goqr.Recognize(img)
	if err != nil || len(codes) == 0 {
		return "", false
	}
	if len(codes[0].Payload) == 0 {
		return "", false
	}
	return string(codes[0].Payload), true
}
