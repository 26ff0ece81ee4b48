package decoder

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXing decodes QR codes with the gozxing port of the ZXing library. It is
// the fastest of the set on clean captures and runs first.
type ZXing struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewZXing creates the ZXing-backed decoder.
func NewZXing() *ZXing {
	return &ZXing{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// ID implements Decoder.
func (z *ZXing) ID() string { return "zxing" }

// Decode implements Decoder.
func (z *ZXing) Decode(img image.Image) (payload string, ok bool) {
	defer func() {
		// Library panics on pathological input count as a miss.
		if r := recover(); r != nil {
			payload, ok = "", false
		}
	}()

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return "", false
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bitmap, z.hints)
	if err != nil || result == nil {
		return "", false
	}
	return result.GetText(), true
}
