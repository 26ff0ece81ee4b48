// Package testutil generates synthetic QR and noise fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	qrgen "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"
)

// QRImage renders payload as an upright QR code of the given pixel size with
// a standard quiet zone.
func QRImage(t *testing.T, payload string, size int) image.Image {
	t.Helper()

	code, err := qrgen.New(payload, qrgen.Medium)
	require.NoError(t, err, "encode QR payload %q", payload)
	return code.Image(size)
}

// QRImageBytes renders payload as a PNG-encoded QR code.
func QRImageBytes(t *testing.T, payload string, size int) []byte {
	t.Helper()

	code, err := qrgen.New(payload, qrgen.Medium)
	require.NoError(t, err)
	data, err := code.PNG(size)
	require.NoError(t, err)
	return data
}

// Rotate returns img rotated counterclockwise by angle degrees on a white
// background.
func Rotate(img image.Image, angle float64) image.Image {
	switch angle {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return imaging.Rotate(img, angle, color.White)
	}
}

// NoiseImage produces a pure-noise image with no decodable structure.
// The seed makes fixtures reproducible across runs.
func NoiseImage(width, height int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic fixture
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256)) //nolint:gosec // bounded
	}
	return img
}

// AddSaltPepper flips a fraction of pixels to pure black or white, simulating
// sensor grain on a compressed capture.
func AddSaltPepper(img image.Image, fraction float64, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic fixture
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	n := int(fraction * float64(b.Dx()*b.Dy()))
	for range n {
		x := rng.Intn(b.Dx())
		y := rng.Intn(b.Dy())
		if rng.Intn(2) == 0 {
			out.Set(x, y, color.Black)
		} else {
			out.Set(x, y, color.White)
		}
	}
	return out
}

// EncodePNG serializes an image to PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
