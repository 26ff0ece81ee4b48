package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	data := encodePNG(t, img)

	decoded, meta, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 40, meta.Width)
	assert.Equal(t, 20, meta.Height)
	assert.InDelta(t, 2.0, meta.AspectRatio, 1e-9)
	assert.Equal(t, int64(len(data)), meta.SizeBytes)
	assert.Equal(t, 40, decoded.Bounds().Dx())
}

func TestDecodeImageInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image at all")},
		{"truncated png", encodePNG(t, image.NewGray(image.Rect(0, 0, 8, 8)))[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeImage(tt.data)
			require.Error(t, err)
			var imgErr *ImageError
			assert.ErrorAs(t, err, &imgErr)
		})
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, image.NewGray(image.Rect(0, 0, 10, 10))), 0o600))

	_, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 10, meta.Width)

	_, _, err = LoadImage(filepath.Join(dir, "sample.tiff"))
	assert.Error(t, err, "unsupported extension")

	_, _, err = LoadImage("")
	assert.Error(t, err)
}

func TestHashImageBytes(t *testing.T) {
	a := HashImageBytes([]byte("payload-a"))
	b := HashImageBytes([]byte("payload-b"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, HashImageBytes([]byte("payload-a")))
}

func TestToGray(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	g := ToGray(src)
	assert.Equal(t, 4, g.Bounds().Dx())
	// All pixels identical in the source, so identical in the output.
	first := g.GrayAt(0, 0).Y
	for y := range 4 {
		for x := range 4 {
			assert.Equal(t, first, g.GrayAt(x, y).Y)
		}
	}

	// Converting an existing gray image returns a copy, not the same backing array.
	g2 := ToGray(g)
	g2.Pix[0] = 255 - g2.Pix[0]
	assert.NotEqual(t, g2.Pix[0], g.Pix[0])
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("scan.png"))
	assert.True(t, IsSupportedImage("SCAN.JPG"))
	assert.True(t, IsSupportedImage("inbox/photo.jpeg"))
	assert.False(t, IsSupportedImage("doc.pdf"))
	assert.False(t, IsSupportedImage("notes.txt"))
	assert.False(t, IsSupportedImage("noext"))
}

func TestCloneGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 3))
	g.Pix[4] = 200

	c := CloneGray(g)
	require.Equal(t, g.Bounds(), c.Bounds())
	assert.Equal(t, g.Pix, c.Pix)

	c.Pix[4] = 10
	assert.Equal(t, uint8(200), g.Pix[4])
}

func TestMeanStdDev(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 2))
	g.Pix = []uint8{0, 0, 255, 255}
	mean, std := MeanStdDev(g)
	assert.InDelta(t, 127.5, mean, 1e-9)
	assert.InDelta(t, 127.5, std, 1e-9)
}
