package preprocess

import (
	"image"
)

// BinarizeAdaptive reduces a grayscale image to two classes using
// region-local Otsu thresholding. QR modules are inherently bi-level, so a
// per-window threshold tolerates uneven lighting that would defeat a single
// global cut.
func BinarizeAdaptive(g *image.Gray, window int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	if window < 4 {
		window = 4
	}

	for wy := 0; wy < h; wy += window {
		for wx := 0; wx < w; wx += window {
			x1 := min(wx+window, w)
			y1 := min(wy+window, h)
			binarizeWindow(g, out, wx, wy, x1, y1)
		}
	}
	return out
}

// binarizeWindow thresholds one window of src into dst.
func binarizeWindow(src, dst *image.Gray, x0, y0, x1, y1 int) {
	var hist [256]int
	total := 0
	for y := y0; y < y1; y++ {
		row := y * src.Stride
		for x := x0; x < x1; x++ {
			hist[src.Pix[row+x]]++
			total++
		}
	}

	thresh := otsuThreshold(hist, total)
	for y := y0; y < y1; y++ {
		srcRow := y * src.Stride
		dstRow := y * dst.Stride
		for x := x0; x < x1; x++ {
			if src.Pix[srcRow+x] > thresh {
				dst.Pix[dstRow+x] = 255
			} else {
				dst.Pix[dstRow+x] = 0
			}
		}
	}
}

// otsuThreshold finds the threshold maximizing between-class variance.
func otsuThreshold(hist [256]int, total int) uint8 {
	if total == 0 {
		return 127
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	bestThresh := uint8(127)
	bestVar := -1.0

	for t := range 256 {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])

		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			bestThresh = uint8(t) //nolint:gosec // t < 256
		}
	}
	return bestThresh
}
