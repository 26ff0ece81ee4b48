package preprocess

import (
	"image"
	"sort"
)

// EstimateNoise returns a 0-1 heuristic measure of high-frequency grain.
//
// It computes the mean absolute residual between the image and its 3x3
// median filter, normalized by the pixel range. The median preserves the
// blocky step edges of QR modules, so structured content scores low while
// salt-and-pepper or sensor grain scores high.
func EstimateNoise(g *image.Gray) float64 {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var sum float64
	var count int
	window := make([]uint8, 0, 9)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				row := (y+dy)*g.Stride + (x - 1)
				window = append(window, g.Pix[row], g.Pix[row+1], g.Pix[row+2])
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			med := window[4]

			v := g.Pix[y*g.Stride+x]
			if v > med {
				sum += float64(v - med)
			} else {
				sum += float64(med - v)
			}
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) / 255.0
}
