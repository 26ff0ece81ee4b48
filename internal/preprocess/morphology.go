package preprocess

import (
	"image"
)

// Close applies morphological closing (dilate then erode) with a square
// kernel. Closing bridges the single-pixel gaps binarization noise punches
// into QR modules.
func Close(g *image.Gray, kernelSize int) *image.Gray {
	if kernelSize <= 1 {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	return erode(dilate(g, kernelSize), kernelSize)
}

// dilate expands bright regions.
func dilate(g *image.Gray, kernelSize int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	half := kernelSize / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			maxVal := uint8(0)
			for ky := -half; ky <= half; ky++ {
				ny := y + ky
				if ny < 0 || ny >= h {
					continue
				}
				row := ny * g.Stride
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx < 0 || nx >= w {
						continue
					}
					if v := g.Pix[row+nx]; v > maxVal {
						maxVal = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = maxVal
		}
	}
	return out
}

// erode shrinks bright regions.
func erode(g *image.Gray, kernelSize int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	half := kernelSize / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			minVal := uint8(255)
			for ky := -half; ky <= half; ky++ {
				ny := y + ky
				if ny < 0 || ny >= h {
					continue
				}
				row := ny * g.Stride
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if nx < 0 || nx >= w {
						continue
					}
					if v := g.Pix[row+nx]; v < minVal {
						minVal = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = minVal
		}
	}
	return out
}
