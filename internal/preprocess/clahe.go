package preprocess

import (
	"image"

	"github.com/factura-tools/qrdetect/internal/utils"
)

// EnhanceContrast applies tiled, clip-limited histogram equalization.
//
// The image is divided into tiles x tiles regions. Each tile's histogram is
// clipped at clipLimit times the mean bin height, the excess is redistributed
// uniformly, and the tile is remapped through the resulting CDF. Clipping
// keeps near-flat regions from having their noise stretched into false edges.
// Input that already spans a wide value range is returned unchanged.
func EnhanceContrast(g *image.Gray, tiles int, clipLimit float64) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()

	// An image whose values already span a wide range gains nothing from
	// equalization; remapping it per tile only introduces seams.
	if _, stddev := utils.MeanStdDev(g); stddev >= 64 {
		return utils.CloneGray(g)
	}

	if tiles <= 0 {
		tiles = 1
	}
	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles
	if tileW == 0 || tileH == 0 {
		return utils.CloneGray(g)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))

	for ty := 0; ty < h; ty += tileH {
		for tx := 0; tx < w; tx += tileW {
			x1 := min(tx+tileW, w)
			y1 := min(ty+tileH, h)
			equalizeTile(g, out, tx, ty, x1, y1, clipLimit)
		}
	}
	return out
}

// equalizeTile remaps one tile region of src into dst.
func equalizeTile(src, dst *image.Gray, x0, y0, x1, y1 int, clipLimit float64) {
	var hist [256]int
	total := 0
	for y := y0; y < y1; y++ {
		row := y * src.Stride
		for x := x0; x < x1; x++ {
			hist[src.Pix[row+x]]++
			total++
		}
	}
	if total == 0 {
		return
	}

	// Clip bins and pool the excess.
	limit := int(clipLimit * float64(total) / 256.0)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}

	// Redistribute clipped mass uniformly across all bins. The remainder
	// is placed at even intervals; dumping it into consecutive low bins
	// would skew the cumulative histogram toward dark values and compress
	// low-contrast tiles instead of stretching them.
	share := excess / 256
	for i := range hist {
		hist[i] += share
	}
	if rem := excess % 256; rem > 0 {
		step := 256 / rem
		if step < 1 {
			step = 1
		}
		for i, placed := 0, 0; i < 256 && placed < rem; i += step {
			hist[i]++
			placed++
		}
	}

	// Build the equalization lookup from the cumulative histogram.
	var lut [256]uint8
	cum := 0
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8(cum * 255 / total) //nolint:gosec // bounded by construction
	}

	for y := y0; y < y1; y++ {
		srcRow := y * src.Stride
		dstRow := y * dst.Stride
		for x := x0; x < x1; x++ {
			dst.Pix[dstRow+x] = lut[src.Pix[srcRow+x]]
		}
	}
}
