package imaging

import (
	"image"
	"image/draw"
)

// Grayscale returns a copy of src with every pixel replaced by the
// integer mean of its red, green and blue channels. Alpha is carried
// over untouched. The result is always an NRGBA image anchored at the
// origin, regardless of the source type or bounds.
func Grayscale(src image.Image) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	if n, ok := src.(*image.NRGBA); ok {
		// straight row copy — avoids the premultiply round trip,
		// which would zero out color under fully transparent pixels
		for y := 0; y < h; y++ {
			so := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], n.Pix[so:so+w*4])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	}

	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			// truncating division, not a luminosity weighting
			g := uint8((int(row[x]) + int(row[x+1]) + int(row[x+2])) / 3)
			row[x], row[x+1], row[x+2] = g, g, g
		}
	}

	return dst
}
