// Package postprocess finishes rendered previews.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample shrinks a supersampled render by factor with Catmull-Rom
// filtering. Color is filtered premultiplied so transparent pixels do not
// bleed dark halos into edges.
func Downsample(img *image.NRGBA, factor int) *image.NRGBA {
	b := img.Bounds()
	if factor <= 1 || b.Dx() < factor || b.Dy() < factor {
		return img
	}

	src := image.NewRGBA(b)
	draw.Draw(src, b, img, b.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	return unpremultiply(dst)
}

func unpremultiply(src *image.RGBA) *image.NRGBA {
	out := image.NewNRGBA(src.Bounds())
	for i := 0; i+3 < len(src.Pix); i += 4 {
		a := src.Pix[i+3]
		out.Pix[i+3] = a
		if a <= 1 {
			continue
		}
		inv := 255.0 / float64(a)
		out.Pix[i] = clamp8(float64(src.Pix[i]) * inv)
		out.Pix[i+1] = clamp8(float64(src.Pix[i+1]) * inv)
		out.Pix[i+2] = clamp8(float64(src.Pix[i+2]) * inv)
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
