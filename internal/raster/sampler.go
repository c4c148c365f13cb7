package raster

import (
	"image"
	"image/color"
	"math"

	"w3d-exporter/internal/mathutil"
)

// sampleBilinear filters tex at uv with repeat wrapping. V grows downward.
func sampleBilinear(tex *image.NRGBA, uv mathutil.Vec2) color.NRGBA {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{}
	}
	u := uv[0] - math.Floor(uv[0])
	v := uv[1] - math.Floor(uv[1])

	fx, fy := u*float64(w-1), v*float64(h-1)
	x0, y0 := int(fx), int(fy)
	x1, y1 := (x0+1)%w, (y0+1)%h
	dx, dy := fx-float64(x0), fy-float64(y0)

	texel := func(x, y int) []uint8 {
		i := tex.PixOffset(tex.Rect.Min.X+x, tex.Rect.Min.Y+y)
		return tex.Pix[i : i+4]
	}
	a, b, c, d := texel(x0, y0), texel(x1, y0), texel(x0, y1), texel(x1, y1)

	var out [4]uint8
	for k := range out {
		top := float64(a[k])*(1-dx) + float64(b[k])*dx
		bottom := float64(c[k])*(1-dx) + float64(d[k])*dx
		out[k] = clamp8(top*(1-dy) + bottom*dy)
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}
