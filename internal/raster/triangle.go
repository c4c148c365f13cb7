package raster

import (
	"image"
	"image/color"
	"math"

	"w3d-exporter/internal/mathutil"
)

// alphaCutoff discards nearly transparent texels so alpha tested foliage
// and decals do not write depth.
const alphaCutoff = 8

// vertex is a projected mesh vertex.
type vertex struct {
	x, y, z float64
	light   float64
	uv      mathutil.Vec2
}

// paint fills a mesh's triangles: a texture when one resolved, a flat color
// otherwise.
type paint struct {
	tex  *image.NRGBA
	flat color.NRGBA
}

func (p *paint) at(uv mathutil.Vec2) color.NRGBA {
	if p.tex == nil {
		return p.flat
	}
	return sampleBilinear(p.tex, uv)
}

// fill draws one triangle with depth testing, interpolating light and
// texture coordinates across it.
func (f *frame) fill(tri [3]vertex, p *paint, l *Light) {
	a, b, c := tri[0], tri[1], tri[2]
	area := (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
	if math.Abs(area) < 1e-8 {
		return
	}

	size := f.size()
	minX := max(int(math.Min(a.x, math.Min(b.x, c.x))), 0)
	maxX := min(int(math.Max(a.x, math.Max(b.x, c.x)))+1, size-1)
	minY := max(int(math.Min(a.y, math.Min(b.y, c.y))), 0)
	maxY := min(int(math.Max(a.y, math.Max(b.y, c.y)))+1, size-1)

	inv := 1 / area
	for y := minY; y <= maxY; y++ {
		fy := float64(y)
		for x := minX; x <= maxX; x++ {
			fx := float64(x)
			wa := ((b.x-fx)*(c.y-fy) - (b.y-fy)*(c.x-fx)) * inv
			wb := ((c.x-fx)*(a.y-fy) - (c.y-fy)*(a.x-fx)) * inv
			wc := 1 - wa - wb
			if wa < -0.001 || wb < -0.001 || wc < -0.001 {
				continue
			}

			z := wa*a.z + wb*b.z + wc*c.z
			i := y*size + x
			if z <= f.depth[i] {
				continue
			}

			uv := mathutil.Vec2{
				wa*a.uv[0] + wb*b.uv[0] + wc*c.uv[0],
				wa*a.uv[1] + wb*b.uv[1] + wc*c.uv[1],
			}
			col := p.at(uv)
			if col.A < alphaCutoff {
				continue
			}
			f.depth[i] = z

			light := wa*a.light + wb*b.light + wc*c.light
			f.img.SetNRGBA(x, y, color.NRGBA{
				R: l.expose(linear[col.R] * light),
				G: l.expose(linear[col.G] * light),
				B: l.expose(linear[col.B] * light),
				A: col.A,
			})
		}
	}
}
