package mesh

import "w3d-exporter/internal/mathutil"

// Box builds an axis-aligned box of 8 shared vertices and 6 flat quads with
// outward counter-clockwise winding. It carries one UV layer that projects
// each vertex onto the XY extent of the box, so every vertex has a single
// coordinate across all of its corners.
func Box(min, max mathutil.Vec3) *Mesh {
	m := &Mesh{}
	center := min.Add(max).Scale(0.5)
	for i := 0; i < 8; i++ {
		p := mathutil.Vec3{min[0], min[1], min[2]}
		if i&1 != 0 {
			p[0] = max[0]
		}
		if i&2 != 0 {
			p[1] = max[1]
		}
		if i&4 != 0 {
			p[2] = max[2]
		}
		m.Vertices = append(m.Vertices, Vertex{Position: p, Normal: p.Sub(center).Normalize()})
	}

	faces := [6][4]int{
		{0, 2, 3, 1}, // -Z
		{4, 5, 7, 6}, // +Z
		{0, 1, 5, 4}, // -Y
		{2, 6, 7, 3}, // +Y
		{0, 4, 6, 2}, // -X
		{1, 3, 7, 5}, // +X
	}
	uv := UVLayer{Name: "UVMap"}
	ext := max.Sub(min)
	for _, f := range faces {
		a := m.Vertices[f[0]].Position
		b := m.Vertices[f[1]].Position
		c := m.Vertices[f[2]].Position
		m.Polygons = append(m.Polygons, Polygon{
			Vertices: []int{f[0], f[1], f[2], f[3]},
			Normal:   FaceNormal(a, b, c),
		})
		for _, v := range f {
			p := m.Vertices[v].Position.Sub(min)
			uv.UV = append(uv.UV, mathutil.Vec2{safeDiv(p[0], ext[0]), safeDiv(p[1], ext[1])})
		}
	}
	m.UVLayers = []UVLayer{uv}
	return m
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
