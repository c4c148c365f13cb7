package mesh

import (
	"slices"

	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/report"
)

type cornerRef struct {
	poly, k int
}

type uvGroup struct {
	uvs     []mathutil.Vec2
	corners []cornerRef
}

// SplitMultiUV duplicates every vertex whose corners disagree on a texture
// coordinate in any UV layer. The corners of such a vertex are grouped by
// their coordinates across all layers; the first group keeps the vertex and
// each further group is re-pointed at a fresh copy appended to m.Vertices.
// It returns the number of vertices added. A mesh without UV layers is left
// untouched.
func SplitMultiUV(m *Mesh) int {
	if len(m.UVLayers) == 0 {
		return 0
	}

	starts := m.CornerStarts()
	groups := make([][]uvGroup, len(m.Vertices))
	for p, poly := range m.Polygons {
		for k, v := range poly.Vertices {
			c := starts[p] + k
			uvs := make([]mathutil.Vec2, len(m.UVLayers))
			for l := range m.UVLayers {
				uvs[l] = m.UVLayers[l].UV[c]
			}

			found := false
			for g := range groups[v] {
				if slices.Equal(groups[v][g].uvs, uvs) {
					groups[v][g].corners = append(groups[v][g].corners, cornerRef{p, k})
					found = true
					break
				}
			}
			if !found {
				groups[v] = append(groups[v], uvGroup{uvs: uvs, corners: []cornerRef{{p, k}}})
			}
		}
	}

	added := 0
	for v, gs := range groups {
		if len(gs) < 2 {
			continue
		}
		for _, g := range gs[1:] {
			nv := len(m.Vertices)
			m.Vertices = append(m.Vertices, m.Vertices[v].clone())
			for _, ref := range g.corners {
				m.Polygons[ref.poly].Vertices[ref.k] = nv
			}
			added++
		}
	}
	return added
}

// Triangulate replaces every polygon by a fan of triangles around its first
// corner, keeping the original winding. Texture coordinates and explicit
// corner normals follow their corners. Polygons with fewer than three
// corners are dropped.
func Triangulate(m *Mesh) {
	starts := m.CornerStarts()
	polys := make([]Polygon, 0, len(m.Polygons))
	layers := make([][]mathutil.Vec2, len(m.UVLayers))

	for p, poly := range m.Polygons {
		n := len(poly.Vertices)
		explicit := len(poly.CornerNormals) == n
		for k := 1; k+1 < n; k++ {
			idx := [3]int{0, k, k + 1}
			tri := Polygon{
				Vertices: []int{poly.Vertices[idx[0]], poly.Vertices[idx[1]], poly.Vertices[idx[2]]},
				Normal:   poly.Normal,
				Material: poly.Material,
				Smooth:   poly.Smooth,
			}
			if explicit {
				tri.CornerNormals = []mathutil.Vec3{
					poly.CornerNormals[idx[0]], poly.CornerNormals[idx[1]], poly.CornerNormals[idx[2]],
				}
			}
			for l := range m.UVLayers {
				for _, j := range idx {
					layers[l] = append(layers[l], m.UVLayers[l].UV[starts[p]+j])
				}
			}
			polys = append(polys, tri)
		}
	}

	m.Polygons = polys
	for l := range m.UVLayers {
		m.UVLayers[l].UV = layers[l]
	}
}

// Normalize splits multi-UV vertices and triangulates m in place, reporting
// a split through rep.
func Normalize(m *Mesh, name string, rep report.Reporter) {
	if n := SplitMultiUV(m); n > 0 {
		rep.Info("mesh %s: %d vertices have been split because of multiple uv coordinates per vertex!", name, n)
	}
	Triangulate(m)
}
