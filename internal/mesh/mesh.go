// Package mesh holds the editable polygon mesh the exporter works on and
// the normalization steps that turn it into a triangle list with one
// texture coordinate per vertex and UV layer.
package mesh

import "w3d-exporter/internal/mathutil"

// GroupWeight is a vertex's membership in one vertex group.
// Group indexes the owning object's vertex group names.
type GroupWeight struct {
	Group  int
	Weight float64
}

// Vertex is a shared mesh vertex.
type Vertex struct {
	Position mathutil.Vec3
	Normal   mathutil.Vec3
	Groups   []GroupWeight
}

// Polygon is a face with its corners in counter-clockwise order.
// When CornerNormals is set it has one entry per corner and overrides the
// smooth/flat normal choice.
type Polygon struct {
	Vertices      []int
	Normal        mathutil.Vec3
	Material      int
	Smooth        bool
	CornerNormals []mathutil.Vec3
}

// UVLayer holds one texture coordinate per face corner. Corners are
// numbered polygon by polygon in storage order (see Mesh.CornerStarts).
type UVLayer struct {
	Name string
	UV   []mathutil.Vec2
}

// Mesh is an indexed polygon mesh.
type Mesh struct {
	Vertices []Vertex
	Polygons []Polygon
	UVLayers []UVLayer
}

// CornerStarts returns the global index of each polygon's first corner.
func (m *Mesh) CornerStarts() []int {
	starts := make([]int, len(m.Polygons))
	n := 0
	for i, p := range m.Polygons {
		starts[i] = n
		n += len(p.Vertices)
	}
	return starts
}

// CornerCount returns the total number of face corners.
func (m *Mesh) CornerCount() int {
	n := 0
	for _, p := range m.Polygons {
		n += len(p.Vertices)
	}
	return n
}

// CornerNormal returns the shading normal of corner k of polygon p.
func (m *Mesh) CornerNormal(p, k int) mathutil.Vec3 {
	poly := &m.Polygons[p]
	if len(poly.CornerNormals) == len(poly.Vertices) {
		return poly.CornerNormals[k]
	}
	if poly.Smooth {
		return m.Vertices[poly.Vertices[k]].Normal
	}
	return poly.Normal
}

// Positions returns the vertex positions in order.
func (m *Mesh) Positions() []mathutil.Vec3 {
	pts := make([]mathutil.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		pts[i] = v.Position
	}
	return pts
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: make([]Vertex, len(m.Vertices)),
		Polygons: make([]Polygon, len(m.Polygons)),
		UVLayers: make([]UVLayer, len(m.UVLayers)),
	}
	for i, v := range m.Vertices {
		c.Vertices[i] = v.clone()
	}
	for i, p := range m.Polygons {
		c.Polygons[i] = p
		c.Polygons[i].Vertices = append([]int(nil), p.Vertices...)
		if p.CornerNormals != nil {
			c.Polygons[i].CornerNormals = append([]mathutil.Vec3(nil), p.CornerNormals...)
		}
	}
	for i, l := range m.UVLayers {
		c.UVLayers[i] = UVLayer{Name: l.Name, UV: append([]mathutil.Vec2(nil), l.UV...)}
	}
	return c
}

func (v Vertex) clone() Vertex {
	if v.Groups != nil {
		v.Groups = append([]GroupWeight(nil), v.Groups...)
	}
	return v
}

// FaceNormal computes the normal of a polygon from its first three corners.
func FaceNormal(a, b, c mathutil.Vec3) mathutil.Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}
