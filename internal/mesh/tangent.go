package mesh

import (
	"math"

	"w3d-exporter/internal/mathutil"
)

// Frame is the tangent space of one face corner.
type Frame struct {
	Normal    mathutil.Vec3
	Tangent   mathutil.Vec3
	Bitangent mathutil.Vec3
}

// CornerFrames computes a tangent frame for every corner of a triangulated
// mesh from the texture coordinates of UV layer uv. The tangent is
// orthogonalized against the corner normal and the bitangent is
// cross(normal, tangent) carrying the sign of the UV mapping.
func CornerFrames(m *Mesh, uv int) []Frame {
	frames := make([]Frame, 0, m.CornerCount())
	starts := m.CornerStarts()

	for p, poly := range m.Polygons {
		if len(poly.Vertices) != 3 {
			for k := range poly.Vertices {
				n := m.CornerNormal(p, k)
				t := perpendicular(n)
				frames = append(frames, Frame{Normal: n, Tangent: t, Bitangent: n.Cross(t)})
			}
			continue
		}

		p0 := m.Vertices[poly.Vertices[0]].Position
		p1 := m.Vertices[poly.Vertices[1]].Position
		p2 := m.Vertices[poly.Vertices[2]].Position
		uv0 := m.UVLayers[uv].UV[starts[p]]
		uv1 := m.UVLayers[uv].UV[starts[p]+1]
		uv2 := m.UVLayers[uv].UV[starts[p]+2]

		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		d1, d2 := uv1.Sub(uv0), uv2.Sub(uv0)
		r := d1[0]*d2[1] - d2[0]*d1[1]

		var faceT, faceB mathutil.Vec3
		degenerate := math.Abs(r) < 1e-12
		if !degenerate {
			f := 1 / r
			faceT = e1.Scale(d2[1]).Sub(e2.Scale(d1[1])).Scale(f)
			faceB = e2.Scale(d1[0]).Sub(e1.Scale(d2[0])).Scale(f)
		}

		for k := 0; k < 3; k++ {
			n := m.CornerNormal(p, k)
			var t mathutil.Vec3
			if !degenerate {
				t = faceT.Sub(n.Scale(n.Dot(faceT))).Normalize()
			}
			if t == (mathutil.Vec3{}) {
				t = perpendicular(n)
			}
			b := n.Cross(t)
			if !degenerate && b.Dot(faceB) < 0 {
				b = b.Neg()
			}
			frames = append(frames, Frame{Normal: n, Tangent: t, Bitangent: b})
		}
	}
	return frames
}

// perpendicular returns a unit vector orthogonal to n, built against the
// axis n is least aligned with.
func perpendicular(n mathutil.Vec3) mathutil.Vec3 {
	axis := mathutil.Vec3{1, 0, 0}
	ax, ay, az := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	if ay < ax && ay <= az {
		axis = mathutil.Vec3{0, 1, 0}
	} else if az < ax && az < ay {
		axis = mathutil.Vec3{0, 0, 1}
	}
	t := n.Cross(axis).Normalize()
	if t == (mathutil.Vec3{}) {
		return mathutil.Vec3{1, 0, 0}
	}
	return t
}
