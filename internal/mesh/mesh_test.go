package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/report"
)

// seamStrip returns two quads sharing the edge 1-2 whose UV islands are
// disjoint along that edge.
func seamStrip() *Mesh {
	m := &Mesh{
		Vertices: []Vertex{
			{Position: mathutil.Vec3{0, 0, 0}, Groups: []GroupWeight{{Group: 0, Weight: 1}}},
			{Position: mathutil.Vec3{1, 0, 0}},
			{Position: mathutil.Vec3{1, 1, 0}},
			{Position: mathutil.Vec3{0, 1, 0}},
			{Position: mathutil.Vec3{2, 0, 0}},
			{Position: mathutil.Vec3{2, 1, 0}},
		},
		Polygons: []Polygon{
			{Vertices: []int{0, 1, 2, 3}, Normal: mathutil.Vec3{0, 0, 1}},
			{Vertices: []int{1, 4, 5, 2}, Normal: mathutil.Vec3{0, 0, 1}, Material: 1},
		},
	}
	m.UVLayers = []UVLayer{{Name: "UVMap", UV: []mathutil.Vec2{
		{0, 0}, {0.5, 0}, {0.5, 1}, {0, 1},
		{0.6, 0}, {1, 0}, {1, 1}, {0.6, 1},
	}}}
	return m
}

func vertexUVs(m *Mesh, layer int) map[int][]mathutil.Vec2 {
	out := map[int][]mathutil.Vec2{}
	starts := m.CornerStarts()
	for p, poly := range m.Polygons {
		for k, v := range poly.Vertices {
			out[v] = append(out[v], m.UVLayers[layer].UV[starts[p]+k])
		}
	}
	return out
}

func TestSplitMultiUVSeam(t *testing.T) {
	m := seamStrip()
	added := SplitMultiUV(m)

	assert.Equal(t, 2, added)
	require.Len(t, m.Vertices, 8)
	assert.Equal(t, []int{0, 1, 2, 3}, m.Polygons[0].Vertices)
	assert.Equal(t, []int{6, 4, 5, 7}, m.Polygons[1].Vertices)
	assert.Equal(t, m.Vertices[1].Position, m.Vertices[6].Position)
	assert.Equal(t, m.Vertices[2].Position, m.Vertices[7].Position)

	for v, uvs := range vertexUVs(m, 0) {
		for _, uv := range uvs[1:] {
			assert.Equalf(t, uvs[0], uv, "vertex %d still has divergent uvs", v)
		}
	}
}

func TestSplitCopiesGroups(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{
			{Groups: []GroupWeight{{Group: 2, Weight: 0.5}}},
			{Position: mathutil.Vec3{1, 0, 0}},
			{Position: mathutil.Vec3{0, 1, 0}},
			{Position: mathutil.Vec3{-1, 0, 0}},
		},
		Polygons: []Polygon{{Vertices: []int{0, 1, 2}}, {Vertices: []int{0, 2, 3}}},
		UVLayers: []UVLayer{{UV: []mathutil.Vec2{{0, 0}, {1, 0}, {0, 1}, {0.5, 0.5}, {0, 1}, {1, 1}}}},
	}
	assert.Equal(t, 1, SplitMultiUV(m))
	require.Len(t, m.Vertices, 5)
	assert.Equal(t, m.Vertices[0].Groups, m.Vertices[4].Groups)

	m.Vertices[4].Groups[0].Weight = 1
	assert.Equal(t, 0.5, m.Vertices[0].Groups[0].Weight)
}

func TestSplitIdempotent(t *testing.T) {
	m := seamStrip()
	Normalize(m, "strip", report.Discard)
	before := len(m.Vertices)

	assert.Zero(t, SplitMultiUV(m))
	assert.Len(t, m.Vertices, before)
}

func TestSplitWithoutUVLayers(t *testing.T) {
	m := seamStrip()
	m.UVLayers = nil
	assert.Zero(t, SplitMultiUV(m))
	assert.Len(t, m.Vertices, 6)
}

func TestSplitChecksEveryLayer(t *testing.T) {
	m := seamStrip()
	first := m.UVLayers[0].UV
	same := make([]mathutil.Vec2, len(first))
	copy(same, first)
	same[4], same[7] = same[1], same[2]
	m.UVLayers = []UVLayer{{Name: "consistent", UV: same}, {Name: "seam", UV: first}}

	assert.Equal(t, 2, SplitMultiUV(m))
}

func TestNormalizeReportsSplit(t *testing.T) {
	var rep report.Collector
	Normalize(seamStrip(), "strip", &rep)
	require.Len(t, rep.Infos, 1)
	assert.Contains(t, rep.Infos[0], "split because of multiple uv coordinates")

	var quiet report.Collector
	Normalize(Box(mathutil.Vec3{}, mathutil.Vec3{1, 1, 1}), "box", &quiet)
	assert.Empty(t, quiet.Infos)
}

func TestTriangulateFan(t *testing.T) {
	m := &Mesh{
		Vertices: make([]Vertex, 5),
		Polygons: []Polygon{
			{Vertices: []int{0, 1, 2, 3, 4}, Material: 3, CornerNormals: []mathutil.Vec3{{0}, {1}, {2}, {3}, {4}}},
			{Vertices: []int{0, 1}},
		},
		UVLayers: []UVLayer{{UV: []mathutil.Vec2{{0}, {1}, {2}, {3}, {4}, {5}, {6}}}},
	}
	Triangulate(m)

	require.Len(t, m.Polygons, 3)
	assert.Equal(t, []int{0, 1, 2}, m.Polygons[0].Vertices)
	assert.Equal(t, []int{0, 2, 3}, m.Polygons[1].Vertices)
	assert.Equal(t, []int{0, 3, 4}, m.Polygons[2].Vertices)
	for _, p := range m.Polygons {
		assert.Equal(t, 3, p.Material)
	}
	assert.Equal(t, []mathutil.Vec3{{0}, {3}, {4}}, m.Polygons[2].CornerNormals)
	assert.Equal(t, []mathutil.Vec2{{0}, {1}, {2}, {0}, {2}, {3}, {0}, {3}, {4}}, m.UVLayers[0].UV)
}

func TestBoxTriangulates(t *testing.T) {
	m := Box(mathutil.Vec3{-1, -1, -1}, mathutil.Vec3{1, 1, 1})
	Normalize(m, "cube", report.Discard)

	assert.Len(t, m.Vertices, 8)
	assert.Len(t, m.Polygons, 12)
	for _, p := range m.Polygons {
		a := m.Vertices[p.Vertices[0]].Position
		b := m.Vertices[p.Vertices[1]].Position
		c := m.Vertices[p.Vertices[2]].Position
		centroid := a.Add(b).Add(c).Scale(1.0 / 3)
		// outward winding: the face normal points away from the origin
		assert.Greater(t, FaceNormal(a, b, c).Dot(centroid), 0.0)
		assert.InDelta(t, 1, FaceNormal(a, b, c).Dot(p.Normal), 1e-9)
	}
}

func TestCornerNormal(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{{Normal: mathutil.Vec3{1, 0, 0}}, {}, {}},
		Polygons: []Polygon{{Vertices: []int{0, 1, 2}, Normal: mathutil.Vec3{0, 0, 1}}},
	}
	assert.Equal(t, mathutil.Vec3{0, 0, 1}, m.CornerNormal(0, 0))
	m.Polygons[0].Smooth = true
	assert.Equal(t, mathutil.Vec3{1, 0, 0}, m.CornerNormal(0, 0))
	m.Polygons[0].CornerNormals = []mathutil.Vec3{{0, 1, 0}, {}, {}}
	assert.Equal(t, mathutil.Vec3{0, 1, 0}, m.CornerNormal(0, 0))
}

func TestCornerFramesPlanar(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{
			{Position: mathutil.Vec3{0, 0, 0}},
			{Position: mathutil.Vec3{2, 0, 0}},
			{Position: mathutil.Vec3{0, 2, 0}},
		},
		Polygons: []Polygon{{Vertices: []int{0, 1, 2}, Normal: mathutil.Vec3{0, 0, 1}}},
		UVLayers: []UVLayer{{UV: []mathutil.Vec2{{0, 0}, {1, 0}, {0, 1}}}},
	}
	frames := CornerFrames(m, 0)
	require.Len(t, frames, 3)
	for _, f := range frames {
		assert.InDeltaSlice(t, []float64{1, 0, 0}, f.Tangent[:], 1e-9)
		assert.InDeltaSlice(t, []float64{0, 1, 0}, f.Bitangent[:], 1e-9)
	}

	// mirrored mapping flips the bitangent
	m.UVLayers[0].UV = []mathutil.Vec2{{0, 0}, {1, 0}, {0, -1}}
	frames = CornerFrames(m, 0)
	assert.InDeltaSlice(t, []float64{0, -1, 0}, frames[0].Bitangent[:], 1e-9)
}

func TestCornerFramesDegenerateUV(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{{}, {Position: mathutil.Vec3{1, 0, 0}}, {Position: mathutil.Vec3{0, 1, 0}}},
		Polygons: []Polygon{{Vertices: []int{0, 1, 2}, Normal: mathutil.Vec3{0, 0, 1}}},
		UVLayers: []UVLayer{{UV: make([]mathutil.Vec2, 3)}},
	}
	for _, f := range CornerFrames(m, 0) {
		assert.InDelta(t, 1, f.Tangent.Len(), 1e-9)
		assert.InDelta(t, 0, f.Tangent.Dot(f.Normal), 1e-9)
	}
}
