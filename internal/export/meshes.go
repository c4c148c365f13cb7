package export

import (
	"github.com/samber/lo"

	"w3d-exporter/internal/aabbtree"
	"w3d-exporter/internal/bounds"
	"w3d-exporter/internal/material"
	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/mesh"
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/skeleton"
	"w3d-exporter/internal/skin"
	"w3d-exporter/internal/w3d"
)

// RetrieveMeshes builds a mesh record for every Normal object and returns
// them with the file names of all textures their materials use. hierarchy
// and rig may be nil. The rig is switched to its rest pose while reading
// and restored afterwards.
func RetrieveMeshes(ctx *Context, objects []MeshObject, hierarchy Hierarchy, rig Armature) ([]*w3d.Mesh, []string) {
	if ctx == nil {
		ctx = &Context{}
	}
	if rig != nil {
		prev := rig.PoseMode()
		rig.SetPoseMode(skeleton.Rest)
		defer rig.SetPoseMode(prev)
	}

	var pivots []string
	if hierarchy != nil {
		pivots = hierarchy.PivotNames()
	}
	x := &extractor{
		ctx:      ctx,
		rep:      ctx.reporter(),
		rig:      rig,
		pivots:   pivots,
		resolver: skin.NewResolver(pivots),
		binder: &material.Binder{
			Format:               ctx.FileFormat,
			ForceVertexMaterials: ctx.ForceVertexMaterials,
			Reporter:             ctx.reporter(),
		},
	}

	var (
		meshes  []*w3d.Mesh
		sources []*material.Source
	)
	for _, obj := range objects {
		if obj.Kind() != KindNormal {
			continue
		}
		m := obj.EvaluatedMesh()
		if m == nil || len(m.Vertices) == 0 {
			x.rep.Info("mesh %s has no vertices and is skipped", obj.ObjectName())
			continue
		}
		slots := materialSlots(obj)
		meshes = append(meshes, x.mesh(obj, m, slots))
		sources = append(sources, slots...)
	}
	return meshes, material.UsedTextures(sources)
}

func materialSlots(obj MeshObject) []*material.Source {
	return lo.Map(obj.MaterialSlots(), func(s *material.Source, i int) *material.Source {
		if s == nil {
			return material.Default("", material.TypeVertexMaterial)
		}
		return s
	})
}

type extractor struct {
	ctx      *Context
	rep      report.Reporter
	rig      Armature
	pivots   []string
	resolver *skin.Resolver
	binder   *material.Binder
	inverse  map[uint16]mathutil.Mat4
}

// matrix returns the transform into the space of the vertex's primary
// bone, or into armature space for vertices bound to the root or unbound.
func (x *extractor) matrix(res skin.Result) mathutil.Mat4 {
	if x.rig == nil {
		return mathutil.Mat4Identity()
	}
	bone := uint16(0)
	if res.Bound {
		bone = res.Influence.Bone
	}
	if m, ok := x.inverse[bone]; ok {
		return m
	}

	m := x.rig.Matrix().Inverse()
	if bone > 0 && int(bone) < len(x.pivots) {
		if bm, ok := x.rig.BoneMatrix(x.pivots[bone]); ok {
			m = bm.Inverse()
		} else {
			x.rep.Warning("bone %s is not part of the armature", x.pivots[bone])
		}
	}
	if x.inverse == nil {
		x.inverse = map[uint16]mathutil.Mat4{}
	}
	x.inverse[bone] = m
	return m
}

// firstCorners maps every vertex to the first triangle corner using it,
// or -1.
func firstCorners(m *mesh.Mesh) []int {
	first := make([]int, len(m.Vertices))
	for i := range first {
		first[i] = -1
	}
	for p, poly := range m.Polygons {
		for k, v := range poly.Vertices {
			if first[v] < 0 {
				first[v] = p*3 + k
			}
		}
	}
	return first
}

func (x *extractor) mesh(obj MeshObject, m *mesh.Mesh, slots []*material.Source) *w3d.Mesh {
	name := obj.ObjectName()
	rec := &w3d.Mesh{
		Header: w3d.MeshHeader{
			Version:          w3d.MeshVersion,
			MeshName:         name,
			ContainerName:    x.ctx.ContainerName,
			FaceChannelFlags: w3d.FaceChannelFace,
		},
		UserText: obj.Text(),
	}
	if obj.IsHidden() {
		rec.Header.Attrs |= w3d.GeometryTypeHidden
	}

	mesh.Normalize(m, name, x.rep)
	hasUV := len(m.UVLayers) > 0
	var frames []mesh.Frame
	if hasUV {
		frames = mesh.CornerFrames(m, 0)
	}
	first := firstCorners(m)
	scale := obj.LocalScale()[0]
	groups := obj.GroupNames()

	skinned := false
	infs := make([]w3d.VertexInfluence, len(m.Vertices))
	for i, v := range m.Vertices {
		res := x.resolver.Resolve(v.Groups, groups, x.rep)
		if res.Bound {
			skinned = true
			infs[i] = res.Influence
		}
		if res.MultiBone {
			rec.MultiBoneSkinned = true
		}

		mat := x.matrix(res)
		rot := mat.Rotation()
		rec.Verts = append(rec.Verts, mat.MulPoint(v.Position.Scale(scale)))

		switch c := first[i]; {
		case c < 0:
			x.rep.Info("the vertex %d in mesh %s is unconnected!", i, name)
			n := rot.MulVec3(v.Normal)
			rec.Normals = append(rec.Normals, n)
			if hasUV {
				rec.Tangents = append(rec.Tangents, n.Neg())
				rec.Bitangents = append(rec.Bitangents, n)
			}
		case hasUV:
			f := frames[c]
			rec.Normals = append(rec.Normals, rot.MulVec3(f.Normal))
			rec.Tangents = append(rec.Tangents, rot.MulVec3(f.Bitangent).Neg())
			rec.Bitangents = append(rec.Bitangents, rot.MulVec3(f.Tangent))
		default:
			rec.Normals = append(rec.Normals, rot.MulVec3(m.CornerNormal(c/3, c%3)))
		}
		rec.ShadeIDs = append(rec.ShadeIDs, uint32(i))
	}
	if skinned {
		rec.VertInfs = infs
		rec.Header.Attrs |= w3d.GeometryTypeSkin
	}

	// Distance is measured on the mesh positions before the object or bone
	// transform.
	for _, p := range m.Polygons {
		a := m.Vertices[p.Vertices[0]].Position
		b := m.Vertices[p.Vertices[1]].Position
		c := m.Vertices[p.Vertices[2]].Position
		rec.Triangles = append(rec.Triangles, w3d.Triangle{
			VertIDs:  [3]uint32{uint32(p.Vertices[0]), uint32(p.Vertices[1]), uint32(p.Vertices[2])},
			Surface:  w3d.SurfaceTypeDefault,
			Normal:   p.Normal,
			Distance: a.Add(b).Add(c).Scale(1.0 / 3).Len(),
		})
	}

	rec.Header.VertCount = uint32(len(rec.Verts))
	rec.Header.FaceCount = uint32(len(rec.Triangles))
	rec.Header.Min, rec.Header.Max = bounds.Box(rec.Verts)
	rec.Header.SphCenter, rec.Header.SphRadius = bounds.Sphere(rec.Verts)

	stages := textureStages(rec, m)
	for i, src := range slots {
		x.binder.Bind(rec, i, src, stages)
	}

	rec.Header.VertChannelFlags = w3d.VertexChannelLocation | w3d.VertexChannelNormal
	if hasUV && len(rec.ShaderMaterials) > 0 {
		rec.Header.VertChannelFlags |= w3d.VertexChannelTangent | w3d.VertexChannelBitangent
	} else {
		rec.Tangents = nil
		rec.Bitangents = nil
	}
	material.Summarize(rec)

	rec.AABBTree = aabbtree.ForMesh(rec, x.ctx.AABBSource)
	return rec
}

// textureStages builds one stage per UV layer holding a coordinate per
// vertex, written through the triangulated faces.
func textureStages(rec *w3d.Mesh, m *mesh.Mesh) []w3d.TextureStage {
	stages := make([]w3d.TextureStage, len(m.UVLayers))
	for l, layer := range m.UVLayers {
		coords := make([]mathutil.Vec2, len(rec.Verts))
		for j, tri := range rec.Triangles {
			for k, v := range tri.VertIDs {
				coords[v] = layer.UV[j*3+k]
			}
		}
		stages[l] = w3d.TextureStage{TxIDs: []uint32{uint32(l)}, TxCoords: coords}
	}
	return stages
}
