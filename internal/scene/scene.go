// Package scene is the in-memory host scene the exporter reads from.
package scene

import (
	"w3d-exporter/internal/material"
	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/mesh"
	"w3d-exporter/internal/skeleton"
)

// Object kinds. Only Normal objects carry exportable geometry.
const (
	KindNormal = "NORMAL"
	KindBox    = "BOX"
	KindDazzle = "DAZZLE"
)

// Object is a mesh object.
type Object struct {
	Name      string
	Type      string
	Hidden    bool
	UserText  string
	Transform mathutil.Mat4
	Groups    []string
	Mesh      *mesh.Mesh
	Materials []*material.Source
	// Armature deforms the mesh when it is in Pose mode.
	Armature *skeleton.Armature
}

// NewObject returns a visible Normal object at the origin.
func NewObject(name string, m *mesh.Mesh) *Object {
	return &Object{Name: name, Type: KindNormal, Transform: mathutil.Mat4Identity(), Mesh: m}
}

func (o *Object) ObjectName() string { return o.Name }

func (o *Object) Kind() string {
	if o.Type == "" {
		return KindNormal
	}
	return o.Type
}

func (o *Object) IsHidden() bool { return o.Hidden }

func (o *Object) Text() string { return o.UserText }

func (o *Object) LocalScale() mathutil.Vec3 { return o.Transform.Scale() }

func (o *Object) GroupNames() []string { return o.Groups }

func (o *Object) MaterialSlots() []*material.Source { return o.Materials }

// EvaluatedMesh returns a copy of the object's mesh with the armature pose
// applied. Vertex groups blend the deformation of the bones they name by
// weight; vertices outside every group stay put.
func (o *Object) EvaluatedMesh() *mesh.Mesh {
	if o.Mesh == nil {
		return &mesh.Mesh{}
	}
	m := o.Mesh.Clone()
	if o.Armature == nil || o.Armature.PoseMode() == skeleton.Rest {
		return m
	}

	deforms := make(map[int]mathutil.Mat4, len(o.Groups))
	for i, name := range o.Groups {
		d := o.Armature.Deform(name)
		if !d.IsIdentity() {
			deforms[i] = d
		}
	}
	if len(deforms) == 0 {
		return m
	}

	for i := range m.Vertices {
		v := &m.Vertices[i]
		var pos, nrm mathutil.Vec3
		total := 0.0
		for _, g := range v.Groups {
			d, ok := deforms[g.Group]
			if !ok {
				d = mathutil.Mat4Identity()
			}
			pos = pos.Add(d.MulPoint(v.Position).Scale(g.Weight))
			nrm = nrm.Add(d.Rotation().MulVec3(v.Normal).Scale(g.Weight))
			total += g.Weight
		}
		if total <= 0 {
			continue
		}
		v.Position = pos.Scale(1 / total)
		v.Normal = nrm.Normalize()
	}
	for p := range m.Polygons {
		poly := &m.Polygons[p]
		if len(poly.Vertices) >= 3 {
			poly.Normal = mesh.FaceNormal(
				m.Vertices[poly.Vertices[0]].Position,
				m.Vertices[poly.Vertices[1]].Position,
				m.Vertices[poly.Vertices[2]].Position)
		}
	}
	return m
}

// Scene is everything one export reads: mesh objects and an optional rig.
type Scene struct {
	Name      string
	Objects   []*Object
	Hierarchy *skeleton.Hierarchy
	Armature  *skeleton.Armature
}

// Materials lists the material slots of every object.
func (s *Scene) Materials() []*material.Source {
	var out []*material.Source
	for _, o := range s.Objects {
		out = append(out, o.Materials...)
	}
	return out
}
