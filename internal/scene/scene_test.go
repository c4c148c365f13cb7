package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3d-exporter/internal/material"
	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/mesh"
	"w3d-exporter/internal/skeleton"
)

func rig(pose mathutil.Mat3) *skeleton.Armature {
	h := skeleton.NewHierarchy("RIG")
	h.Pivots = append(h.Pivots, skeleton.Pivot{
		Name: "Bone", Parent: 0, Translation: mathutil.Vec3{0, 0, 2}, Rotation: mathutil.QuatIdentity(),
	})
	arm := skeleton.NewArmature("Armature", mathutil.Mat4Identity(), h)
	arm.Posed = map[string]mathutil.Mat4{"Bone": mathutil.FromMat3Translation(pose, mathutil.Vec3{})}
	return arm
}

func skinned(arm *skeleton.Armature) *Object {
	m := &mesh.Mesh{
		Vertices: []mesh.Vertex{
			{Position: mathutil.Vec3{1, 0, 0}, Normal: mathutil.Vec3{1, 0, 0}, Groups: []mesh.GroupWeight{{Group: 0, Weight: 1}}},
			{Position: mathutil.Vec3{0, 1, 0}, Normal: mathutil.Vec3{0, 0, 1}, Groups: []mesh.GroupWeight{{Group: 0, Weight: 0.5}, {Group: 1, Weight: 0.5}}},
			{Position: mathutil.Vec3{0, 0, 1}, Normal: mathutil.Vec3{0, 0, 1}},
		},
		Polygons: []mesh.Polygon{{Vertices: []int{0, 1, 2}}},
	}
	obj := NewObject("BODY", m)
	obj.Groups = []string{"Bone", "Unknown"}
	obj.Armature = arm
	return obj
}

func TestEvaluatedMeshPose(t *testing.T) {
	obj := skinned(rig(mathutil.AxisAngle(mathutil.AxisZ, math.Pi/2)))
	m := obj.EvaluatedMesh()

	assert.InDeltaSlice(t, []float64{0, 1, 0}, m.Vertices[0].Position.Slice(), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, m.Vertices[0].Normal.Slice(), 1e-9)
	// half on the rotated bone, half on a group no bone deforms
	assert.InDeltaSlice(t, []float64{-0.5, 0.5, 0}, m.Vertices[1].Position.Slice(), 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 1}, m.Vertices[2].Position.Slice(), 1e-9)

	want := mesh.FaceNormal(m.Vertices[0].Position, m.Vertices[1].Position, m.Vertices[2].Position)
	assert.InDeltaSlice(t, want.Slice(), m.Polygons[0].Normal.Slice(), 1e-9)

	assert.Equal(t, mathutil.Vec3{1, 0, 0}, obj.Mesh.Vertices[0].Position, "source mesh is untouched")
}

func TestEvaluatedMeshRest(t *testing.T) {
	arm := rig(mathutil.AxisAngle(mathutil.AxisZ, math.Pi/2))
	arm.SetPoseMode(skeleton.Rest)
	obj := skinned(arm)

	m := obj.EvaluatedMesh()
	require.NotSame(t, obj.Mesh, m)
	assert.Equal(t, obj.Mesh.Vertices, m.Vertices)
}

func TestEvaluatedMeshWithoutMesh(t *testing.T) {
	obj := &Object{Name: "EMPTY"}
	assert.Empty(t, obj.EvaluatedMesh().Vertices)
}

func TestObjectAccessors(t *testing.T) {
	obj := &Object{Name: "A", UserText: "hi", Hidden: true, Transform: mathutil.FromTRS(
		mathutil.Vec3{}, mathutil.QuatIdentity(), mathutil.Vec3{2, 3, 4})}
	assert.Equal(t, KindNormal, obj.Kind())
	obj.Type = KindDazzle
	assert.Equal(t, KindDazzle, obj.Kind())
	assert.Equal(t, "A", obj.ObjectName())
	assert.Equal(t, "hi", obj.Text())
	assert.True(t, obj.IsHidden())
	assert.InDeltaSlice(t, []float64{2, 3, 4}, obj.LocalScale().Slice(), 1e-12)
}

func TestSceneMaterials(t *testing.T) {
	a, b := &material.Source{Name: "a"}, &material.Source{Name: "b"}
	sc := &Scene{Objects: []*Object{
		{Materials: []*material.Source{a}},
		{},
		{Materials: []*material.Source{nil, b}},
	}}
	assert.Equal(t, []*material.Source{a, nil, b}, sc.Materials())
}
