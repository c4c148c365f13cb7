package skeleton

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3d-exporter/internal/mathutil"
)

func rig() *Hierarchy {
	h := NewHierarchy("rig")
	h.Pivots = append(h.Pivots,
		Pivot{Name: "Spine", Parent: 0, Translation: mathutil.Vec3{0, 0, 1}, Rotation: mathutil.QuatIdentity()},
		Pivot{Name: "Arm", Parent: 1, Translation: mathutil.Vec3{1, 0, 0}, Rotation: mathutil.EulerToQuat(0, 0, math.Pi/2)},
		Pivot{Name: "Hand", Parent: 2, Translation: mathutil.Vec3{1, 0, 0}, Rotation: mathutil.QuatIdentity()},
	)
	return h
}

func TestBuildWorldMatrices(t *testing.T) {
	worlds := BuildWorldMatrices(rig().Pivots, nil)
	require.Len(t, worlds, 4)

	assert.True(t, worlds[0].IsIdentity())
	assert.Equal(t, mathutil.Vec3{0, 0, 1}, worlds[1].Translation())
	assert.InDeltaSlice(t, []float64{1, 0, 1}, worlds[2].Translation().Slice(), 1e-9)
	// the arm is rotated 90° about Z so the hand sits along +Y
	assert.InDeltaSlice(t, []float64{1, 1, 1}, worlds[3].Translation().Slice(), 1e-9)
}

func TestBuildWorldMatricesOrphan(t *testing.T) {
	pivots := []Pivot{
		{Name: "A", Parent: 1, Translation: mathutil.Vec3{1, 0, 0}},
		{Name: "B", Parent: -1, Translation: mathutil.Vec3{0, 5, 0}},
	}
	worlds := BuildWorldMatrices(pivots, nil)
	assert.Equal(t, mathutil.Vec3{1, 0, 0}, worlds[0].Translation())
}

func TestHierarchy(t *testing.T) {
	h := rig()
	assert.Equal(t, []string{RootName, "Spine", "Arm", "Hand"}, h.PivotNames())
	i, ok := h.Index("Arm")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = h.Index("Leg")
	assert.False(t, ok)
}

func TestArmaturePoseModes(t *testing.T) {
	a := NewArmature("Armature", mathutil.Mat4Identity(), rig())
	a.Posed = map[string]mathutil.Mat4{
		"Spine": mathutil.FromMat3Translation(mathutil.Mat3Identity(), mathutil.Vec3{0, 0, 2}),
	}
	assert.Equal(t, Pose, a.PoseMode())

	posed, ok := a.BoneMatrix("Hand")
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1, 1, 3}, posed.Translation().Slice(), 1e-9)

	d := a.Deform("Hand")
	assert.InDeltaSlice(t, []float64{0, 0, 3}, d.MulPoint(mathutil.Vec3{0, 0, 1}).Slice(), 1e-9)

	a.SetPoseMode(Rest)
	rest, _ := a.BoneMatrix("Hand")
	assert.InDeltaSlice(t, []float64{1, 1, 1}, rest.Translation().Slice(), 1e-9)
	assert.True(t, a.Deform("Hand").IsIdentity())

	_, ok = a.BoneMatrix("Tail")
	assert.False(t, ok)
}
