// Package skeleton models the pivot hierarchy of a rig and its armature.
package skeleton

import (
	"w3d-exporter/internal/mathutil"
)

// RootName is the name of the pivot every hierarchy starts with.
const RootName = "ROOTTRANSFORM"

// Pivot is one node of a hierarchy. Parent is the index of the parent
// pivot, or -1 for the root.
type Pivot struct {
	Name        string
	Parent      int
	Translation mathutil.Vec3
	Rotation    mathutil.Quat
	EulerAngles mathutil.Vec3
}

// Local returns the pivot's transform relative to its parent.
func (p *Pivot) Local() mathutil.Mat4 {
	return mathutil.FromTRS(p.Translation, p.Rotation.Normalize(), mathutil.Vec3{1, 1, 1})
}

// Hierarchy is an ordered pivot list. The order defines bone indices.
type Hierarchy struct {
	Name   string
	Pivots []Pivot
}

// NewHierarchy returns a hierarchy holding only the root pivot.
func NewHierarchy(name string) *Hierarchy {
	return &Hierarchy{
		Name:   name,
		Pivots: []Pivot{{Name: RootName, Parent: -1, Rotation: mathutil.QuatIdentity()}},
	}
}

// PivotNames returns the pivot names in order.
func (h *Hierarchy) PivotNames() []string {
	names := make([]string, len(h.Pivots))
	for i, p := range h.Pivots {
		names[i] = p.Name
	}
	return names
}

// Index returns the first pivot called name.
func (h *Hierarchy) Index(name string) (int, bool) {
	for i, p := range h.Pivots {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// BuildWorldMatrices computes the transform of each pivot relative to the
// hierarchy root. pose optionally maps a pivot index to a transform applied
// on top of its local rest transform. Parents must precede their children;
// a pivot whose parent does not is treated as a root.
func BuildWorldMatrices(pivots []Pivot, pose map[int]mathutil.Mat4) []mathutil.Mat4 {
	worlds := make([]mathutil.Mat4, len(pivots))

	for i := range pivots {
		local := pivots[i].Local()
		if p, ok := pose[i]; ok {
			local = mathutil.Mat4Mul(local, p)
		}

		parent := pivots[i].Parent
		if parent >= 0 && parent < i {
			worlds[i] = mathutil.Mat4Mul(worlds[parent], local)
		} else {
			worlds[i] = local
		}
	}

	return worlds
}
