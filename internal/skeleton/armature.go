package skeleton

import (
	"sync"

	"w3d-exporter/internal/mathutil"
)

// PoseMode selects which transforms an armature reports.
type PoseMode string

const (
	Rest PoseMode = "REST"
	Pose PoseMode = "POSE"
)

// Armature is a rig object: a hierarchy placed in the scene by Matrix and
// optionally posed. It starts in Pose mode.
type Armature struct {
	Name      string
	Object    mathutil.Mat4
	Hierarchy *Hierarchy
	// Posed maps pivot names to transforms applied on top of the rest pose.
	// It is read once, on the first matrix query.
	Posed map[string]mathutil.Mat4

	mu     sync.Mutex
	mode   PoseMode
	rest   []mathutil.Mat4
	posed  []mathutil.Mat4
	byName map[string]int
}

// NewArmature returns an armature in Pose mode.
func NewArmature(name string, object mathutil.Mat4, h *Hierarchy) *Armature {
	return &Armature{Name: name, Object: object, Hierarchy: h, mode: Pose}
}

// Matrix returns the armature object matrix.
func (a *Armature) Matrix() mathutil.Mat4 { return a.Object }

func (a *Armature) PoseMode() PoseMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == "" {
		return Pose
	}
	return a.mode
}

func (a *Armature) SetPoseMode(m PoseMode) {
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
}

// BoneMatrix returns the armature space transform of the bone called name
// in the current pose mode. When several pivots share the name the last one
// is used.
func (a *Armature) BoneMatrix(name string) (mathutil.Mat4, bool) {
	worlds, byName := a.matrices(a.PoseMode())
	i, ok := byName[name]
	if !ok {
		return mathutil.Mat4Identity(), false
	}
	return worlds[i], true
}

// Deform returns the transform that carries a point from its rest position
// to its posed position under the bone called name. It is the identity in
// Rest mode and for unknown bones.
func (a *Armature) Deform(name string) mathutil.Mat4 {
	if a.PoseMode() == Rest {
		return mathutil.Mat4Identity()
	}
	rest, byName := a.matrices(Rest)
	posed, _ := a.matrices(Pose)
	i, ok := byName[name]
	if !ok {
		return mathutil.Mat4Identity()
	}
	return mathutil.Mat4Mul(posed[i], rest[i].Inverse())
}

func (a *Armature) matrices(mode PoseMode) ([]mathutil.Mat4, map[string]int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.byName == nil {
		a.byName = map[string]int{}
		var pivots []Pivot
		if a.Hierarchy != nil {
			pivots = a.Hierarchy.Pivots
		}
		for i, p := range pivots {
			a.byName[p.Name] = i
		}
		a.rest = BuildWorldMatrices(pivots, nil)

		pose := map[int]mathutil.Mat4{}
		for name, m := range a.Posed {
			if i, ok := a.byName[name]; ok {
				pose[i] = m
			}
		}
		a.posed = BuildWorldMatrices(pivots, pose)
	}

	if mode == Rest {
		return a.rest, a.byName
	}
	return a.posed, a.byName
}
