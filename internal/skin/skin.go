// Package skin maps vertex group memberships onto hierarchy pivots.
package skin

import (
	"w3d-exporter/internal/mesh"
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/w3d"
)

// MinWeight is the weight below which both influences count as unset.
const MinWeight = 0.01

// MaxInfluences is the number of groups a vertex may be bound to.
const MaxInfluences = 2

// Resolver looks up pivot indices by name. When several pivots share a
// name the last one wins; unknown names resolve to pivot 0.
type Resolver struct {
	pivots map[string]int
}

// NewResolver indexes the pivot names of a hierarchy in pivot order.
func NewResolver(pivotNames []string) *Resolver {
	r := &Resolver{pivots: make(map[string]int, len(pivotNames))}
	for i, name := range pivotNames {
		r.pivots[name] = i
	}
	return r
}

// PivotIndex returns the pivot called name, or 0.
func (r *Resolver) PivotIndex(name string) int {
	return r.pivots[name]
}

// Result is the resolved skin data of one vertex.
type Result struct {
	Influence w3d.VertexInfluence
	// Bound is false for a vertex without any group membership.
	Bound bool
	// MultiBone is set when a second group was resolved.
	MultiBone bool
}

// Resolve binds a vertex to the pivots named by its first two groups.
// groupNames maps group indices of the owning object to names. A vertex in
// more than two groups is reported and its extra groups are ignored.
func (r *Resolver) Resolve(groups []mesh.GroupWeight, groupNames []string, rep report.Reporter) Result {
	var res Result
	if len(groups) == 0 {
		return res
	}
	res.Bound = true
	res.Influence.Bone = uint16(r.PivotIndex(groupName(groups[0].Group, groupNames)))
	res.Influence.BoneInf = groups[0].Weight

	if len(groups) > 1 {
		res.MultiBone = true
		res.Influence.XtraBone = uint16(r.PivotIndex(groupName(groups[1].Group, groupNames)))
		res.Influence.XtraInf = groups[1].Weight
	}
	if len(groups) > MaxInfluences {
		rep.Warning("max 2 bone influences per vertex supported!")
	}

	if res.Influence.BoneInf < MinWeight && res.Influence.XtraInf < MinWeight {
		res.Influence.BoneInf = 1.0
	}
	return res
}

func groupName(group int, names []string) string {
	if group < 0 || group >= len(names) {
		return ""
	}
	return names[group]
}
