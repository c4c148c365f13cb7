// Package export turns host scene objects into W3D mesh records.
package export

import (
	"w3d-exporter/internal/aabbtree"
	"w3d-exporter/internal/material"
	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/mesh"
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/skeleton"
	"w3d-exporter/internal/w3d"
)

// KindNormal is the object kind that carries exportable geometry.
const KindNormal = "NORMAL"

// Context carries the settings of one export call.
type Context struct {
	FileFormat           w3d.Format
	ForceVertexMaterials bool
	ContainerName        string
	// AABBSource selects the points each mesh's tree is built over.
	// SourceNone builds no trees.
	AABBSource aabbtree.Source
	Reporter   report.Reporter
}

func (c *Context) reporter() report.Reporter {
	if c == nil || c.Reporter == nil {
		return report.Discard
	}
	return c.Reporter
}

// MeshObject is a mesh object of the host scene.
type MeshObject interface {
	ObjectName() string
	Kind() string
	IsHidden() bool
	Text() string
	LocalScale() mathutil.Vec3
	GroupNames() []string
	// EvaluatedMesh returns a mesh the exporter owns and may modify.
	EvaluatedMesh() *mesh.Mesh
	MaterialSlots() []*material.Source
}

// Hierarchy is the pivot list bone indices refer to.
type Hierarchy interface {
	PivotNames() []string
}

// Armature is the rig object the hierarchy was built from.
type Armature interface {
	Matrix() mathutil.Mat4
	// BoneMatrix returns the armature space transform of a bone.
	BoneMatrix(name string) (mathutil.Mat4, bool)
	PoseMode() skeleton.PoseMode
	SetPoseMode(skeleton.PoseMode)
}
