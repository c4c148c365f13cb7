// Package w3d holds the mesh records of the W3D chunk format and reads and
// writes them.
package w3d

import (
	"image/color"

	"w3d-exporter/internal/mathutil"
)

// Mesh attribute flags (MeshHeader.Attrs).
const (
	GeometryTypeNormal uint32 = 0x00000000
	GeometryTypeHidden uint32 = 0x00001000
	GeometryTypeSkin   uint32 = 0x00020000
)

// Vertex channel flags (MeshHeader.VertChannelFlags).
const (
	VertexChannelLocation  uint32 = 0x01
	VertexChannelNormal    uint32 = 0x02
	VertexChannelTexcoord  uint32 = 0x04
	VertexChannelColor     uint32 = 0x08
	VertexChannelBoneID    uint32 = 0x10
	VertexChannelTangent   uint32 = 0x20
	VertexChannelBitangent uint32 = 0x40
)

// FaceChannelFace marks per-face data in MeshHeader.FaceChannelFlags.
const FaceChannelFace uint32 = 0x01

// ShaderMaterialTypeName is the effect every exported shader material uses.
const ShaderMaterialTypeName = "DefaultW3D.fx"

// Version is a major.minor record version packed as major<<16 | minor.
type Version struct {
	Major, Minor uint16
}

// MeshVersion is written into every MeshHeader.
var MeshVersion = Version{Major: 4, Minor: 2}

// MeshHeader is the fixed size header of a mesh chunk.
type MeshHeader struct {
	Version          Version
	Attrs            uint32
	MeshName         string
	ContainerName    string
	FaceCount        uint32
	VertCount        uint32
	MatlCount        uint32
	DamageStageCount uint32
	SortLevel        int32
	PrelitVersion    uint32
	FutureCount      uint32
	VertChannelFlags uint32
	FaceChannelFlags uint32
	Min, Max         mathutil.Vec3
	SphCenter        mathutil.Vec3
	SphRadius        float64
}

// SurfaceTypeDefault is the surface type of exported triangles.
const SurfaceTypeDefault uint32 = 13

// Triangle is one face. Distance is the length of the centroid.
type Triangle struct {
	VertIDs  [3]uint32
	Surface  uint32
	Normal   mathutil.Vec3
	Distance float64
}

// VertexInfluence binds a vertex to up to two pivots.
type VertexInfluence struct {
	Bone     uint16
	XtraBone uint16
	BoneInf  float64
	XtraInf  float64
}

// TextureStage binds textures to one set of per-vertex coordinates.
type TextureStage struct {
	TxIDs    []uint32
	TxCoords []mathutil.Vec2
}

// MaterialPass references materials by index. Legacy passes use
// VertexMaterialIDs, ShaderIDs and TxStages; shader material passes use
// ShaderMaterialIDs and TxCoords.
type MaterialPass struct {
	VertexMaterialIDs []uint32
	ShaderIDs         []uint32
	ShaderMaterialIDs []uint32
	TxStages          []TextureStage
	TxCoords          []mathutil.Vec2
}

// VertexMaterialInfo is the fixed-function lighting block.
type VertexMaterialInfo struct {
	Attributes   uint32
	Ambient      color.RGBA
	Diffuse      color.RGBA
	Specular     color.RGBA
	Emissive     color.RGBA
	Shininess    float64
	Opacity      float64
	Translucency float64
}

// VertexMaterial flags.
const (
	VertexMaterialUseDepthCue      uint32 = 0x00000001
	VertexMaterialArgsCopySpecular uint32 = 0x00000002
)

type VertexMaterial struct {
	Name  string
	Info  VertexMaterialInfo
	Args0 string
	Args1 string
}

// Shader is the 16 byte fixed-function render state block.
type Shader struct {
	DepthCompare        uint8
	DepthMask           uint8
	ColorMask           uint8
	DestBlend           uint8
	FogFunc             uint8
	PriGradient         uint8
	SecGradient         uint8
	SrcBlend            uint8
	Texturing           uint8
	DetailColorFunc     uint8
	DetailAlphaFunc     uint8
	ShaderPreset        uint8
	AlphaTest           uint8
	PostDetailColorFunc uint8
	PostDetailAlphaFunc uint8
	Pad                 uint8
}

// Shader state values used by the exporter.
const (
	DepthCompareLessEqual     uint8 = 3
	DepthMaskWriteEnable      uint8 = 1
	DestBlendZero             uint8 = 0
	DestBlendOneMinusSrcAlpha uint8 = 5
	SrcBlendOne               uint8 = 1
	SrcBlendSrcAlpha          uint8 = 2
	PriGradientModulate       uint8 = 1
	TexturingEnable           uint8 = 1
	AlphaTestEnable           uint8 = 1
)

// TextureInfo carries animation data of a texture.
type TextureInfo struct {
	Attributes uint16
	AnimType   uint16
	FrameCount uint32
	FrameRate  float64
}

// Texture names an image file. ID is the host side name and is not written.
type Texture struct {
	ID   string
	File string
	Info *TextureInfo
}

// Shader material property types.
const (
	PropertyString uint32 = 1
	PropertyFloat  uint32 = 2
	PropertyVec2   uint32 = 3
	PropertyVec3   uint32 = 4
	PropertyVec4   uint32 = 5
	PropertyLong   uint32 = 6
	PropertyBool   uint32 = 7
)

// Vec4 is an RGBA color or other four component value.
type Vec4 [4]float64

// ShaderMaterialProperty is one typed parameter. Value holds a string,
// float64, mathutil.Vec2, mathutil.Vec3, Vec4, int32 or bool matching Type.
type ShaderMaterialProperty struct {
	Type  uint32
	Name  string
	Value any
}

type ShaderMaterialHeader struct {
	Version   uint8
	TypeName  string
	Technique int32
}

type ShaderMaterial struct {
	Header     ShaderMaterialHeader
	Properties []ShaderMaterialProperty
}

// Property returns the property called name.
func (s *ShaderMaterial) Property(name string) (ShaderMaterialProperty, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return ShaderMaterialProperty{}, false
}

// MaterialInfo summarizes the material records of a mesh.
type MaterialInfo struct {
	PassCount     uint32
	VertMatlCount uint32
	ShaderCount   uint32
	TextureCount  uint32
}

// AABBTreeHeader counts nodes and poly indices.
type AABBTreeHeader struct {
	NodeCount uint32
	PolyCount uint32
}

// Children are the node indices of an interior node.
type Children struct {
	Front, Back uint32
}

// Polys is a leaf's range in AABBTree.PolyIndices.
type Polys struct {
	Begin, Count uint32
}

// AABBNode has exactly one of Children or Polys set.
type AABBNode struct {
	Min, Max mathutil.Vec3
	Children *Children
	Polys    *Polys
}

// IsLeaf reports whether the node references a poly range.
func (n *AABBNode) IsLeaf() bool { return n.Polys != nil }

// AABBTree is a node arena rooted at Nodes[0]. Children always follow their
// parent.
type AABBTree struct {
	Header      AABBTreeHeader
	PolyIndices []uint32
	Nodes       []AABBNode
}

// Mesh is one exported mesh record.
type Mesh struct {
	Header          MeshHeader
	UserText        string
	Verts           []mathutil.Vec3
	Normals         []mathutil.Vec3
	Tangents        []mathutil.Vec3
	Bitangents      []mathutil.Vec3
	VertInfs        []VertexInfluence
	Triangles       []Triangle
	ShadeIDs        []uint32
	MatInfo         *MaterialInfo
	Shaders         []Shader
	VertMaterials   []VertexMaterial
	Textures        []Texture
	MaterialPasses  []MaterialPass
	ShaderMaterials []ShaderMaterial
	AABBTree        *AABBTree

	// MultiBoneSkinned is set when some vertex is bound to two pivots. It
	// is not written; the reader derives it from VertInfs.
	MultiBoneSkinned bool
}

// Vertex is the per-vertex view of a Mesh's parallel arrays.
type Vertex struct {
	Position  mathutil.Vec3
	Normal    mathutil.Vec3
	Tangent   *mathutil.Vec3
	Bitangent *mathutil.Vec3
	Influence *VertexInfluence
}

// Vertices zips the vertex arrays. Tangent, Bitangent and Influence stay nil
// when the matching array is shorter than Verts.
func (m *Mesh) Vertices() []Vertex {
	out := make([]Vertex, len(m.Verts))
	for i := range m.Verts {
		v := Vertex{Position: m.Verts[i]}
		if i < len(m.Normals) {
			v.Normal = m.Normals[i]
		}
		if i < len(m.Tangents) {
			v.Tangent = &m.Tangents[i]
		}
		if i < len(m.Bitangents) {
			v.Bitangent = &m.Bitangents[i]
		}
		if i < len(m.VertInfs) {
			v.Influence = &m.VertInfs[i]
		}
		out[i] = v
	}
	return out
}

// Name returns the mesh name.
func (m *Mesh) Name() string { return m.Header.MeshName }

// IsSkinned reports whether any vertex carries an influence.
func (m *Mesh) IsSkinned() bool { return m.Header.Attrs&GeometryTypeSkin != 0 }

// hasSecondInfluence reports whether any vertex has a second influence.
func (m *Mesh) hasSecondInfluence() bool {
	for _, inf := range m.VertInfs {
		if inf.XtraBone != 0 || inf.XtraInf != 0 {
			return true
		}
	}
	return false
}
