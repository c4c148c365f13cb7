package w3d

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/report"
)

func sampleMesh() *Mesh {
	return &Mesh{
		Header: MeshHeader{
			Version:          MeshVersion,
			Attrs:            GeometryTypeSkin,
			MeshName:         "BOX",
			ContainerName:    "CONTAINER",
			FaceCount:        1,
			VertCount:        3,
			MatlCount:        1,
			SortLevel:        -1,
			VertChannelFlags: VertexChannelLocation | VertexChannelNormal | VertexChannelTangent | VertexChannelBitangent,
			FaceChannelFlags: FaceChannelFace,
			Min:              mathutil.Vec3{0, 0, 0},
			Max:              mathutil.Vec3{1, 1, 0},
			SphCenter:        mathutil.Vec3{0.5, 0.5, 0},
			SphRadius:        0.75,
		},
		UserText:         "some text",
		MultiBoneSkinned: true,
		Verts:            []mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:          []mathutil.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Tangents:         []mathutil.Vec3{{0, -1, 0}, {0, -1, 0}, {0, -1, 0}},
		Bitangents:       []mathutil.Vec3{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}},
		VertInfs: []VertexInfluence{
			{Bone: 1, BoneInf: 1},
			{Bone: 1, XtraBone: 2, BoneInf: 0.5, XtraInf: 0.5},
			{Bone: 2, BoneInf: 0.25},
		},
		Triangles: []Triangle{{VertIDs: [3]uint32{0, 1, 2}, Normal: mathutil.Vec3{0, 0, 1}, Distance: 0.5}},
		ShadeIDs:  []uint32{0, 1, 2},
		MatInfo:   &MaterialInfo{PassCount: 2, VertMatlCount: 1, ShaderCount: 1, TextureCount: 1},
		Shaders: []Shader{{
			DepthCompare: DepthCompareLessEqual, DepthMask: DepthMaskWriteEnable,
			DestBlend: DestBlendZero, PriGradient: PriGradientModulate,
			SrcBlend: SrcBlendOne, Texturing: TexturingEnable,
		}},
		VertMaterials: []VertexMaterial{{
			Name: "mat",
			Info: VertexMaterialInfo{
				Diffuse:  color.RGBA{R: 255, G: 128, B: 0, A: 255},
				Specular: color.RGBA{A: 255},
				Opacity:  1,
			},
			Args0: "UPerSec=1.0",
		}},
		Textures: []Texture{{ID: "wood.tga", File: "wood.tga", Info: &TextureInfo{FrameCount: 1}}},
		MaterialPasses: []MaterialPass{
			{
				VertexMaterialIDs: []uint32{0},
				ShaderIDs:         []uint32{0},
				TxStages: []TextureStage{{
					TxIDs:    []uint32{0},
					TxCoords: []mathutil.Vec2{{0, 0}, {1, 0}, {0, 1}},
				}},
			},
			{
				ShaderMaterialIDs: []uint32{0},
				TxCoords:          []mathutil.Vec2{{0, 0}, {1, 0}, {0, 1}},
			},
		},
		ShaderMaterials: []ShaderMaterial{{
			Header: ShaderMaterialHeader{Version: 1, TypeName: ShaderMaterialTypeName},
			Properties: []ShaderMaterialProperty{
				{Type: PropertyString, Name: "DiffuseTexture", Value: "wood.tga"},
				{Type: PropertyFloat, Name: "SpecularExponent", Value: 20.0},
				{Type: PropertyVec2, Name: "UVOffset", Value: mathutil.Vec2{0.5, 0.25}},
				{Type: PropertyVec3, Name: "Ambient", Value: mathutil.Vec3{1, 1, 1}},
				{Type: PropertyVec4, Name: "ColorDiffuse", Value: Vec4{1, 0.5, 0, 1}},
				{Type: PropertyLong, Name: "NumTextures", Value: int32(1)},
				{Type: PropertyBool, Name: "AlphaTestEnable", Value: true},
			},
		}},
		AABBTree: &AABBTree{
			Header:      AABBTreeHeader{NodeCount: 3, PolyCount: 3},
			PolyIndices: []uint32{0, 2, 1},
			Nodes: []AABBNode{
				{Max: mathutil.Vec3{1, 1, 0}, Children: &Children{Front: 1, Back: 2}},
				{Max: mathutil.Vec3{0, 1, 0}, Polys: &Polys{Begin: 0, Count: 2}},
				{Min: mathutil.Vec3{1, 0, 0}, Max: mathutil.Vec3{1, 0, 0}, Polys: &Polys{Begin: 2, Count: 1}},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	in := sampleMesh()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []*Mesh{in, {Header: MeshHeader{MeshName: "EMPTY"}}}))

	var rep report.Collector
	out, err := Read(&buf, &rep)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)
	require.Len(t, out, 2)
	assert.Equal(t, in, out[0])
	assert.Equal(t, "EMPTY", out[1].Name())
}

func TestHeaderLayout(t *testing.T) {
	data := Encode(&Mesh{Header: MeshHeader{MeshName: "A_VERY_LONG_MESH_NAME", Version: MeshVersion}})

	// mesh chunk + header chunk + 116 byte header
	require.Len(t, data, 8+8+116)
	assert.Equal(t, chunkMesh, binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, subChunkFlag|(8+116), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, chunkMeshHeader3, binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(116), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint32(4<<16|2), binary.LittleEndian.Uint32(data[16:]))

	out, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "A_VERY_LONG_MES", out[0].Header.MeshName)
}

func TestLeafEncoding(t *testing.T) {
	var e encoder
	e.aabbTree(&AABBTree{Nodes: []AABBNode{{Polys: &Polys{Begin: 7, Count: 3}}}})

	// tree chunk, header chunk (8+32), polys chunk omitted, nodes chunk header
	node := e.buf[8+8+32+8:]
	assert.Equal(t, leafFlag|7, binary.LittleEndian.Uint32(node[24:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(node[28:]))
}

func TestUnknownChunksAreSkipped(t *testing.T) {
	var e encoder
	e.chunk(0x0100, false, func() { e.u32(42) })
	e.chunk(chunkMesh, true, func() {
		e.chunk(chunkMeshHeader3, false, func() { e.header(&MeshHeader{MeshName: "M"}) })
		e.chunk(0x0077, false, func() { e.u32(1) })
		e.vec3List(chunkVertices, []mathutil.Vec3{{1, 2, 3}})
	})

	var rep report.Collector
	out, err := Decode(e.buf, &rep)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []mathutil.Vec3{{1, 2, 3}}, out[0].Verts)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "0x77")
}

func TestTruncatedChunk(t *testing.T) {
	data := Encode(sampleMesh())
	_, err := Decode(data[:len(data)-5], nil)
	assert.Error(t, err)
}

func TestVertices(t *testing.T) {
	m := sampleMesh()
	m.Tangents = nil
	vs := m.Vertices()
	require.Len(t, vs, 3)
	assert.Nil(t, vs[0].Tangent)
	require.NotNil(t, vs[1].Influence)
	assert.Equal(t, uint16(2), vs[1].Influence.XtraBone)
	assert.Equal(t, m.Bitangents[2], *vs[2].Bitangent)
	assert.True(t, m.IsSkinned())
	assert.True(t, m.hasSecondInfluence())
	m.VertInfs[1] = VertexInfluence{Bone: 1, BoneInf: 1}
	assert.False(t, m.hasSecondInfluence())
}
