package w3d

import (
	"encoding/binary"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"w3d-exporter/internal/mathutil"
)

// WriteFile writes meshes to path as a W3D file.
func WriteFile(path string, meshes []*Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "w3d: create %s", path)
	}
	if err := Write(f, meshes); err != nil {
		f.Close()
		return errors.Wrapf(err, "w3d: write %s", path)
	}
	return errors.Wrapf(f.Close(), "w3d: close %s", path)
}

// Write encodes one mesh chunk per mesh.
func Write(w io.Writer, meshes []*Mesh) error {
	var e encoder
	for _, m := range meshes {
		e.mesh(m)
	}
	_, err := w.Write(e.buf)
	return errors.Wrap(err, "w3d: write")
}

// Encode returns the chunk bytes of a single mesh.
func Encode(m *Mesh) []byte {
	var e encoder
	e.mesh(m)
	return e.buf
}

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }

func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *encoder) i32(v int32) { e.u32(uint32(v)) }

func (e *encoder) f32(v float64) { e.u32(math.Float32bits(float32(v))) }

func (e *encoder) vec2(v mathutil.Vec2) {
	e.f32(v[0])
	e.f32(v[1])
}

func (e *encoder) vec3(v mathutil.Vec3) {
	e.f32(v[0])
	e.f32(v[1])
	e.f32(v[2])
}

// fixedStr writes s truncated to n-1 bytes and zero padded to n.
func (e *encoder) fixedStr(s string, n int) {
	if len(s) > n-1 {
		s = s[:n-1]
	}
	e.buf = append(e.buf, s...)
	for i := len(s); i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// cstr writes s with a terminating zero.
func (e *encoder) cstr(s string) {
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// chunk writes a chunk header, runs body and patches the size afterwards.
func (e *encoder) chunk(typ uint32, hasSub bool, body func()) {
	start := len(e.buf)
	e.u32(typ)
	e.u32(0)
	body()
	size := uint32(len(e.buf) - start - chunkHeadSize)
	if hasSub {
		size |= subChunkFlag
	}
	binary.LittleEndian.PutUint32(e.buf[start+4:], size)
}

func (e *encoder) vec3List(typ uint32, vs []mathutil.Vec3) {
	if len(vs) == 0 {
		return
	}
	e.chunk(typ, false, func() {
		for _, v := range vs {
			e.vec3(v)
		}
	})
}

func (e *encoder) vec2List(typ uint32, vs []mathutil.Vec2) {
	if len(vs) == 0 {
		return
	}
	e.chunk(typ, false, func() {
		for _, v := range vs {
			e.vec2(v)
		}
	})
}

func (e *encoder) u32List(typ uint32, vs []uint32) {
	if len(vs) == 0 {
		return
	}
	e.chunk(typ, false, func() {
		for _, v := range vs {
			e.u32(v)
		}
	})
}

func (e *encoder) mesh(m *Mesh) {
	e.chunk(chunkMesh, true, func() {
		e.chunk(chunkMeshHeader3, false, func() { e.header(&m.Header) })
		if m.UserText != "" {
			e.chunk(chunkMeshUserText, false, func() { e.cstr(m.UserText) })
		}
		e.vec3List(chunkVertices, m.Verts)
		e.vec3List(chunkVertexNormals, m.Normals)
		e.vec3List(chunkTangents, m.Tangents)
		e.vec3List(chunkBitangents, m.Bitangents)
		if len(m.VertInfs) > 0 {
			e.chunk(chunkVertexInfluences, false, func() {
				for _, inf := range m.VertInfs {
					e.influence(inf)
				}
			})
		}
		if len(m.Triangles) > 0 {
			e.chunk(chunkTriangles, false, func() {
				for _, t := range m.Triangles {
					e.triangle(t)
				}
			})
		}
		e.u32List(chunkVertexShadeIndices, m.ShadeIDs)
		if m.MatInfo != nil {
			e.chunk(chunkMaterialInfo, false, func() {
				e.u32(m.MatInfo.PassCount)
				e.u32(m.MatInfo.VertMatlCount)
				e.u32(m.MatInfo.ShaderCount)
				e.u32(m.MatInfo.TextureCount)
			})
		}
		if len(m.Shaders) > 0 {
			e.chunk(chunkShaders, false, func() {
				for _, s := range m.Shaders {
					e.shader(s)
				}
			})
		}
		if len(m.VertMaterials) > 0 {
			e.chunk(chunkVertexMaterials, true, func() {
				for _, vm := range m.VertMaterials {
					e.vertexMaterial(vm)
				}
			})
		}
		if len(m.Textures) > 0 {
			e.chunk(chunkTextures, true, func() {
				for _, t := range m.Textures {
					e.texture(t)
				}
			})
		}
		for _, p := range m.MaterialPasses {
			e.materialPass(p)
		}
		if len(m.ShaderMaterials) > 0 {
			e.chunk(chunkShaderMaterials, true, func() {
				for _, sm := range m.ShaderMaterials {
					e.shaderMaterial(sm)
				}
			})
		}
		if m.AABBTree != nil {
			e.aabbTree(m.AABBTree)
		}
	})
}

func (e *encoder) header(h *MeshHeader) {
	e.u32(uint32(h.Version.Major)<<16 | uint32(h.Version.Minor))
	e.u32(h.Attrs)
	e.fixedStr(h.MeshName, nameLen)
	e.fixedStr(h.ContainerName, nameLen)
	e.u32(h.FaceCount)
	e.u32(h.VertCount)
	e.u32(h.MatlCount)
	e.u32(h.DamageStageCount)
	e.i32(h.SortLevel)
	e.u32(h.PrelitVersion)
	e.u32(h.FutureCount)
	e.u32(h.VertChannelFlags)
	e.u32(h.FaceChannelFlags)
	e.vec3(h.Min)
	e.vec3(h.Max)
	e.vec3(h.SphCenter)
	e.f32(h.SphRadius)
}

func (e *encoder) influence(inf VertexInfluence) {
	e.u16(inf.Bone)
	e.u16(inf.XtraBone)
	e.u16(uint16(math.Round(inf.BoneInf * 100)))
	e.u16(uint16(math.Round(inf.XtraInf * 100)))
}

func (e *encoder) triangle(t Triangle) {
	for _, id := range t.VertIDs {
		e.u32(id)
	}
	e.u32(t.Surface)
	e.vec3(t.Normal)
	e.f32(t.Distance)
}

func (e *encoder) shader(s Shader) {
	e.buf = append(e.buf,
		s.DepthCompare, s.DepthMask, s.ColorMask, s.DestBlend,
		s.FogFunc, s.PriGradient, s.SecGradient, s.SrcBlend,
		s.Texturing, s.DetailColorFunc, s.DetailAlphaFunc, s.ShaderPreset,
		s.AlphaTest, s.PostDetailColorFunc, s.PostDetailAlphaFunc, s.Pad)
}

func (e *encoder) rgba(c color.RGBA) {
	e.buf = append(e.buf, c.R, c.G, c.B, c.A)
}

func (e *encoder) vertexMaterial(vm VertexMaterial) {
	e.chunk(chunkVertexMaterial, true, func() {
		e.chunk(chunkVertexMaterialName, false, func() { e.cstr(vm.Name) })
		e.chunk(chunkVertexMaterialInfo, false, func() {
			in := vm.Info
			e.u32(in.Attributes)
			e.rgba(in.Ambient)
			e.rgba(in.Diffuse)
			e.rgba(in.Specular)
			e.rgba(in.Emissive)
			e.f32(in.Shininess)
			e.f32(in.Opacity)
			e.f32(in.Translucency)
		})
		if vm.Args0 != "" {
			e.chunk(chunkVertexMapperArgs0, false, func() { e.cstr(vm.Args0) })
		}
		if vm.Args1 != "" {
			e.chunk(chunkVertexMapperArgs1, false, func() { e.cstr(vm.Args1) })
		}
	})
}

func (e *encoder) texture(t Texture) {
	e.chunk(chunkTexture, true, func() {
		e.chunk(chunkTextureName, false, func() { e.cstr(t.File) })
		if t.Info != nil {
			e.chunk(chunkTextureInfo, false, func() {
				e.u16(t.Info.Attributes)
				e.u16(t.Info.AnimType)
				e.u32(t.Info.FrameCount)
				e.f32(t.Info.FrameRate)
			})
		}
	})
}

func (e *encoder) materialPass(p MaterialPass) {
	e.chunk(chunkMaterialPass, true, func() {
		e.u32List(chunkVertexMaterialIDs, p.VertexMaterialIDs)
		e.u32List(chunkShaderIDs, p.ShaderIDs)
		for _, st := range p.TxStages {
			e.chunk(chunkTextureStage, true, func() {
				e.u32List(chunkTextureIDs, st.TxIDs)
				e.vec2List(chunkStageTexcoords, st.TxCoords)
			})
		}
		e.u32List(chunkShaderMaterialID, p.ShaderMaterialIDs)
		e.vec2List(chunkStageTexcoords, p.TxCoords)
	})
}

func (e *encoder) shaderMaterial(sm ShaderMaterial) {
	e.chunk(chunkShaderMaterial, true, func() {
		e.chunk(chunkShaderMatHeader, false, func() {
			e.u8(sm.Header.Version)
			e.fixedStr(sm.Header.TypeName, shaderTypeLen)
			e.i32(sm.Header.Technique)
		})
		for _, p := range sm.Properties {
			e.chunk(chunkShaderMatProperty, false, func() { e.property(p) })
		}
	})
}

func (e *encoder) property(p ShaderMaterialProperty) {
	e.u32(p.Type)
	e.u32(uint32(len(p.Name) + 1))
	e.cstr(p.Name)
	switch v := p.Value.(type) {
	case string:
		e.u32(uint32(len(v) + 1))
		e.cstr(v)
	case float64:
		e.f32(v)
	case mathutil.Vec2:
		e.vec2(v)
	case mathutil.Vec3:
		e.vec3(v)
	case Vec4:
		for _, c := range v {
			e.f32(c)
		}
	case int32:
		e.i32(v)
	case bool:
		if v {
			e.u8(1)
		} else {
			e.u8(0)
		}
	}
}

func (e *encoder) aabbTree(t *AABBTree) {
	e.chunk(chunkAABBTree, true, func() {
		e.chunk(chunkAABBTreeHeader, false, func() {
			e.u32(t.Header.NodeCount)
			e.u32(t.Header.PolyCount)
			e.buf = append(e.buf, make([]byte, 24)...)
		})
		e.u32List(chunkAABBTreePolys, t.PolyIndices)
		if len(t.Nodes) == 0 {
			return
		}
		e.chunk(chunkAABBTreeNodes, false, func() {
			for _, n := range t.Nodes {
				e.vec3(n.Min)
				e.vec3(n.Max)
				switch {
				case n.Children != nil:
					e.u32(n.Children.Front)
					e.u32(n.Children.Back)
				case n.Polys != nil:
					e.u32(n.Polys.Begin | leafFlag)
					e.u32(n.Polys.Count)
				default:
					e.u32(leafFlag)
					e.u32(0)
				}
			}
		})
	})
}
