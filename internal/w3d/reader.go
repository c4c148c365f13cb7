package w3d

import (
	"encoding/binary"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/report"
)

// ReadFile parses the mesh chunks of a W3D file.
func ReadFile(path string, rep report.Reporter) ([]*Mesh, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "w3d: read %s", path)
	}
	meshes, err := Decode(raw, rep)
	return meshes, errors.Wrapf(err, "w3d: parse %s", path)
}

// Read parses every mesh chunk from r. Other top level chunks are skipped.
func Read(r io.Reader, rep report.Reporter) ([]*Mesh, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "w3d: read")
	}
	return Decode(raw, rep)
}

// Decode parses every mesh chunk in data. Unknown chunks are reported as
// warnings and skipped.
func Decode(data []byte, rep report.Reporter) ([]*Mesh, error) {
	if rep == nil {
		rep = report.Discard
	}
	d := &decoder{data: data, rep: rep}
	var meshes []*Mesh
	for d.off < len(data) {
		typ, end, err := d.chunkHead(len(data))
		if err != nil {
			return meshes, err
		}
		if typ == chunkMesh {
			m := &Mesh{}
			if err := d.mesh(m, end); err != nil {
				return meshes, err
			}
			m.MultiBoneSkinned = m.hasSecondInfluence()
			meshes = append(meshes, m)
		}
		d.off = end
	}
	return meshes, nil
}

type decoder struct {
	data []byte
	off  int
	rep  report.Reporter
}

func (d *decoder) chunkHead(limit int) (typ uint32, end int, err error) {
	if d.off+chunkHeadSize > limit {
		return 0, 0, errors.Errorf("w3d: truncated chunk header at %d", d.off)
	}
	typ = binary.LittleEndian.Uint32(d.data[d.off:])
	size := int(binary.LittleEndian.Uint32(d.data[d.off+4:]) &^ subChunkFlag)
	d.off += chunkHeadSize
	end = d.off + size
	if end > limit {
		return 0, 0, errors.Errorf("w3d: chunk 0x%02x at %d overruns its parent by %d bytes", typ, d.off-chunkHeadSize, end-limit)
	}
	return typ, end, nil
}

// subChunks calls fn for every chunk before end and leaves the offset at end.
func (d *decoder) subChunks(end int, fn func(typ uint32, end int) error) error {
	for d.off < end {
		typ, subEnd, err := d.chunkHead(end)
		if err != nil {
			return err
		}
		if err := fn(typ, subEnd); err != nil {
			return err
		}
		d.off = subEnd
	}
	return nil
}

func (d *decoder) skip(parent string, typ uint32) {
	d.rep.Warning("w3d: unknown chunk 0x%02x in %s", typ, parent)
}

func (d *decoder) u8() uint8 {
	if d.off >= len(d.data) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) u16() uint16 {
	if d.off+2 > len(d.data) {
		d.off = len(d.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2
	return v
}

func (d *decoder) u32() uint32 {
	if d.off+4 > len(d.data) {
		d.off = len(d.data)
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) f32() float64 { return float64(math.Float32frombits(d.u32())) }

func (d *decoder) vec2() mathutil.Vec2 { return mathutil.Vec2{d.f32(), d.f32()} }

func (d *decoder) vec3() mathutil.Vec3 { return mathutil.Vec3{d.f32(), d.f32(), d.f32()} }

func (d *decoder) fixedStr(n int) string {
	if d.off+n > len(d.data) {
		d.off = len(d.data)
		return ""
	}
	s := d.data[d.off : d.off+n]
	d.off += n
	return trimZero(s)
}

// cstr reads a zero terminated string that ends at end.
func (d *decoder) cstr(end int) string {
	if end > len(d.data) {
		end = len(d.data)
	}
	s := d.data[d.off:end]
	d.off = end
	return trimZero(s)
}

func trimZero(s []byte) string {
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (d *decoder) vec3List(end int) []mathutil.Vec3 {
	out := make([]mathutil.Vec3, 0, (end-d.off)/12)
	for d.off+12 <= end {
		out = append(out, d.vec3())
	}
	return out
}

func (d *decoder) vec2List(end int) []mathutil.Vec2 {
	out := make([]mathutil.Vec2, 0, (end-d.off)/8)
	for d.off+8 <= end {
		out = append(out, d.vec2())
	}
	return out
}

func (d *decoder) u32List(end int) []uint32 {
	out := make([]uint32, 0, (end-d.off)/4)
	for d.off+4 <= end {
		out = append(out, d.u32())
	}
	return out
}

func (d *decoder) mesh(m *Mesh, end int) error {
	return d.subChunks(end, func(typ uint32, end int) error {
		switch typ {
		case chunkMeshHeader3:
			d.header(&m.Header)
		case chunkMeshUserText:
			m.UserText = d.cstr(end)
		case chunkVertices:
			m.Verts = d.vec3List(end)
		case chunkVertexNormals:
			m.Normals = d.vec3List(end)
		case chunkTangents:
			m.Tangents = d.vec3List(end)
		case chunkBitangents:
			m.Bitangents = d.vec3List(end)
		case chunkVertexInfluences:
			for d.off+8 <= end {
				m.VertInfs = append(m.VertInfs, VertexInfluence{
					Bone:     d.u16(),
					XtraBone: d.u16(),
					BoneInf:  float64(d.u16()) / 100,
					XtraInf:  float64(d.u16()) / 100,
				})
			}
		case chunkTriangles:
			for d.off+32 <= end {
				var t Triangle
				for k := range t.VertIDs {
					t.VertIDs[k] = d.u32()
				}
				t.Surface = d.u32()
				t.Normal = d.vec3()
				t.Distance = d.f32()
				m.Triangles = append(m.Triangles, t)
			}
		case chunkVertexShadeIndices:
			m.ShadeIDs = d.u32List(end)
		case chunkMaterialInfo:
			m.MatInfo = &MaterialInfo{
				PassCount:     d.u32(),
				VertMatlCount: d.u32(),
				ShaderCount:   d.u32(),
				TextureCount:  d.u32(),
			}
		case chunkShaders:
			for d.off+16 <= end {
				b := d.data[d.off : d.off+16]
				m.Shaders = append(m.Shaders, Shader{
					b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
					b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15],
				})
				d.off += 16
			}
		case chunkVertexMaterials:
			return d.subChunks(end, func(typ uint32, end int) error {
				if typ != chunkVertexMaterial {
					d.skip("vertex materials", typ)
					return nil
				}
				var vm VertexMaterial
				if err := d.vertexMaterial(&vm, end); err != nil {
					return err
				}
				m.VertMaterials = append(m.VertMaterials, vm)
				return nil
			})
		case chunkTextures:
			return d.subChunks(end, func(typ uint32, end int) error {
				if typ != chunkTexture {
					d.skip("textures", typ)
					return nil
				}
				var t Texture
				if err := d.texture(&t, end); err != nil {
					return err
				}
				m.Textures = append(m.Textures, t)
				return nil
			})
		case chunkMaterialPass:
			var p MaterialPass
			if err := d.materialPass(&p, end); err != nil {
				return err
			}
			m.MaterialPasses = append(m.MaterialPasses, p)
		case chunkShaderMaterials:
			return d.subChunks(end, func(typ uint32, end int) error {
				if typ != chunkShaderMaterial {
					d.skip("shader materials", typ)
					return nil
				}
				var sm ShaderMaterial
				if err := d.shaderMaterial(&sm, end); err != nil {
					return err
				}
				m.ShaderMaterials = append(m.ShaderMaterials, sm)
				return nil
			})
		case chunkAABBTree:
			m.AABBTree = &AABBTree{}
			return d.aabbTree(m.AABBTree, end)
		default:
			d.skip("mesh", typ)
		}
		return nil
	})
}

func (d *decoder) header(h *MeshHeader) {
	v := d.u32()
	h.Version = Version{Major: uint16(v >> 16), Minor: uint16(v)}
	h.Attrs = d.u32()
	h.MeshName = d.fixedStr(nameLen)
	h.ContainerName = d.fixedStr(nameLen)
	h.FaceCount = d.u32()
	h.VertCount = d.u32()
	h.MatlCount = d.u32()
	h.DamageStageCount = d.u32()
	h.SortLevel = d.i32()
	h.PrelitVersion = d.u32()
	h.FutureCount = d.u32()
	h.VertChannelFlags = d.u32()
	h.FaceChannelFlags = d.u32()
	h.Min = d.vec3()
	h.Max = d.vec3()
	h.SphCenter = d.vec3()
	h.SphRadius = d.f32()
}

func (d *decoder) rgba() color.RGBA {
	return color.RGBA{R: d.u8(), G: d.u8(), B: d.u8(), A: d.u8()}
}

func (d *decoder) vertexMaterial(vm *VertexMaterial, end int) error {
	return d.subChunks(end, func(typ uint32, end int) error {
		switch typ {
		case chunkVertexMaterialName:
			vm.Name = d.cstr(end)
		case chunkVertexMaterialInfo:
			in := &vm.Info
			in.Attributes = d.u32()
			in.Ambient = d.rgba()
			in.Diffuse = d.rgba()
			in.Specular = d.rgba()
			in.Emissive = d.rgba()
			in.Shininess = d.f32()
			in.Opacity = d.f32()
			in.Translucency = d.f32()
		case chunkVertexMapperArgs0:
			vm.Args0 = d.cstr(end)
		case chunkVertexMapperArgs1:
			vm.Args1 = d.cstr(end)
		default:
			d.skip("vertex material", typ)
		}
		return nil
	})
}

func (d *decoder) texture(t *Texture, end int) error {
	return d.subChunks(end, func(typ uint32, end int) error {
		switch typ {
		case chunkTextureName:
			t.File = d.cstr(end)
			t.ID = t.File
		case chunkTextureInfo:
			t.Info = &TextureInfo{
				Attributes: d.u16(),
				AnimType:   d.u16(),
				FrameCount: d.u32(),
				FrameRate:  d.f32(),
			}
		default:
			d.skip("texture", typ)
		}
		return nil
	})
}

func (d *decoder) materialPass(p *MaterialPass, end int) error {
	return d.subChunks(end, func(typ uint32, end int) error {
		switch typ {
		case chunkVertexMaterialIDs:
			p.VertexMaterialIDs = d.u32List(end)
		case chunkShaderIDs:
			p.ShaderIDs = d.u32List(end)
		case chunkShaderMaterialID:
			p.ShaderMaterialIDs = d.u32List(end)
		case chunkStageTexcoords:
			p.TxCoords = d.vec2List(end)
		case chunkTextureStage:
			var st TextureStage
			err := d.subChunks(end, func(typ uint32, end int) error {
				switch typ {
				case chunkTextureIDs:
					st.TxIDs = d.u32List(end)
				case chunkStageTexcoords:
					st.TxCoords = d.vec2List(end)
				default:
					d.skip("texture stage", typ)
				}
				return nil
			})
			if err != nil {
				return err
			}
			p.TxStages = append(p.TxStages, st)
		default:
			d.skip("material pass", typ)
		}
		return nil
	})
}

func (d *decoder) shaderMaterial(sm *ShaderMaterial, end int) error {
	return d.subChunks(end, func(typ uint32, end int) error {
		switch typ {
		case chunkShaderMatHeader:
			sm.Header.Version = d.u8()
			sm.Header.TypeName = d.fixedStr(shaderTypeLen)
			sm.Header.Technique = d.i32()
		case chunkShaderMatProperty:
			p, err := d.property(end)
			if err != nil {
				return err
			}
			sm.Properties = append(sm.Properties, p)
		default:
			d.skip("shader material", typ)
		}
		return nil
	})
}

func (d *decoder) property(end int) (ShaderMaterialProperty, error) {
	p := ShaderMaterialProperty{Type: d.u32()}
	n := int(d.u32())
	if d.off+n > end {
		return p, errors.Errorf("w3d: property name of %d bytes at %d overruns its chunk", n, d.off)
	}
	p.Name = d.cstr(d.off + n)
	switch p.Type {
	case PropertyString:
		n := int(d.u32())
		if d.off+n > end {
			return p, errors.Errorf("w3d: property %s value overruns its chunk", p.Name)
		}
		p.Value = d.cstr(d.off + n)
	case PropertyFloat:
		p.Value = d.f32()
	case PropertyVec2:
		p.Value = d.vec2()
	case PropertyVec3:
		p.Value = d.vec3()
	case PropertyVec4:
		p.Value = Vec4{d.f32(), d.f32(), d.f32(), d.f32()}
	case PropertyLong:
		p.Value = d.i32()
	case PropertyBool:
		p.Value = d.u8() != 0
	default:
		d.rep.Warning("w3d: shader material property %s has unknown type %d", p.Name, p.Type)
	}
	return p, nil
}

func (d *decoder) aabbTree(t *AABBTree, end int) error {
	return d.subChunks(end, func(typ uint32, end int) error {
		switch typ {
		case chunkAABBTreeHeader:
			t.Header.NodeCount = d.u32()
			t.Header.PolyCount = d.u32()
		case chunkAABBTreePolys:
			t.PolyIndices = d.u32List(end)
		case chunkAABBTreeNodes:
			for d.off+32 <= end {
				n := AABBNode{Min: d.vec3(), Max: d.vec3()}
				front, back := d.u32(), d.u32()
				if front&leafFlag != 0 {
					n.Polys = &Polys{Begin: front &^ leafFlag, Count: back}
				} else {
					n.Children = &Children{Front: front, Back: back}
				}
				t.Nodes = append(t.Nodes, n)
			}
		default:
			d.skip("aabbtree", typ)
		}
		return nil
	})
}
