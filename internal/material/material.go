// Package material turns host materials into W3D material records.
package material

import (
	"image/color"
	"math"
	"path"
	"strings"

	"github.com/samber/lo"

	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/w3d"
)

// Material types a host material can be flagged with.
const (
	TypeVertexMaterial = "VERTEX_MATERIAL"
	TypeShaderMaterial = "SHADER_MATERIAL"
)

// Image is a texture image referenced by a material.
type Image struct {
	Name string
	Path string
}

// File returns the texture file name written into records: the base name of
// the image path, or the image name with a .dds extension when there is no
// path.
func (img *Image) File() string {
	p := strings.ReplaceAll(img.Path, "\\", "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return img.Name + ".dds"
	}
	return path.Base(p)
}

// Source is the parameter block of a host material. Colors are linear RGBA
// in [0, 1].
type Source struct {
	Name         string
	Type         string
	Ambient      w3d.Vec4
	Diffuse      w3d.Vec4
	Specular     w3d.Vec4
	Emissive     w3d.Vec4
	Shininess    float64
	Opacity      float64
	Translucency float64
	Args0, Args1 string
	AlphaTest    bool
	BumpScale    float64
	UVOffset     mathutil.Vec2

	BaseColorTexture *Image
	NormalTexture    *Image

	// Shader overrides the render state derived from the other fields.
	Shader *w3d.Shader
}

// Default returns a white opaque material of the given type.
func Default(name, typ string) *Source {
	return &Source{
		Name:      name,
		Type:      typ,
		Ambient:   w3d.Vec4{1, 1, 1, 1},
		Diffuse:   w3d.Vec4{1, 1, 1, 1},
		Specular:  w3d.Vec4{0, 0, 0, 1},
		Emissive:  w3d.Vec4{0, 0, 0, 1},
		Opacity:   1,
		BumpScale: 1,
	}
}

// Textures lists the images the material references.
func (s *Source) Textures() []*Image {
	var out []*Image
	if s.BaseColorTexture != nil {
		out = append(out, s.BaseColorTexture)
	}
	if s.NormalTexture != nil {
		out = append(out, s.NormalTexture)
	}
	return out
}

// UseShaderMaterial decides the record kind of a material. W3X always uses
// shader materials; otherwise a material becomes a shader material only
// when it is flagged as one and vertex materials are neither forced nor
// required by the legacy format.
func UseShaderMaterial(format w3d.Format, forceVertexMaterials bool, src *Source) bool {
	if format == w3d.FormatW3X {
		return true
	}
	if forceVertexMaterials || format == w3d.FormatW3DLegacy {
		return false
	}
	return src.Type == TypeShaderMaterial
}

// UsedTextures returns the file names of every texture referenced by srcs,
// in first-use order and without duplicates.
func UsedTextures(srcs []*Source) []string {
	var files []string
	for _, s := range srcs {
		for _, img := range s.Textures() {
			files = append(files, img.File())
		}
	}
	return lo.Uniq(files)
}

func toRGBA(c w3d.Vec4) color.RGBA {
	b := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.RGBA{R: b(c[0]), G: b(c[1]), B: b(c[2]), A: b(c[3])}
}

// VertexMaterial builds the fixed-function lighting record.
func VertexMaterial(src *Source) w3d.VertexMaterial {
	return w3d.VertexMaterial{
		Name: src.Name,
		Info: w3d.VertexMaterialInfo{
			Attributes:   w3d.VertexMaterialUseDepthCue,
			Ambient:      toRGBA(src.Ambient),
			Diffuse:      toRGBA(src.Diffuse),
			Specular:     toRGBA(src.Specular),
			Emissive:     toRGBA(src.Emissive),
			Shininess:    src.Shininess,
			Opacity:      src.Opacity,
			Translucency: src.Translucency,
		},
		Args0: src.Args0,
		Args1: src.Args1,
	}
}

// Shader builds the render state record of a vertex material pass.
func Shader(src *Source) w3d.Shader {
	if src.Shader != nil {
		return *src.Shader
	}
	s := w3d.Shader{
		DepthCompare: w3d.DepthCompareLessEqual,
		DepthMask:    w3d.DepthMaskWriteEnable,
		DestBlend:    w3d.DestBlendZero,
		PriGradient:  w3d.PriGradientModulate,
		SrcBlend:     w3d.SrcBlendOne,
	}
	if src.BaseColorTexture != nil {
		s.Texturing = w3d.TexturingEnable
	}
	if src.AlphaTest {
		s.AlphaTest = w3d.AlphaTestEnable
	}
	if src.Opacity < 1 {
		s.SrcBlend = w3d.SrcBlendSrcAlpha
		s.DestBlend = w3d.DestBlendOneMinusSrcAlpha
	}
	return s
}

// ShaderMaterial builds the parameter block record of a shader material.
func ShaderMaterial(src *Source) w3d.ShaderMaterial {
	sm := w3d.ShaderMaterial{
		Header: w3d.ShaderMaterialHeader{Version: 1, TypeName: w3d.ShaderMaterialTypeName},
	}
	add := func(typ uint32, name string, v any) {
		sm.Properties = append(sm.Properties, w3d.ShaderMaterialProperty{Type: typ, Name: name, Value: v})
	}
	if src.BaseColorTexture != nil {
		add(w3d.PropertyString, "DiffuseTexture", src.BaseColorTexture.File())
	}
	if src.NormalTexture != nil {
		add(w3d.PropertyString, "NormalMap", src.NormalTexture.File())
		add(w3d.PropertyFloat, "BumpScale", src.BumpScale)
	}
	add(w3d.PropertyVec4, "AmbientColor", src.Ambient)
	add(w3d.PropertyVec4, "DiffuseColor", src.Diffuse)
	add(w3d.PropertyVec4, "SpecularColor", src.Specular)
	add(w3d.PropertyFloat, "SpecularExponent", src.Shininess)
	if src.Emissive[0] != 0 || src.Emissive[1] != 0 || src.Emissive[2] != 0 {
		add(w3d.PropertyVec4, "EmissiveColor", src.Emissive)
	}
	if src.UVOffset != (mathutil.Vec2{}) {
		add(w3d.PropertyVec2, "UVOffset", src.UVOffset)
	}
	add(w3d.PropertyBool, "AlphaTestEnable", src.AlphaTest)
	return sm
}

// Texture builds the texture record of an image.
func Texture(img *Image) w3d.Texture {
	return w3d.Texture{ID: img.Name, File: img.File(), Info: &w3d.TextureInfo{}}
}
