package material

import (
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/w3d"
)

// Binder appends material records to a mesh slot by slot.
type Binder struct {
	Format               w3d.Format
	ForceVertexMaterials bool
	Reporter             report.Reporter
}

// Bind appends the pass and records of material slot i to m. stages are the
// mesh's texture stages, one per UV layer; slot i consumes stage i when it
// exists.
func (b *Binder) Bind(m *w3d.Mesh, i int, src *Source, stages []w3d.TextureStage) {
	var pass w3d.MaterialPass
	id := uint32(i)

	if UseShaderMaterial(b.Format, b.ForceVertexMaterials, src) {
		pass.ShaderMaterialIDs = []uint32{id}
		if i < len(stages) {
			pass.TxCoords = stages[i].TxCoords
		}
		m.ShaderMaterials = append(m.ShaderMaterials, ShaderMaterial(src))
		m.MaterialPasses = append(m.MaterialPasses, pass)
		return
	}

	m.Shaders = append(m.Shaders, Shader(src))
	pass.ShaderIDs = []uint32{id}
	pass.VertexMaterialIDs = []uint32{id}
	if i < len(stages) {
		pass.TxStages = append(pass.TxStages, stages[i])
	}
	m.VertMaterials = append(m.VertMaterials, VertexMaterial(src))

	if src.BaseColorTexture != nil {
		m.Textures = append(m.Textures, Texture(src.BaseColorTexture))
	}
	if src.NormalTexture != nil && b.Reporter != nil {
		b.Reporter.Warning("material %s: normal maps are only exported with shader materials", src.Name)
	}
	m.MaterialPasses = append(m.MaterialPasses, pass)
}

// Summarize fills the material info and material count of m.
func Summarize(m *w3d.Mesh) {
	m.MatInfo = &w3d.MaterialInfo{
		PassCount:     uint32(len(m.MaterialPasses)),
		VertMatlCount: uint32(len(m.VertMaterials)),
		ShaderCount:   uint32(len(m.Shaders)),
		TextureCount:  uint32(len(m.Textures)),
	}
	m.Header.MatlCount = uint32(max(len(m.VertMaterials), len(m.ShaderMaterials)))
}
