package raster

import (
	"image"
	"image/color"
	"math"

	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/texture"
	"w3d-exporter/internal/w3d"
)

// RenderMeshes renders W3D mesh records to an NRGBA image from the preview
// camera. Hidden meshes are skipped. The result is size×supersample pixels
// square.
func RenderMeshes(meshes []*w3d.Mesh, texResolver texture.Resolver, size, supersample int) *image.NRGBA {
	supersample = max(supersample, 1)
	renderSize := size * supersample

	var visible []*w3d.Mesh
	for _, m := range meshes {
		if m.Header.Attrs&w3d.GeometryTypeHidden == 0 && len(m.Verts) > 0 {
			visible = append(visible, m)
		}
	}
	if len(visible) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	}

	R := mathutil.PreviewView

	// Compute bounding box of all transformed vertices
	allMin := mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	allMax := mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, m := range visible {
		for _, v := range m.Verts {
			tv := R.MulVec3(v)
			allMin = allMin.Min(tv)
			allMax = allMax.Max(tv)
		}
	}

	center := allMin.Add(allMax).Scale(0.5)
	span := math.Max(allMax[0]-allMin[0], allMax[1]-allMin[1])
	if span < 0.001 {
		span = 0.001
	}

	margin := min(16, size/8) * supersample
	scale := float64(renderSize-2*margin) / span

	f := newFrame(renderSize)
	light := PreviewLight()

	for _, m := range visible {
		texName, uvs := surface(m)
		p := &paint{flat: baseColor(m)}
		if texResolver != nil && texName != "" && len(uvs) >= len(m.Verts) {
			p.tex = texResolver.Resolve(texName)
		}
		if p.tex != nil {
			p.flat = averageColor(p.tex)
		}

		verts := project(m, R, center, scale, renderSize, &light)
		smooth := len(m.Normals) == len(m.Verts)
		for _, t := range m.Triangles {
			var tri [3]vertex
			ok := true
			for k, id := range t.VertIDs {
				if int(id) >= len(verts) {
					ok = false
					break
				}
				tri[k] = verts[id]
				if p.tex != nil {
					tri[k].uv = uvs[id]
				}
			}
			if !ok {
				continue
			}
			if !smooth {
				flatLight(&tri, &light)
			}
			f.fill(tri, p, &light)
		}
	}
	return f.img
}

// project maps mesh vertices to screen space and lights them with the
// rotated vertex normals when the record has them.
func project(m *w3d.Mesh, R mathutil.Mat3, center mathutil.Vec3, scale float64, renderSize int, l *Light) []vertex {
	half := float64(renderSize) / 2
	out := make([]vertex, len(m.Verts))
	for i, v := range m.Verts {
		t := R.MulVec3(v)
		out[i] = vertex{
			x: (t[0]-center[0])*scale + half,
			y: -(t[1]-center[1])*scale + half,
			z: t[2],
		}
		if i < len(m.Normals) {
			out[i].light = l.Shade(R.MulVec3(m.Normals[i]).Normalize())
		}
	}
	return out
}

// flatLight lights a triangle by its view space face normal.
func flatLight(tri *[3]vertex, l *Light) {
	a, b, c := tri[0], tri[1], tri[2]
	n := mathutil.Vec3{b.x - a.x, a.y - b.y, b.z - a.z}.Cross(mathutil.Vec3{c.x - a.x, a.y - c.y, c.z - a.z})
	shade := l.Ambient
	if n.Len() > 1e-12 {
		shade = l.Shade(n.Normalize())
	}
	for k := range tri {
		tri[k].light = shade
	}
}

// surface returns the texture file and per-vertex UVs of a mesh's first
// material pass. UVs are flipped to image space.
func surface(m *w3d.Mesh) (string, []mathutil.Vec2) {
	if len(m.MaterialPasses) == 0 {
		return "", nil
	}
	pass := m.MaterialPasses[0]

	var name string
	var coords []mathutil.Vec2
	switch {
	case len(pass.ShaderMaterialIDs) > 0:
		if id := pass.ShaderMaterialIDs[0]; int(id) < len(m.ShaderMaterials) {
			if p, ok := m.ShaderMaterials[id].Property("DiffuseTexture"); ok {
				name, _ = p.Value.(string)
			}
		}
		coords = pass.TxCoords
	case len(pass.TxStages) > 0:
		st := pass.TxStages[0]
		if len(st.TxIDs) > 0 && int(st.TxIDs[0]) < len(m.Textures) {
			name = m.Textures[st.TxIDs[0]].File
		}
		coords = st.TxCoords
	}

	uvs := make([]mathutil.Vec2, len(coords))
	for i, c := range coords {
		uvs[i] = mathutil.Vec2{c[0], 1 - c[1]}
	}
	return name, uvs
}

var grey = color.NRGBA{R: 160, G: 160, B: 170, A: 255}

// baseColor is the diffuse color of the first vertex material, or grey.
func baseColor(m *w3d.Mesh) color.NRGBA {
	if len(m.VertMaterials) > 0 {
		d := m.VertMaterials[0].Info.Diffuse
		return color.NRGBA{R: d.R, G: d.G, B: d.B, A: 255}
	}
	return grey
}

func averageColor(tex *image.NRGBA) color.NRGBA {
	b := tex.Bounds()
	if b.Empty() {
		return grey
	}
	var sum [3]float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := tex.Pix[tex.PixOffset(b.Min.X, y):tex.PixOffset(b.Max.X, y)]
		for x := 0; x < len(row); x += 4 {
			sum[0] += float64(row[x])
			sum[1] += float64(row[x+1])
			sum[2] += float64(row[x+2])
		}
	}
	n := float64(b.Dx() * b.Dy())
	return color.NRGBA{R: clamp8(sum[0] / n), G: clamp8(sum[1] / n), B: clamp8(sum[2] / n), A: 255}
}
