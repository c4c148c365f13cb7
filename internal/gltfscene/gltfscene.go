// Package gltfscene reads glTF 2.0 documents into export scenes.
//
// glTF is Y-up; every position, direction and node transform is rotated
// into the Z-up frame the exporter works in. Texture V is flipped so the
// origin sits at the bottom left.
package gltfscene

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"w3d-exporter/internal/material"
	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/mesh"
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/scene"
	"w3d-exporter/internal/skeleton"
	"w3d-exporter/internal/w3d"
)

// Keys read from node and material extras.
const (
	ExtraType         = "w3d_type"
	ExtraHidden       = "hidden"
	ExtraUserText     = "user_text"
	ExtraMaterialType = "w3d_material_type"
	ExtraShininess    = "shininess"
	ExtraTranslucency = "translucency"
)

// Load opens a .gltf or .glb file. The scene is named after the file.
func Load(path string, rep report.Reporter) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "gltfscene: open %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromDocument(doc, name, filepath.Dir(path), rep)
}

// FromDocument converts doc. dir resolves relative image URIs.
func FromDocument(doc *gltf.Document, name, dir string, rep report.Reporter) (*scene.Scene, error) {
	if rep == nil {
		rep = report.Discard
	}
	l := &loader{doc: doc, dir: dir, rep: rep}
	l.indexParents()

	sc := &scene.Scene{Name: name}
	if s := l.activeScene(); s != nil && s.Name != "" && name == "" {
		sc.Name = s.Name
	}

	l.materials = make([]*material.Source, len(doc.Materials))
	for i, gm := range doc.Materials {
		l.materials[i] = l.material(gm, i)
	}

	skin := -1
	for _, n := range l.traversal() {
		node := doc.Nodes[n]
		if node.Mesh == nil || node.Skin == nil {
			continue
		}
		switch s := int(*node.Skin); {
		case s >= len(doc.Skins):
			rep.Warning("node %s references missing skin %d", l.nodeName(n), s)
		case skin < 0:
			skin = s
		case s != skin:
			rep.Warning("node %s uses skin %d; only skin %d is exported", l.nodeName(n), s, skin)
		}
	}
	if skin >= 0 {
		sc.Hierarchy, sc.Armature = l.rig(skin, name)
	}

	for _, n := range l.traversal() {
		node := doc.Nodes[n]
		if node.Mesh == nil {
			continue
		}
		obj, err := l.object(n)
		if err != nil {
			return nil, err
		}
		if node.Skin != nil && int(*node.Skin) == skin {
			obj.Armature = sc.Armature
		}
		sc.Objects = append(sc.Objects, obj)
	}
	return sc, nil
}

type loader struct {
	doc       *gltf.Document
	dir       string
	rep       report.Reporter
	parents   []int
	worlds    map[int]mathutil.Mat4
	materials []*material.Source
}

func (l *loader) indexParents() {
	l.parents = make([]int, len(l.doc.Nodes))
	for i := range l.parents {
		l.parents[i] = -1
	}
	for i, n := range l.doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(l.parents) {
				l.parents[c] = i
			}
		}
	}
}

func (l *loader) activeScene() *gltf.Scene {
	if len(l.doc.Scenes) == 0 {
		return nil
	}
	i := 0
	if l.doc.Scene != nil && int(*l.doc.Scene) < len(l.doc.Scenes) {
		i = int(*l.doc.Scene)
	}
	return l.doc.Scenes[i]
}

// traversal lists the nodes of the active scene depth first. Without
// scenes every parentless node is a root.
func (l *loader) traversal() []int {
	var roots []int
	if s := l.activeScene(); s != nil {
		for _, n := range s.Nodes {
			roots = append(roots, int(n))
		}
	} else {
		for i, p := range l.parents {
			if p < 0 {
				roots = append(roots, i)
			}
		}
	}

	var out []int
	seen := map[int]bool{}
	var visit func(int)
	visit = func(n int) {
		if n < 0 || n >= len(l.doc.Nodes) || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, c := range l.doc.Nodes[n].Children {
			visit(int(c))
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}

func (l *loader) nodeName(n int) string {
	if name := l.doc.Nodes[n].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node%d", n)
}

// yUpToZUp maps glTF (x, y, z) to (x, -z, y).
var yUpToZUp = mathutil.Mat4{
	1, 0, 0, 0,
	0, 0, -1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

func zUp(v [3]float32) mathutil.Vec3 {
	return mathutil.Vec3{float64(v[0]), -float64(v[2]), float64(v[1])}
}

func vec3(v [3]float32) mathutil.Vec3 {
	return mathutil.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// local returns the node transform relative to its parent in Z-up space.
func (l *loader) local(n int) mathutil.Mat4 {
	node := l.doc.Nodes[n]
	var m mathutil.Mat4
	if cm := node.MatrixOrDefault(); cm != gltf.DefaultMatrix {
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				m[r*4+c] = float64(cm[c*4+r])
			}
		}
	} else {
		t, q, s := node.TranslationOrDefault(), node.RotationOrDefault(), node.ScaleOrDefault()
		rot := mathutil.Quat{float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])}
		m = mathutil.FromTRS(vec3(t), rot, vec3(s))
	}
	return mathutil.Mat4Mul(mathutil.Mat4Mul(yUpToZUp, m), yUpToZUp.Inverse())
}

func (l *loader) world(n int) mathutil.Mat4 {
	if n < 0 {
		return mathutil.Mat4Identity()
	}
	if m, ok := l.worlds[n]; ok {
		return m
	}
	m := mathutil.Mat4Mul(l.world(l.parents[n]), l.local(n))
	if l.worlds == nil {
		l.worlds = map[int]mathutil.Mat4{}
	}
	l.worlds[n] = m
	return m
}

func (l *loader) object(n int) (*scene.Object, error) {
	node := l.doc.Nodes[n]
	if int(*node.Mesh) >= len(l.doc.Meshes) {
		return nil, errors.Errorf("gltfscene: node %s references missing mesh %d", l.nodeName(n), *node.Mesh)
	}
	gm := l.doc.Meshes[*node.Mesh]
	name := node.Name
	if name == "" {
		name = gm.Name
	}

	obj := scene.NewObject(name, nil)
	obj.Transform = l.world(n)
	if t, ok := extra[string](node.Extras, ExtraType); ok {
		obj.Type = strings.ToUpper(t)
	}
	obj.Hidden, _ = extra[bool](node.Extras, ExtraHidden)
	obj.UserText, _ = extra[string](node.Extras, ExtraUserText)
	if node.Skin != nil && int(*node.Skin) < len(l.doc.Skins) {
		obj.Groups = l.jointNames(int(*node.Skin))
	}

	m, slots, err := l.mesh(name, gm)
	if err != nil {
		return nil, err
	}
	obj.Mesh = m
	for _, s := range slots {
		if s < 0 {
			obj.Materials = append(obj.Materials, nil)
		} else {
			obj.Materials = append(obj.Materials, l.materials[s])
		}
	}
	return obj, nil
}

// weldKey identifies corners that become one vertex.
type weldKey struct {
	pos     [3]float32
	joints  [4]uint16
	weights [4]float32
}

type primitiveData struct {
	pos     [][3]float32
	nrm     [][3]float32
	uv      [][][2]float32
	joints  [][4]uint16
	weights [][4]float32
	indices []uint32
}

// mesh merges the triangle primitives of gm. It returns the material index
// of each slot, -1 for primitives without material.
func (l *loader) mesh(name string, gm *gltf.Mesh) (*mesh.Mesh, []int, error) {
	var prims []*gltf.Primitive
	for i, p := range gm.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			l.rep.Warning("mesh %s: primitive %d is not a triangle list and is skipped", name, i)
			continue
		}
		if _, ok := p.Attributes[gltf.POSITION]; !ok {
			l.rep.Warning("mesh %s: primitive %d has no positions and is skipped", name, i)
			continue
		}
		prims = append(prims, p)
	}

	layers := -1
	for _, p := range prims {
		n := 0
		for ; ; n++ {
			if _, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", n)]; !ok {
				break
			}
		}
		if layers < 0 || n < layers {
			layers = n
		}
	}
	layers = max(layers, 0)

	m := &mesh.Mesh{UVLayers: make([]mesh.UVLayer, layers)}
	for i := range m.UVLayers {
		m.UVLayers[i].Name = fmt.Sprintf("UVMap%d", i)
	}
	welded := map[weldKey]int{}
	var slots []int

	for pi, p := range prims {
		data, err := l.readPrimitive(p, layers)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "gltfscene: mesh %s primitive %d", name, pi)
		}

		mat := -1
		if p.Material != nil && int(*p.Material) < len(l.materials) {
			mat = int(*p.Material)
		}
		slot := slices.Index(slots, mat)
		if slot < 0 {
			slot = len(slots)
			slots = append(slots, mat)
		}

		ids := make([]int, len(data.pos))
		for i, pos := range data.pos {
			key := weldKey{pos: pos}
			if data.joints != nil {
				key.joints, key.weights = data.joints[i], data.weights[i]
			}
			id, ok := welded[key]
			if !ok {
				id = len(m.Vertices)
				welded[key] = id
				v := mesh.Vertex{Position: zUp(pos)}
				if data.nrm != nil {
					v.Normal = zUp(data.nrm[i]).Normalize()
				}
				if data.joints != nil {
					v.Groups = groups(data.joints[i], data.weights[i])
				}
				m.Vertices = append(m.Vertices, v)
			}
			ids[i] = id
		}

		for t := 0; t+2 < len(data.indices); t += 3 {
			c := data.indices[t : t+3]
			poly := mesh.Polygon{
				Vertices: []int{ids[c[0]], ids[c[1]], ids[c[2]]},
				Material: slot,
				Smooth:   data.nrm != nil,
			}
			poly.Normal = mesh.FaceNormal(
				m.Vertices[poly.Vertices[0]].Position,
				m.Vertices[poly.Vertices[1]].Position,
				m.Vertices[poly.Vertices[2]].Position)
			if data.nrm != nil {
				for _, k := range c {
					poly.CornerNormals = append(poly.CornerNormals, zUp(data.nrm[k]).Normalize())
				}
			}
			for li := range m.UVLayers {
				for _, k := range c {
					uv := data.uv[li][k]
					m.UVLayers[li].UV = append(m.UVLayers[li].UV, mathutil.Vec2{float64(uv[0]), 1 - float64(uv[1])})
				}
			}
			m.Polygons = append(m.Polygons, poly)
		}
	}

	fillNormals(m)
	return m, slots, nil
}

func (l *loader) readPrimitive(p *gltf.Primitive, layers int) (*primitiveData, error) {
	doc := l.doc
	data := &primitiveData{}

	acr, err := l.accessor(p.Attributes[gltf.POSITION])
	if err == nil {
		data.pos, err = modeler.ReadPosition(doc, acr, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "positions")
	}
	if i, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err = l.accessor(i); err == nil {
			data.nrm, err = modeler.ReadNormal(doc, acr, nil)
		}
		if err != nil {
			return nil, errors.Wrap(err, "normals")
		}
	}
	for li := 0; li < layers; li++ {
		var uv [][2]float32
		if acr, err = l.accessor(p.Attributes[fmt.Sprintf("TEXCOORD_%d", li)]); err == nil {
			uv, err = modeler.ReadTextureCoord(doc, acr, nil)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "texture coordinates %d", li)
		}
		data.uv = append(data.uv, uv)
	}
	ji, hasJoints := p.Attributes[gltf.JOINTS_0]
	wi, hasWeights := p.Attributes[gltf.WEIGHTS_0]
	if hasJoints && hasWeights {
		if acr, err = l.accessor(ji); err == nil {
			data.joints, err = modeler.ReadJoints(doc, acr, nil)
		}
		if err != nil {
			return nil, errors.Wrap(err, "joints")
		}
		if acr, err = l.accessor(wi); err == nil {
			data.weights, err = modeler.ReadWeights(doc, acr, nil)
		}
		if err != nil {
			return nil, errors.Wrap(err, "weights")
		}
	}

	if p.Indices != nil {
		if acr, err = l.accessor(*p.Indices); err == nil {
			data.indices, err = modeler.ReadIndices(doc, acr, nil)
		}
		if err != nil {
			return nil, errors.Wrap(err, "indices")
		}
	} else {
		data.indices = make([]uint32, len(data.pos))
		for i := range data.indices {
			data.indices[i] = uint32(i)
		}
	}

	if data.nrm != nil && len(data.nrm) != len(data.pos) ||
		data.joints != nil && (len(data.joints) != len(data.pos) || len(data.weights) != len(data.pos)) {
		return nil, errors.Errorf("attribute counts differ from %d positions", len(data.pos))
	}
	for li, uv := range data.uv {
		if len(uv) != len(data.pos) {
			return nil, errors.Errorf("texture coordinates %d: %d entries for %d positions", li, len(uv), len(data.pos))
		}
	}
	for _, i := range data.indices {
		if int(i) >= len(data.pos) {
			return nil, errors.Errorf("index %d out of range", i)
		}
	}
	return data, nil
}

func (l *loader) accessor(i uint32) (*gltf.Accessor, error) {
	if int(i) >= len(l.doc.Accessors) || l.doc.Accessors[i] == nil {
		return nil, errors.Errorf("accessor %d does not exist", i)
	}
	return l.doc.Accessors[i], nil
}

// groups turns glTF joint weights into vertex group memberships, heaviest
// first. Zero weights are dropped.
func groups(joints [4]uint16, weights [4]float32) []mesh.GroupWeight {
	var out []mesh.GroupWeight
	for k := range joints {
		if weights[k] > 0 {
			out = append(out, mesh.GroupWeight{Group: int(joints[k]), Weight: float64(weights[k])})
		}
	}
	slices.SortStableFunc(out, func(a, b mesh.GroupWeight) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	return out
}

// fillNormals gives every vertex read without a normal the average of its
// face normals.
func fillNormals(m *mesh.Mesh) {
	var sums []mathutil.Vec3
	for i, v := range m.Vertices {
		if v.Normal != (mathutil.Vec3{}) {
			continue
		}
		if sums == nil {
			sums = make([]mathutil.Vec3, len(m.Vertices))
			for _, p := range m.Polygons {
				for _, pv := range p.Vertices {
					sums[pv] = sums[pv].Add(p.Normal)
				}
			}
		}
		m.Vertices[i].Normal = sums[i].Normalize()
	}
}

func (l *loader) jointNames(skin int) []string {
	joints := l.doc.Skins[skin].Joints
	names := make([]string, len(joints))
	for i, j := range joints {
		if int(j) < len(l.doc.Nodes) {
			names[i] = l.nodeName(int(j))
		}
	}
	return names
}

// rig builds the pivot hierarchy of a skin. Joints are ordered parents
// first below the root pivot. The armature sits at the parent of the first
// top level joint.
func (l *loader) rig(skin int, name string) (*skeleton.Hierarchy, *skeleton.Armature) {
	s := l.doc.Skins[skin]
	if s.Name != "" {
		name = s.Name
	}
	h := skeleton.NewHierarchy(name)

	var joints []int
	for _, j := range s.Joints {
		if int(j) < len(l.doc.Nodes) {
			joints = append(joints, int(j))
		}
	}
	isJoint := map[int]bool{}
	for _, j := range joints {
		isJoint[j] = true
	}
	var tops []int
	for _, j := range joints {
		if !isJoint[l.parents[j]] {
			tops = append(tops, j)
		}
	}

	armNode := -1
	armName := "Armature"
	if len(tops) > 0 {
		armNode = l.parents[tops[0]]
	}
	if armNode >= 0 {
		armName = l.nodeName(armNode)
	}
	armMatrix := l.world(armNode)
	armInverse := armMatrix.Inverse()

	pivotOf := map[int]int{}
	var visit func(n, parent int)
	visit = func(n, parent int) {
		if _, done := pivotOf[n]; done {
			return
		}
		local := l.local(n)
		if parent == 0 {
			local = mathutil.Mat4Mul(armInverse, l.world(n))
		}
		rot := mathutil.Mat3ToQuat(local.Rotation())
		pivotOf[n] = len(h.Pivots)
		h.Pivots = append(h.Pivots, skeleton.Pivot{
			Name:        l.nodeName(n),
			Parent:      parent,
			Translation: local.Translation(),
			Rotation:    rot,
			EulerAngles: mathutil.QuatToEuler(rot),
		})
		self := pivotOf[n]
		for _, c := range l.doc.Nodes[n].Children {
			if isJoint[int(c)] {
				visit(int(c), self)
			}
		}
	}
	for _, j := range tops {
		visit(j, 0)
	}
	return h, skeleton.NewArmature(armName, armMatrix, h)
}

func (l *loader) material(gm *gltf.Material, i int) *material.Source {
	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("material%d", i)
	}
	src := material.Default(name, material.TypeVertexMaterial)
	if t, ok := extra[string](gm.Extras, ExtraMaterialType); ok {
		switch t = strings.ToUpper(t); t {
		case material.TypeVertexMaterial, material.TypeShaderMaterial:
			src.Type = t
		default:
			l.rep.Warning("material %s: unknown material type %q", name, t)
		}
	}
	if v, ok := extra[float64](gm.Extras, ExtraShininess); ok {
		src.Shininess = v
	}
	if v, ok := extra[float64](gm.Extras, ExtraTranslucency); ok {
		src.Translucency = v
	}

	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		src.Diffuse = w3d.Vec4{float64(c[0]), float64(c[1]), float64(c[2]), 1}
		src.Opacity = float64(c[3])
		if pbr.BaseColorTexture != nil {
			src.BaseColorTexture = l.image(pbr.BaseColorTexture.Index)
		}
	}
	if nt := gm.NormalTexture; nt != nil && nt.Index != nil {
		src.NormalTexture = l.image(*nt.Index)
		src.BumpScale = float64(nt.ScaleOrDefault())
	}
	e := gm.EmissiveFactor
	src.Emissive = w3d.Vec4{float64(e[0]), float64(e[1]), float64(e[2]), 1}
	src.AlphaTest = gm.AlphaMode == gltf.AlphaMask
	return src
}

// image resolves a texture index to the image it samples. Embedded images
// keep only their name.
func (l *loader) image(tex uint32) *material.Image {
	if int(tex) >= len(l.doc.Textures) || l.doc.Textures[tex].Source == nil {
		return nil
	}
	src := int(*l.doc.Textures[tex].Source)
	if src >= len(l.doc.Images) {
		return nil
	}
	gi := l.doc.Images[src]

	img := &material.Image{Name: gi.Name}
	if gi.URI != "" && !strings.HasPrefix(gi.URI, "data:") {
		uri, err := url.PathUnescape(gi.URI)
		if err != nil {
			uri = gi.URI
		}
		img.Path = filepath.Join(l.dir, filepath.FromSlash(uri))
		if img.Name == "" {
			img.Name = strings.TrimSuffix(filepath.Base(uri), filepath.Ext(uri))
		}
	}
	if img.Name == "" {
		img.Name = fmt.Sprintf("image%d", src)
	}
	return img
}

// extra reads a typed value from a glTF extras object.
func extra[T any](extras any, key string) (T, bool) {
	var zero T
	m, ok := extras.(map[string]any)
	if !ok {
		return zero, false
	}
	v, ok := m[key].(T)
	return v, ok
}
