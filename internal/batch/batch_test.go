package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3d-exporter/internal/aabbtree"
	"w3d-exporter/internal/export"
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/texture"
	"w3d-exporter/internal/w3d"
)

// writeQuad saves a textured quad scene as a binary glTF file.
func writeQuad(t *testing.T, path, image string) {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 0, -1}, {0, 0, -1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})

	doc.Images = []*gltf.Image{{URI: image}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	doc.Materials = []*gltf.Material{{
		Name:                 "mat",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorTexture: &gltf.TextureInfo{Index: 0}},
	}}
	doc.Meshes = []*gltf.Mesh{{Name: "quad", Primitives: []*gltf.Primitive{{
		Attributes: gltf.Attribute{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
		Indices:    gltf.Index(idx),
		Material:   gltf.Index(0),
	}}}}
	doc.Nodes = []*gltf.Node{{Name: "QUAD", Mesh: gltf.Index(0)}}
	doc.Scene = gltf.Index(0)
	doc.Scenes = []*gltf.Scene{{Nodes: []uint32{0}}}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, gltf.SaveBinary(doc, path))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFindInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.glb", "a.gltf", "sub/c.GLB", "notes.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	inputs, err := FindInputs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.gltf"),
		filepath.Join(dir, "b.glb"),
		filepath.Join(dir, "sub", "c.GLB"),
	}, inputs)

	_, err = FindInputs(filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "batch: scan")
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeQuad(t, filepath.Join(in, "found.glb"), "textures/wood.tga")
	writeQuad(t, filepath.Join(in, "lost.glb"), "textures/stone.tga")
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.gltf"), []byte("{"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(in, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "textures", "wood.dds"), []byte("DDS "), 0o644))

	idx := texture.BuildIndex(in)
	inputs, err := FindInputs(in)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	results := Run(Config{
		OutputDir:   out,
		Export:      export.Context{FileFormat: w3d.FormatW3D, AABBSource: aabbtree.SourceVertices},
		Textures:    idx,
		TexResolver: texture.NewCache(idx, 64),
		Preview:     true,
		PreviewSize: 32,
		Supersample: 2,
		Workers:     2,
		Logger:      quietLogger(),
	}, inputs)
	require.Len(t, results, 3)

	broken, found, lost := results[0], results[1], results[2]
	assert.False(t, broken.Success)
	assert.Contains(t, broken.Error, "gltfscene: open")

	require.True(t, found.Success, found.Error)
	assert.Equal(t, 1, found.Meshes)
	assert.Equal(t, []string{"wood.tga"}, found.Textures)
	assert.Empty(t, found.MissingTextures)
	assert.FileExists(t, found.Preview)

	require.True(t, lost.Success, lost.Error)
	assert.Equal(t, []string{"stone.tga"}, lost.MissingTextures)

	meshes, err := w3d.ReadFile(found.Output, report.Discard)
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, "QUAD", meshes[0].Name())
	assert.Equal(t, "found", meshes[0].Header.ContainerName)
	assert.Equal(t, uint32(4), meshes[0].Header.VertCount)
	assert.Equal(t, uint32(2), meshes[0].Header.FaceCount)
	assert.NotNil(t, meshes[0].AABBTree)

	manifest := filepath.Join(out, "manifest.json")
	require.NoError(t, WriteManifest(manifest, results))
	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var entries []ManifestEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "found.w3d", entries[0].Output)
	assert.Equal(t, "found.webp", entries[0].Preview)
	assert.Equal(t, []string{"stone.tga"}, entries[1].MissingTextures)
}

func TestWriteManifestEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, WriteManifest(path, []Result{{Error: "x"}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

type closeFailer struct {
	bytes.Buffer
	closed bool
}

func (c *closeFailer) Close() error {
	c.closed = true
	return errors.New("disk full")
}

func TestEncodeWebPCloseError(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	w := &closeFailer{}
	err := encodeWebP(w, "out.webp", img)
	require.ErrorContains(t, err, "batch: close out.webp: disk full")
	assert.True(t, w.closed)
	assert.NotZero(t, w.Len())
}
