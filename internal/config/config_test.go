package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3d-exporter/internal/aabbtree"
	"w3d-exporter/internal/w3d"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "export.toml", `
input_dir = "scenes"
texture_dirs = ["tex", "/abs/tex"]
format = "w3x"
aabb_source = "centroids"
preview = true
supersample = 3
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	cfg.Resolve(Flags{})

	assert.Equal(t, filepath.Join(dir, "scenes"), cfg.InputDir)
	assert.Equal(t, filepath.Join(dir, "scenes", "w3d"), cfg.OutputDir)
	assert.Equal(t, []string{filepath.Join(dir, "tex"), "/abs/tex"}, cfg.TextureDirs)
	assert.True(t, cfg.Preview)
	assert.Equal(t, 3, cfg.Supersample)

	format, src, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, w3d.FormatW3X, format)
	assert.Equal(t, aabbtree.SourceCentroids, src)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	p := write(t, dir, "export.json", `{"input_dir": "/in", "container_name": "LEVEL", "workers": 3}`)
	cfg, err := Load(p)
	require.NoError(t, err)
	cfg.Resolve(Flags{})

	assert.Equal(t, "/in", cfg.InputDir)
	assert.Equal(t, "LEVEL", cfg.ContainerName)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"/in"}, cfg.TextureDirs)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "config: read")

	_, err = Load(write(t, dir, "bad.toml", "input_dir = ["))
	assert.ErrorContains(t, err, "config: parse")
}

func TestResolveDefaultsAndFlags(t *testing.T) {
	cfg := Config{Format: "w3d", TextureDirs: []string{"/shared"}}
	cfg.Resolve(Flags{
		InputDir:             "/in",
		OutputDir:            "/out",
		TextureDir:           "/local",
		Format:               "w3d_legacy",
		ForceVertexMaterials: true,
	})

	assert.Equal(t, "/in", cfg.InputDir)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, []string{"/local", "/shared"}, cfg.TextureDirs)
	assert.Equal(t, "w3d_legacy", cfg.Format)
	assert.True(t, cfg.ForceVertexMaterials)
	assert.False(t, cfg.Preview)
	assert.Equal(t, 256, cfg.PreviewSize)
	assert.Equal(t, 2, cfg.Supersample)
	assert.Equal(t, 512, cfg.TextureSize)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)

	format, src, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, w3d.FormatW3DLegacy, format)
	assert.Equal(t, aabbtree.SourceVertices, src)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := write(t, dir, "scene.gltf", "{}")

	tests := []struct {
		name string
		cfg  Config
		err  string
	}{
		{"ok", Config{InputDir: dir}, ""},
		{"no input", Config{}, "config: no input directory"},
		{"missing input", Config{InputDir: filepath.Join(dir, "nope")}, "config: input"},
		{"input is a file", Config{InputDir: file}, "is not a directory"},
		{"format", Config{InputDir: dir, Format: "fbx"}, `w3d: unknown format "fbx"`},
		{"aabb", Config{InputDir: dir, AABBSource: "faces"}, `aabbtree: unknown source "faces"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.err)
		})
	}
}
