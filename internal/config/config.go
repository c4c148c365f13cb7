package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"w3d-exporter/internal/aabbtree"
	"w3d-exporter/internal/w3d"
)

// Config holds all configurable paths and export settings.
type Config struct {
	// Paths
	InputDir    string   `json:"input_dir" toml:"input_dir"`
	OutputDir   string   `json:"output_dir" toml:"output_dir"`
	TextureDirs []string `json:"texture_dirs" toml:"texture_dirs"`

	// Export settings
	ContainerName        string `json:"container_name" toml:"container_name"`
	Format               string `json:"format" toml:"format"`
	ForceVertexMaterials bool   `json:"force_vertex_materials" toml:"force_vertex_materials"`
	AABBSource           string `json:"aabb_source" toml:"aabb_source"`

	// Preview settings
	Preview     bool `json:"preview" toml:"preview"`
	PreviewSize int  `json:"preview_size" toml:"preview_size"`
	Supersample int  `json:"supersample" toml:"supersample"`
	TextureSize int  `json:"texture_size" toml:"texture_size"`

	Workers int `json:"workers" toml:"workers"`

	// baseDir anchors relative paths; it is the directory of the loaded file.
	baseDir string
}

// Load reads a JSON or TOML config file, chosen by extension.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.baseDir = filepath.Dir(path)
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir             string
	OutputDir            string
	TextureDir           string
	Format               string
	AABBSource           string
	ForceVertexMaterials bool
	Preview              bool
	Workers              int
}

// Resolve applies flags and fills empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.TextureDir != "" {
		c.TextureDirs = append([]string{flags.TextureDir}, c.TextureDirs...)
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.AABBSource != "" {
		c.AABBSource = flags.AABBSource
	}
	c.ForceVertexMaterials = c.ForceVertexMaterials || flags.ForceVertexMaterials
	c.Preview = c.Preview || flags.Preview
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	// Resolve relative paths against the config file
	c.InputDir = c.abs(c.InputDir)
	c.OutputDir = c.abs(c.OutputDir)
	for i, d := range c.TextureDirs {
		c.TextureDirs[i] = c.abs(d)
	}

	if c.OutputDir == "" && c.InputDir != "" {
		c.OutputDir = filepath.Join(c.InputDir, "w3d")
	}
	if len(c.TextureDirs) == 0 && c.InputDir != "" {
		c.TextureDirs = []string{c.InputDir}
	}

	if c.PreviewSize <= 0 {
		c.PreviewSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.TextureSize <= 0 {
		c.TextureSize = 512
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c *Config) abs(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// Options parses the format and AABB tree source names.
func (c *Config) Options() (w3d.Format, aabbtree.Source, error) {
	format, err := w3d.ParseFormat(c.Format)
	if err != nil {
		return "", "", fmt.Errorf("config: %w", err)
	}
	src, err := aabbtree.ParseSource(c.AABBSource)
	if err != nil {
		return "", "", fmt.Errorf("config: %w", err)
	}
	return format, src, nil
}

// Validate reports the first setting an export cannot run with.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("config: no input directory")
	}
	if info, err := os.Stat(c.InputDir); err != nil {
		return fmt.Errorf("config: input %s: %w", c.InputDir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("config: input %s is not a directory", c.InputDir)
	}
	_, _, err := c.Options()
	return err
}
