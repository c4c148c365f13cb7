package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestEntry represents one exported file in the output manifest.
// Paths are relative to the manifest.
type ManifestEntry struct {
	Input           string   `json:"input"`
	Output          string   `json:"output"`
	Preview         string   `json:"preview,omitempty"`
	Meshes          int      `json:"meshes"`
	Textures        []string `json:"textures"`
	MissingTextures []string `json:"missing_textures,omitempty"`
}

// WriteManifest writes the successful results to path as JSON.
func WriteManifest(path string, results []Result) error {
	dir := filepath.Dir(path)
	rel := func(p string) string {
		if p == "" {
			return ""
		}
		if r, err := filepath.Rel(dir, p); err == nil {
			return filepath.ToSlash(r)
		}
		return filepath.ToSlash(p)
	}

	entries := []ManifestEntry{}
	for _, r := range results {
		if !r.Success {
			continue
		}
		entries = append(entries, ManifestEntry{
			Input:           rel(r.Input),
			Output:          rel(r.Output),
			Preview:         rel(r.Preview),
			Meshes:          r.Meshes,
			Textures:        r.Textures,
			MissingTextures: r.MissingTextures,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	return nil
}
