// Package batch exports a directory of scenes with a worker pool.
package batch

import (
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/samber/lo"

	"w3d-exporter/internal/export"
	"w3d-exporter/internal/gltfscene"
	"w3d-exporter/internal/postprocess"
	"w3d-exporter/internal/raster"
	"w3d-exporter/internal/report"
	"w3d-exporter/internal/scene"
	"w3d-exporter/internal/texture"
	"w3d-exporter/internal/w3d"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir string
	// Export is copied for every file. An empty ContainerName is replaced
	// by the scene name.
	Export      export.Context
	Textures    *texture.Index
	TexResolver texture.Resolver
	Preview     bool
	PreviewSize int
	Supersample int
	Workers     int
	Logger      *slog.Logger
}

// Result holds the outcome of exporting one scene file.
type Result struct {
	Input           string
	Output          string
	Preview         string
	Meshes          int
	Textures        []string
	MissingTextures []string
	Success         bool
	Error           string
}

// FindInputs lists the .gltf and .glb files below dir in lexical order.
func FindInputs(dir string) ([]string, error) {
	var inputs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gltf", ".glb":
			inputs = append(inputs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	slices.Sort(inputs)
	return inputs, nil
}

// Run processes all inputs using a worker pool. Results keep input order.
func Run(cfg Config, inputs []string) []Result {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	workers := max(cfg.Workers, 1)
	total := len(inputs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					cfg.Logger.Info("progress", "done", p, "total", total, "files_per_sec", fmt.Sprintf("%.1f", rate))
				}
			}
		}
	}()

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processFile(cfg, inputs[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

func processFile(cfg Config, path string) Result {
	res := Result{Input: path}
	log := cfg.Logger.With("file", filepath.Base(path))
	rep := report.NewLogger(log)

	sc, err := gltfscene.Load(path, rep)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	ctx := cfg.Export
	ctx.Reporter = rep
	if ctx.ContainerName == "" {
		ctx.ContainerName = sc.Name
	}
	objects, hierarchy, rig := exportInputs(sc)
	meshes, textures := export.RetrieveMeshes(&ctx, objects, hierarchy, rig)
	if len(meshes) == 0 {
		res.Error = "no meshes to export"
		return res
	}
	res.Meshes = len(meshes)
	res.Textures = textures
	res.MissingTextures = lo.Filter(textures, func(name string, _ int) bool {
		if cfg.Textures == nil {
			return true
		}
		_, ok := cfg.Textures.ResolvePath(name)
		return !ok
	})
	for _, name := range res.MissingTextures {
		rep.Warning("texture %s not found", name)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res.Output = filepath.Join(cfg.OutputDir, stem+".w3d")
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		res.Error = fmt.Sprintf("batch: output dir: %v", err)
		return res
	}
	if err := w3d.WriteFile(res.Output, meshes); err != nil {
		res.Error = err.Error()
		return res
	}

	if cfg.Preview {
		res.Preview = filepath.Join(cfg.OutputDir, stem+".webp")
		if err := writePreview(cfg, res.Preview, meshes); err != nil {
			res.Error = err.Error()
			return res
		}
	}

	log.Debug("exported", "meshes", res.Meshes, "output", res.Output)
	res.Success = true
	return res
}

// exportInputs adapts a scene to the exporter interfaces. Absent rigs stay
// nil interfaces.
func exportInputs(sc *scene.Scene) ([]export.MeshObject, export.Hierarchy, export.Armature) {
	objects := lo.Map(sc.Objects, func(o *scene.Object, _ int) export.MeshObject { return o })
	var (
		hierarchy export.Hierarchy
		rig       export.Armature
	)
	if sc.Hierarchy != nil {
		hierarchy = sc.Hierarchy
	}
	if sc.Armature != nil {
		rig = sc.Armature
	}
	return objects, hierarchy, rig
}

func writePreview(cfg Config, path string, meshes []*w3d.Mesh) error {
	ss := max(cfg.Supersample, 1)
	img := raster.RenderMeshes(meshes, cfg.TexResolver, cfg.PreviewSize, ss)
	if ss > 1 {
		img = postprocess.Downsample(img, ss)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("batch: preview %s: %w", path, err)
	}
	return encodeWebP(f, path, img)
}

// encodeWebP writes img to w and closes it. A failed close means the file
// is incomplete, so its error is returned.
func encodeWebP(w io.WriteCloser, path string, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		w.Close()
		return fmt.Errorf("batch: webp encode %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("batch: close %s: %w", path, err)
	}
	return nil
}
