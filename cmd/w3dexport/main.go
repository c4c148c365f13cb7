package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"w3d-exporter/internal/batch"
	"w3d-exporter/internal/config"
	"w3d-exporter/internal/export"
	"w3d-exporter/internal/texture"
)

func main() {
	configFile := flag.String("config", "", "Path to a .json or .toml config file")
	inputDir := flag.String("input", "", "Directory scanned for .gltf/.glb scenes")
	outputDir := flag.String("output", "", "Output directory (default: <input>/w3d)")
	textureDir := flag.String("textures", "", "Extra texture directory searched first")
	format := flag.String("format", "", "W3D, W3X or W3D_LEGACY (default: W3D)")
	aabb := flag.String("aabb", "", "AABB tree source: vertices, centroids or none")
	forceVM := flag.Bool("force-vertex-materials", false, "Write vertex materials for every material")
	preview := flag.Bool("preview", false, "Render a .webp preview next to every .w3d")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	testN := flag.Int("test", 0, "Export only the first N scenes")
	verbose := flag.Bool("v", false, "Log every exported file")
	quiet := flag.Bool("q", false, "Log warnings and errors only")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	} else if *quiet {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			logger.Error("loading config", "err", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:             *inputDir,
		OutputDir:            *outputDir,
		TextureDir:           *textureDir,
		Format:               *format,
		AABBSource:           *aabb,
		ForceVertexMaterials: *forceVM,
		Preview:              *preview,
		Workers:              *workers,
	})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	fileFormat, aabbSource, _ := cfg.Options()

	inputs, err := batch.FindInputs(cfg.InputDir)
	if err != nil {
		logger.Error("scanning input", "err", err)
		os.Exit(1)
	}
	if *testN > 0 && *testN < len(inputs) {
		inputs = inputs[:*testN]
	}
	if len(inputs) == 0 {
		fmt.Println("No scenes to export.")
		os.Exit(0)
	}

	texIndex := texture.BuildIndex(cfg.TextureDirs...)
	logger.Info("textures indexed", "count", texIndex.Len())
	logger.Info("exporting", "scenes", len(inputs), "workers", cfg.Workers, "format", fileFormat, "output", cfg.OutputDir)

	start := time.Now()
	results := batch.Run(batch.Config{
		OutputDir: cfg.OutputDir,
		Export: export.Context{
			FileFormat:           fileFormat,
			ForceVertexMaterials: cfg.ForceVertexMaterials,
			ContainerName:        cfg.ContainerName,
			AABBSource:           aabbSource,
		},
		Textures:    texIndex,
		TexResolver: texture.NewCache(texIndex, cfg.TextureSize),
		Preview:     cfg.Preview,
		PreviewSize: cfg.PreviewSize,
		Supersample: cfg.Supersample,
		Workers:     cfg.Workers,
		Logger:      logger,
	}, inputs)

	var failed []batch.Result
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	logger.Info("done", "exported", len(results)-len(failed), "total", len(results),
		"elapsed", time.Since(start).Round(100*time.Millisecond))

	for i, r := range failed {
		if i == 20 {
			logger.Error("more failures omitted", "count", len(failed)-i)
			break
		}
		logger.Error("export failed", "file", r.Input, "err", r.Error)
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Warn("manifest write failed", "err", err)
	} else if err := batch.WriteManifest(manifestPath, results); err != nil {
		logger.Warn("manifest write failed", "err", err)
	} else {
		logger.Info("manifest written", "path", manifestPath)
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}
