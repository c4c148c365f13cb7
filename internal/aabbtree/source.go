package aabbtree

import (
	"fmt"
	"strings"

	"w3d-exporter/internal/w3d"
)

// Source selects the points a mesh's tree is built over.
type Source string

const (
	SourceNone      Source = ""
	SourceVertices  Source = "vertices"
	SourceCentroids Source = "centroids"
)

// ParseSource accepts a source name in any case; "none" disables trees.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceVertices, SourceCentroids:
		return src, nil
	case "none":
		return SourceNone, nil
	case "":
		return SourceVertices, nil
	}
	return SourceNone, fmt.Errorf("aabbtree: unknown source %q", s)
}

// ForMesh builds the tree of m over its vertex positions or its triangle
// centroids. It returns nil for SourceNone and for meshes without points.
func ForMesh(m *w3d.Mesh, src Source) *w3d.AABBTree {
	switch src {
	case SourceVertices:
		if len(m.Verts) == 0 {
			return nil
		}
		return Build(m.Verts)
	case SourceCentroids:
		if len(m.Triangles) == 0 {
			return nil
		}
		return Build(Centroids(m.Verts, m.Triangles))
	}
	return nil
}
