package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"w3d-exporter/internal/report"
	"w3d-exporter/internal/w3d"
)

func main() {
	tree := flag.Bool("tree", false, "Print each mesh's AABB tree")
	flag.Parse()

	rep := report.NewLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	status := 0
	for _, arg := range flag.Args() {
		meshes, err := w3d.ReadFile(arg, rep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
			status = 1
			continue
		}
		fmt.Printf("\n=== %s (meshes=%d) ===\n", arg, len(meshes))
		for i, m := range meshes {
			printMesh(i, m)
			if *tree && m.AABBTree != nil {
				printTree(m.AABBTree, 0, 1)
			}
		}
	}
	os.Exit(status)
}

func printMesh(i int, m *w3d.Mesh) {
	h := m.Header
	var flags []string
	if h.Attrs&w3d.GeometryTypeHidden != 0 {
		flags = append(flags, "HIDDEN")
	}
	if h.Attrs&w3d.GeometryTypeSkin != 0 {
		flags = append(flags, "SKIN")
	}
	if m.MultiBoneSkinned {
		flags = append(flags, "MULTIBONE")
	}
	if h.VertChannelFlags&w3d.VertexChannelTangent != 0 {
		flags = append(flags, "TANGENTS")
	}

	fmt.Printf("  Mesh[%d] %s: v=%d t=%d materials=%d passes=%d [%s]\n",
		i, m.Name(), h.VertCount, h.FaceCount, h.MatlCount, len(m.MaterialPasses), strings.Join(flags, " "))
	fmt.Printf("    box min=(%.3f,%.3f,%.3f) max=(%.3f,%.3f,%.3f) sphere=(%.3f,%.3f,%.3f) r=%.3f\n",
		h.Min[0], h.Min[1], h.Min[2], h.Max[0], h.Max[1], h.Max[2],
		h.SphCenter[0], h.SphCenter[1], h.SphCenter[2], h.SphRadius)

	for _, vm := range m.VertMaterials {
		fmt.Printf("    vertex material %q\n", vm.Name)
	}
	for _, tx := range m.Textures {
		fmt.Printf("    texture %s\n", tx.File)
	}
	for _, sm := range m.ShaderMaterials {
		var props []string
		for _, p := range sm.Properties {
			props = append(props, fmt.Sprintf("%s=%v", p.Name, p.Value))
		}
		fmt.Printf("    shader material %s: %s\n", sm.Header.TypeName, strings.Join(props, " "))
	}
	if m.UserText != "" {
		fmt.Printf("    user text %q\n", m.UserText)
	}
}

func printTree(t *w3d.AABBTree, node, depth int) {
	n := t.Nodes[node]
	pad := strings.Repeat("  ", depth+1)
	if n.IsLeaf() {
		begin, count := n.Polys.Begin, n.Polys.Count
		fmt.Printf("%sleaf %d polys=%v\n", pad, node, t.PolyIndices[begin:begin+count])
		return
	}
	fmt.Printf("%snode %d min=(%.2f,%.2f,%.2f) max=(%.2f,%.2f,%.2f)\n",
		pad, node, n.Min[0], n.Min[1], n.Min[2], n.Max[0], n.Max[1], n.Max[2])
	printTree(t, int(n.Children.Front), depth+1)
	printTree(t, int(n.Children.Back), depth+1)
}
