// Package aabbtree builds the axis aligned bounding box tree of a mesh.
package aabbtree

import (
	"w3d-exporter/internal/bounds"
	"w3d-exporter/internal/mathutil"
	"w3d-exporter/internal/w3d"
)

// MinExtent is the smallest extent along the split axis that is still split.
const MinExtent = 1.0

type axis int

const (
	axisX axis = iota
	axisY
	axisZ
)

// task is one unit of work on the build stack: either partition a subset
// or patch the back child of an interior node once its front subtree is
// complete.
type task struct {
	subset []int
	patch  int
}

// Build partitions points into a tree. Interior nodes are allocated before
// their children, the front (low) subtree directly after its parent and the
// back (high) subtree after the whole front subtree. Leaves reference the
// first occurrence of each point's position in points.
//
// points must not be empty.
func Build(points []mathutil.Vec3) *w3d.AABBTree {
	tree := &w3d.AABBTree{}
	if len(points) == 0 {
		return tree
	}

	first := make(map[mathutil.Vec3]uint32, len(points))
	all := make([]int, len(points))
	for i, p := range points {
		if _, ok := first[p]; !ok {
			first[p] = uint32(i)
		}
		all[i] = i
	}

	stack := []task{{subset: all}}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.subset == nil {
			tree.Nodes[t.patch].Children.Back = uint32(len(tree.Nodes))
			continue
		}

		min, max := subsetBox(points, t.subset)
		low, high := split(points, t.subset, min, max)

		if len(low) > 0 && len(high) > 0 {
			idx := len(tree.Nodes)
			tree.Nodes = append(tree.Nodes, w3d.AABBNode{
				Min:      min,
				Max:      max,
				Children: &w3d.Children{Front: uint32(idx + 1)},
			})
			stack = append(stack, task{subset: high}, task{patch: idx}, task{subset: low})
			continue
		}

		tree.Nodes = append(tree.Nodes, w3d.AABBNode{
			Min:   min,
			Max:   max,
			Polys: &w3d.Polys{Begin: uint32(len(tree.PolyIndices)), Count: uint32(len(t.subset))},
		})
		for _, i := range t.subset {
			tree.PolyIndices = append(tree.PolyIndices, first[points[i]])
		}
	}

	tree.Header.NodeCount = uint32(len(tree.Nodes))
	tree.Header.PolyCount = uint32(len(tree.PolyIndices))
	return tree
}

func subsetBox(points []mathutil.Vec3, subset []int) (min, max mathutil.Vec3) {
	pts := make([]mathutil.Vec3, len(subset))
	for k, i := range subset {
		pts[k] = points[i]
	}
	return bounds.Box(pts)
}

// splitAxis picks the axis of greatest extent. X must strictly beat both
// other extents and Y must strictly beat Z; every other case splits on Z.
func splitAxis(d mathutil.Vec3) axis {
	if d[0] > d[1] {
		if d[0] > d[2] {
			return axisX
		}
		return axisZ
	}
	if d[1] > d[2] {
		return axisY
	}
	return axisZ
}

// split partitions subset at the midpoint of the split axis. An extent
// below MinExtent is not split: X and Y put everything low, Z puts
// everything high.
func split(points []mathutil.Vec3, subset []int, min, max mathutil.Vec3) (low, high []int) {
	d := max.Sub(min)
	a := splitAxis(d)
	if d[a] < MinExtent {
		if a == axisZ {
			return nil, subset
		}
		return subset, nil
	}

	mid := min[a] + d[a]*0.5
	for _, i := range subset {
		if points[i][a] <= mid {
			low = append(low, i)
		} else {
			high = append(high, i)
		}
	}
	return low, high
}

// Centroids returns the centroid of every triangle.
func Centroids(verts []mathutil.Vec3, tris []w3d.Triangle) []mathutil.Vec3 {
	out := make([]mathutil.Vec3, len(tris))
	for i, t := range tris {
		out[i] = verts[t.VertIDs[0]].Add(verts[t.VertIDs[1]]).Add(verts[t.VertIDs[2]]).Scale(1.0 / 3)
	}
	return out
}
