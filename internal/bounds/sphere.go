// Package bounds fits bounding volumes around point sets.
package bounds

import (
	"math"

	"w3d-exporter/internal/mathutil"
)

// Sphere returns a sphere enclosing every point of pts.
//
// The fit is the two-pass approximation: the diameter is seeded by the pair
// (x, y) where x is farthest from pts[0] and y is farthest from x, then a
// single sweep grows the sphere toward each outlier by half of its excess.
// Every growth step yields a sphere containing the previous one, so one
// sweep leaves no point outside. pts must not be empty.
func Sphere(pts []mathutil.Vec3) (center mathutil.Vec3, radius float64) {
	x := farthest(pts[0], pts)
	y := farthest(x, pts)

	half := x.Sub(y).Scale(0.5)
	center = y.Add(half)
	radius = half.Len()

	for _, p := range pts {
		d := p.Dist(center)
		if d <= radius {
			continue
		}
		delta := (d - radius) / 2
		radius += delta
		center = center.Add(p.Sub(center).Normalize().Scale(delta))
	}
	return center, radius
}

// farthest returns the point of pts with the greatest distance to from.
// Ties keep the earliest point; pts[0] wins when every distance is zero.
func farthest(from mathutil.Vec3, pts []mathutil.Vec3) mathutil.Vec3 {
	result := pts[0]
	dist := 0.0
	for _, p := range pts {
		if d := p.Dist(from); d > dist {
			dist = d
			result = p
		}
	}
	return result
}

// Box returns the axis-aligned bounds of pts. An empty slice yields an
// inverted (+Inf, -Inf) box.
func Box(pts []mathutil.Vec3) (min, max mathutil.Vec3) {
	min = mathutil.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mathutil.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range pts {
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}
