package mathutil

import "math"

// Axes of the right-handed, Z-up W3D frame.
var (
	AxisX = Vec3{1, 0, 0}
	AxisY = Vec3{0, 1, 0}
	AxisZ = Vec3{0, 0, 1}
)

// AxisAngle returns the rotation by angle radians around the unit axis,
// counter-clockwise when looking down the axis toward the origin.
func AxisAngle(axis Vec3, angle float64) Mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	x, y, z := axis[0], axis[1], axis[2]
	return Mat3{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c,
	}
}

// PreviewView turns Z-up geometry into the preview camera frame (Y up,
// looking down -Z): a three-quarter view from the front right, slightly
// above.
var PreviewView = Mat3Mul(
	Mat3Mul(AxisAngle(AxisX, 20*math.Pi/180), AxisAngle(AxisY, -35*math.Pi/180)),
	AxisAngle(AxisX, -math.Pi/2),
)
