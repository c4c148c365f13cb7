package raster

import (
	"math"

	"w3d-exporter/internal/mathutil"
)

// Light is the preview light rig. Directions are in view space and point
// toward the light; the camera looks down -Z.
type Light struct {
	Key, Fill mathutil.Vec3
	Ambient   float64
	KeyGain   float64
	FillGain  float64
	Specular  float64
	Shininess float64
	Exposure  float64

	half mathutil.Vec3
}

// PreviewLight returns a key light from the upper right, a dim fill from
// the lower left and a soft ambient term.
func PreviewLight() Light {
	l := Light{
		Key:       mathutil.Vec3{0.45, 0.65, 0.6}.Normalize(),
		Fill:      mathutil.Vec3{-0.5, -0.3, 0.8}.Normalize(),
		Ambient:   0.6,
		KeyGain:   1.4,
		FillGain:  0.5,
		Specular:  0.35,
		Shininess: 16,
		Exposure:  1.1,
	}
	l.half = l.Key.Add(mathutil.Vec3{0, 0, 1}).Normalize()
	return l
}

// Shade returns the light intensity on a surface with unit normal n. Both
// sides of a surface receive the diffuse terms.
func (l *Light) Shade(n mathutil.Vec3) float64 {
	diffuse := math.Abs(n.Dot(l.Key))*l.KeyGain + math.Abs(n.Dot(l.Fill))*l.FillGain
	spec := 0.0
	if h := math.Abs(n.Dot(l.half)); h > 0 {
		spec = math.Pow(h, l.Shininess) * l.Specular
	}
	return l.Ambient + diffuse + spec
}

// linear maps an sRGB channel value to linear light.
var linear = func() (t [256]float64) {
	for i := range t {
		t[i] = math.Pow(float64(i)/255, 2.2)
	}
	return t
}()

// expose converts a lit linear value to an sRGB channel through the ACES
// filmic curve.
func (l *Light) expose(v float64) uint8 {
	x := v * l.Exposure
	x = x * (2.51*x + 0.03) / (x*(2.43*x+0.59) + 0.14)
	return clamp8(math.Pow(math.Max(x, 0), 1/2.2) * 255)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
