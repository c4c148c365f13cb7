package raster

import (
	"image"
	"math"
)

// frame is a square color target with a depth buffer. Larger depth values
// are nearer the camera.
type frame struct {
	img   *image.NRGBA
	depth []float64
}

func newFrame(size int) *frame {
	depth := make([]float64, size*size)
	for i := range depth {
		depth[i] = math.Inf(-1)
	}
	return &frame{img: image.NewNRGBA(image.Rect(0, 0, size, size)), depth: depth}
}

func (f *frame) size() int { return f.img.Rect.Dx() }
