// Package mapping converts between surface pixels and fractal space.
//
// The render quad spans [-1, 1] on both axes and is stretched along the
// longer screen axis so the fractal keeps a square aspect ratio. Pointer
// positions are mapped with the same convention, so a tap lands on the
// fractal point drawn under it at any zoom level.
package mapping

import "github.com/go-gl/mathgl/mgl32"

func portrait(w, h int) bool {
	return w < h
}

func scale(w, h int) (x, y float32) {
	if portrait(w, h) {
		return float32(h) / float32(w), 1
	}
	return 1, float32(w) / float32(h)
}

// Orientation returns the aspect correcting scale matrix for a w*h surface.
// A zero-sized surface yields the identity.
func Orientation(w, h int) mgl32.Mat4 {
	if w <= 0 || h <= 0 {
		return mgl32.Ident4()
	}
	x, y := scale(w, h)
	return mgl32.Scale3D(x, y, 1)
}

// Zoom returns the orientation matrix with both axes multiplied by z.
func Zoom(w, h int, z float32) mgl32.Mat4 {
	if w <= 0 || h <= 0 {
		return mgl32.Ident4()
	}
	x, y := scale(w, h)
	return mgl32.Scale3D(x*z, y*z, 1)
}

// Pointer maps the pixel (px, py) on a w*h surface to fractal coordinates at zoom z.
// ok is false if the surface has no area.
func Pointer(px, py float32, w, h int, z float32) (pos mgl32.Vec2, ok bool) {
	if w <= 0 || h <= 0 {
		return mgl32.Vec2{}, false
	}

	fw, fh := float32(w), float32(h)
	x := (2*px/fw - 1) * z
	y := (1 - 2*py/fh) * z
	if portrait(w, h) {
		x *= fw / fh
	} else {
		y *= fh / fw
	}

	return mgl32.Vec2{x, y}, true
}

// ZoomOf recovers z from a transform/zoom matrix pair built by Orientation and Zoom.
func ZoomOf(transform, zoom mgl32.Mat4) float32 {
	if transform[0] == 0 {
		return 1
	}
	return zoom[0] / transform[0]
}
