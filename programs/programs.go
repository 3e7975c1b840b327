// Package programs holds the GLSL programs drawn by the render pipeline and
// their CPU equivalents used for image export.
package programs

import (
	_ "embed"
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoCPUImplementation = errors.New("fractal does not have a CPU implementation")

//go:embed default.vert
var defaultVertexShader string

// PixelFunc evaluates the fractal at pos, where the longer image axis spans [-1, 1].
type PixelFunc func(uniforms Uniforms, pos mgl32.Vec2) mgl32.Vec4

type Program struct {
	Name           string
	VertexShader   string
	FragmentShader string
	GetPixel       PixelFunc
}

func (p *Program) GetImage(uniforms Uniforms, width, height int) (Image, error) {
	if p.GetPixel == nil {
		return nil, ErrNoCPUImplementation
	}

	width = width / 2
	height = height / 2

	return &programImage{
		uniforms: uniforms,
		bounds: image.Rect(
			-width,
			-height,
			width,
			height,
		),
		pixelFunc: p.GetPixel,
	}, nil
}

type Image interface {
	GetPixel(mgl32.Vec2) mgl32.Vec4
	Bounds() image.Rectangle
}

type programImage struct {
	uniforms  Uniforms
	bounds    image.Rectangle
	pixelFunc PixelFunc
}

func (i *programImage) GetPixel(pos mgl32.Vec2) mgl32.Vec4 {
	return i.pixelFunc(i.uniforms, pos)
}

func (i *programImage) Bounds() image.Rectangle {
	return i.bounds
}
