package programs

import (
	_ "embed"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/julia.frag
var juliaFragment string

// Julia iterates z -> z² + c with c taken from Uniforms.Constant.
var Julia = Program{
	Name:           "julia",
	VertexShader:   defaultVertexShader,
	FragmentShader: juliaFragment,
	GetPixel:       juliaPixel,
}

func juliaPixel(uniforms Uniforms, pos mgl32.Vec2) mgl32.Vec4 {
	scale := float64(uniforms.Scale())
	z := complex(float64(pos[0])*scale, float64(pos[1])*scale)
	c := complex(float64(uniforms.Constant[0]), float64(uniforms.Constant[1]))

	limit := uniforms.Iterations
	i := uint32(0)
	for ; i < limit; i++ {
		if real(z)*real(z)+imag(z)*imag(z) > 4 {
			break
		}
		z = z*z + c
	}

	if i >= limit {
		b := uniforms.BoundedColour
		return mgl32.Vec4{b[0] * b[3], b[1] * b[3], b[2] * b[3], 1}
	}

	var t float64
	if uniforms.LogColouring != 0 {
		t = math.Log(float64(i)+1) / math.Log(float64(limit)+1)
	} else {
		t = float64(i) / float64(limit)
	}

	base := uniforms.BaseColour
	channel := func(x float32) float32 {
		return float32(math.Abs(math.Sin(float64(x) + t*math.Pi)))
	}
	return mgl32.Vec4{channel(base[0]), channel(base[1]), channel(base[2]), 1}
}
