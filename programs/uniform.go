package programs

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stewi1014/juliawall/mapping"
)

// Uniforms is uploaded before every frame. Each field is bound to the GLSL
// uniform named by its tag.
type Uniforms struct {
	Transform     mgl32.Mat4 `uniform:"transform"`
	Zoom          mgl32.Mat4 `uniform:"zoom"`
	Constant      mgl32.Vec2 `uniform:"constant"`
	BaseColour    mgl32.Vec4 `uniform:"basecolour"`
	BoundedColour mgl32.Vec4 `uniform:"boundedcolour"`
	LogColouring  int32      `uniform:"logcolouring"`
	Iterations    uint32     `uniform:"iterations"`
}

// Scale returns the zoom factor folded into the Zoom matrix.
func (u Uniforms) Scale() float32 {
	return mapping.ZoomOf(u.Transform, u.Zoom)
}
