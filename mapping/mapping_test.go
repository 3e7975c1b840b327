package mapping

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func TestOrientation(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		x, y float32
	}{
		{"portrait", 1080, 1920, 1920.0 / 1080.0, 1},
		{"landscape", 1920, 1080, 1, 1920.0 / 1080.0},
		{"square", 500, 500, 1, 1},
		{"empty", 0, 100, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Orientation(tt.w, tt.h)
			if !mgl32.FloatEqualThreshold(m.At(0, 0), tt.x, eps) || !mgl32.FloatEqualThreshold(m.At(1, 1), tt.y, eps) {
				t.Errorf("Orientation(%d, %d) diag = (%v, %v), want (%v, %v)", tt.w, tt.h, m.At(0, 0), m.At(1, 1), tt.x, tt.y)
			}
			if m.At(2, 2) != 1 || m.At(3, 3) != 1 {
				t.Errorf("Orientation(%d, %d) altered z/w: %v", tt.w, tt.h, m)
			}
		})
	}
}

func TestZoomComposesOrientation(t *testing.T) {
	for _, z := range []float32{0.3, 1, 1.04, 2.5} {
		o := Orientation(1080, 1920)
		m := Zoom(1080, 1920, z)
		if !mgl32.FloatEqualThreshold(m.At(0, 0), o.At(0, 0)*z, eps) || !mgl32.FloatEqualThreshold(m.At(1, 1), o.At(1, 1)*z, eps) {
			t.Errorf("Zoom(z=%v) = %v, want orientation scaled by z", z, m)
		}
		if got := ZoomOf(o, m); !mgl32.FloatEqualThreshold(got, z, eps) {
			t.Errorf("ZoomOf = %v, want %v", got, z)
		}
	}
}

func TestPointerCenterIsOrigin(t *testing.T) {
	sizes := [][2]int{{1080, 1920}, {1920, 1080}, {640, 640}, {3, 7}}
	for _, s := range sizes {
		for _, z := range []float32{0.3, 1, 2.5} {
			pos, ok := Pointer(float32(s[0])/2, float32(s[1])/2, s[0], s[1], z)
			if !ok {
				t.Fatalf("Pointer on %v returned !ok", s)
			}
			if !mgl32.FloatEqualThreshold(pos.X(), 0, eps) || !mgl32.FloatEqualThreshold(pos.Y(), 0, eps) {
				t.Errorf("center of %v at zoom %v = %v, want origin", s, z, pos)
			}
		}
	}
}

func TestPointerCorners(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		z      float32
		px, py float32
		want   mgl32.Vec2
	}{
		{"portrait top left", 1080, 1920, 1, 0, 0, mgl32.Vec2{-1080.0 / 1920.0, 1}},
		{"portrait bottom right zoomed", 1080, 1920, 2, 1080, 1920, mgl32.Vec2{2 * 1080.0 / 1920.0, -2}},
		{"landscape top right", 1920, 1080, 1, 1920, 0, mgl32.Vec2{1, 1080.0 / 1920.0}},
		{"landscape bottom left zoomed", 1920, 1080, 0.5, 0, 1080, mgl32.Vec2{-0.5, -0.5 * 1080.0 / 1920.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Pointer(tt.px, tt.py, tt.w, tt.h, tt.z)
			if !ok {
				t.Fatal("Pointer returned !ok")
			}
			if !got.ApproxEqualThreshold(tt.want, eps) {
				t.Errorf("Pointer = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPointerTapMatchesQuad(t *testing.T) {
	// The screen edge maps to the quad vertex that the orientation matrix
	// pushes onto clip space x = 1; its fractal position is vert * z.
	w, h, z := 1080, 1920, float32(1.5)
	edge, _ := Pointer(float32(w), float32(h)/2, w, h, z)

	o := Orientation(w, h)
	vert := 1 / o.At(0, 0)
	if !mgl32.FloatEqualThreshold(edge.X(), vert*z, eps) {
		t.Errorf("edge maps to %v, quad shows %v there", edge.X(), vert*z)
	}
}

func TestPointerEmptySurface(t *testing.T) {
	for _, s := range [][2]int{{0, 0}, {0, 100}, {100, 0}} {
		if _, ok := Pointer(1, 1, s[0], s[1], 1); ok {
			t.Errorf("Pointer on %v surface returned ok", s)
		}
	}
}
