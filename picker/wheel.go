// Package picker implements the hue/saturation wheel and value slider used to
// choose fractal colours, and rasters them with gg.
package picker

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/stewi1014/juliawall/colour"
)

// MarkerRadius is the radius of the ring drawn at the selected point.
const MarkerRadius = 6

// Wheel maps positions in a width*height area to hue and saturation. Hue is
// the angle from the positive x axis plus 180 degrees, saturation the distance
// from the centre over the radius.
type Wheel struct {
	width, height int
	hue, sat      float64

	// OnChange is called after Touch or SetHueSat changes the selection.
	OnChange func(hue, sat float64)
}

func NewWheel(width, height int) *Wheel {
	return &Wheel{width: width, height: height}
}

// Resize changes the drawable area. The selection is kept.
func (w *Wheel) Resize(width, height int) {
	w.width, w.height = width, height
}

func (w *Wheel) centre() (x, y float64) {
	return float64(w.width) / 2, float64(w.height) / 2
}

// Radius leaves room for the marker ring at the edge.
func (w *Wheel) Radius() float64 {
	r := float64(min(w.width, w.height))/2 - MarkerRadius
	return max(r, 0)
}

// At returns the hue and saturation under (x, y). Points beyond the radius
// are clamped to the edge.
func (w *Wheel) At(x, y float64) (hue, sat float64) {
	cx, cy := w.centre()
	dx, dy := x-cx, y-cy

	hue = colour.WrapHue(math.Atan2(dy, dx)*180/math.Pi + 180)

	r := w.Radius()
	if r == 0 {
		return hue, 0
	}
	return hue, colour.Clamp01(math.Hypot(dx, dy) / r)
}

// Touch selects the colour under (x, y).
func (w *Wheel) Touch(x, y float64) {
	w.set(w.At(x, y))
}

func (w *Wheel) HueSat() (hue, sat float64) {
	return w.hue, w.sat
}

func (w *Wheel) SetHueSat(hue, sat float64) {
	w.set(colour.WrapHue(hue), colour.Clamp01(sat))
}

func (w *Wheel) set(hue, sat float64) {
	if hue == w.hue && sat == w.sat {
		return
	}
	w.hue, w.sat = hue, sat
	if w.OnChange != nil {
		w.OnChange(hue, sat)
	}
}

// Marker returns the position of the current selection.
func (w *Wheel) Marker() (x, y float64) {
	cx, cy := w.centre()
	a := (w.hue - 180) * math.Pi / 180
	d := w.sat * w.Radius()
	return cx + d*math.Cos(a), cy + d*math.Sin(a)
}

// Draw rasters the wheel at brightness value and rings the selection. dc
// should match the wheel's size.
func (w *Wheel) Draw(dc *gg.Context, value float64) error {
	cx, cy := w.centre()
	r := w.Radius()

	for py := 0; py < dc.Height(); py++ {
		for px := 0; px < dc.Width(); px++ {
			x, y := float64(px)+0.5, float64(py)+0.5
			if math.Hypot(x-cx, y-cy) > r {
				continue
			}
			hue, sat := w.At(x, y)
			dc.SetPixel(px, py, gg.RGB(colour.HSVToRGB(hue, sat, value)))
		}
	}

	mx, my := w.Marker()
	dc.SetLineWidth(2)
	dc.SetRGB(1-value, 1-value, 1-value)
	dc.DrawCircle(mx, my, MarkerRadius)
	return dc.Stroke()
}
