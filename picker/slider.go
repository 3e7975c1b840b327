package picker

import (
	"github.com/gogpu/gg"
	"github.com/stewi1014/juliawall/colour"
)

// Slider maps vertical position to brightness, 1 at the top and 0 at the
// bottom.
type Slider struct {
	width, height int
	value         float64

	OnChange func(value float64)
}

func NewSlider(width, height int) *Slider {
	return &Slider{width: width, height: height, value: 1}
}

func (s *Slider) Resize(width, height int) {
	s.width, s.height = width, height
}

// At returns the value at vertical position y.
func (s *Slider) At(y float64) float64 {
	if s.height <= 0 {
		return s.value
	}
	return colour.Clamp01(1 - y/float64(s.height))
}

func (s *Slider) Touch(_, y float64) {
	s.set(s.At(y))
}

func (s *Slider) Value() float64 {
	return s.value
}

func (s *Slider) SetValue(v float64) {
	s.set(colour.Clamp01(v))
}

func (s *Slider) set(v float64) {
	if v == s.value {
		return
	}
	s.value = v
	if s.OnChange != nil {
		s.OnChange(v)
	}
}

// Draw rasters a gradient from full brightness to black for hue and sat,
// with a line across the current value.
func (s *Slider) Draw(dc *gg.Context, hue, sat float64) error {
	for py := 0; py < dc.Height(); py++ {
		c := gg.RGB(colour.HSVToRGB(hue, sat, s.At(float64(py)+0.5)))
		for px := 0; px < dc.Width(); px++ {
			dc.SetPixel(px, py, c)
		}
	}

	y := (1 - s.value) * float64(s.height)
	dc.SetLineWidth(2)
	dc.SetRGB(1-s.value, 1-s.value, 1-s.value)
	dc.MoveTo(0, y)
	dc.LineTo(float64(dc.Width()), y)
	return dc.Stroke()
}
