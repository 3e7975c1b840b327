package picker

import (
	"github.com/stewi1014/juliawall/colour"
	"github.com/stewi1014/juliawall/settings"
)

// Picker composes a Wheel and a Slider into one HSV colour.
type Picker struct {
	Wheel  *Wheel
	Slider *Slider

	// OnChange is called with the opaque colour whenever either part changes.
	OnChange func(argb uint32)
}

func New(wheelSize, sliderWidth int) *Picker {
	p := &Picker{
		Wheel:  NewWheel(wheelSize, wheelSize),
		Slider: NewSlider(sliderWidth, wheelSize),
	}
	p.Wheel.OnChange = func(float64, float64) { p.changed() }
	p.Slider.OnChange = func(float64) { p.changed() }
	return p
}

func (p *Picker) changed() {
	if p.OnChange != nil {
		p.OnChange(p.ARGB(0xff))
	}
}

func (p *Picker) HSV() (h, s, v float64) {
	h, s = p.Wheel.HueSat()
	return h, s, p.Slider.Value()
}

func (p *Picker) ARGB(alpha uint8) uint32 {
	h, s, v := p.HSV()
	return colour.HSVToARGB(h, s, v, alpha)
}

// SetARGB selects argb, ignoring its alpha. Greys keep the current hue.
func (p *Picker) SetARGB(argb uint32) {
	h, s, v := colour.ARGBToHSV(argb)
	if s == 0 {
		h, _ = p.Wheel.HueSat()
	}
	p.Wheel.SetHueSat(h, s)
	p.Slider.SetValue(v)
}

// Confirm persists the opaque colour under key.
func (p *Picker) Confirm(s settings.Setter, key string) error {
	return s.Set(key, int(p.ARGB(0xff)))
}
