package picker

import (
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gg"
	"github.com/stewi1014/juliawall/settings"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWheelAt(t *testing.T) {
	w := NewWheel(100, 100)
	if r := w.Radius(); r != 44 {
		t.Fatalf("Radius() = %v, want 44", r)
	}

	tests := []struct {
		name     string
		x, y     float64
		hue, sat float64
	}{
		{"right edge", 94, 50, 180, 1},
		{"left edge", 6, 50, 0, 1},
		{"bottom edge", 50, 94, 270, 1},
		{"top edge", 50, 6, 90, 1},
		{"half way right", 72, 50, 180, 0.5},
		{"outside clamps", 500, 50, 180, 1},
		{"outside diagonal", -1000, -1000, 45, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hue, sat := w.At(tt.x, tt.y)
			if !near(hue, tt.hue) || !near(sat, tt.sat) {
				t.Errorf("At(%v, %v) = %v, %v, want %v, %v", tt.x, tt.y, hue, sat, tt.hue, tt.sat)
			}
		})
	}
}

func TestWheelMarker(t *testing.T) {
	w := NewWheel(120, 80)
	for _, hue := range []float64{0, 45, 90, 180, 271, 359} {
		w.SetHueSat(hue, 0.6)
		x, y := w.Marker()
		gotHue, gotSat := w.At(x, y)
		d := math.Abs(gotHue - hue)
		d = math.Min(d, 360-d)
		if d > 1e-6 || math.Abs(gotSat-0.6) > 1e-6 {
			t.Errorf("At(Marker()) = %v, %v, want %v, 0.6", gotHue, gotSat, hue)
		}
	}
}

func TestWheelOnChange(t *testing.T) {
	w := NewWheel(100, 100)
	var calls int
	w.OnChange = func(float64, float64) { calls++ }

	w.Touch(94, 50)
	w.Touch(94, 50)
	w.SetHueSat(540, 2)

	if calls != 1 {
		t.Errorf("OnChange called %d times, want 1", calls)
	}
	if hue, sat := w.HueSat(); hue != 180 || sat != 1 {
		t.Errorf("HueSat() = %v, %v", hue, sat)
	}
}

func TestSlider(t *testing.T) {
	s := NewSlider(20, 200)
	if s.Value() != 1 {
		t.Fatalf("initial Value() = %v", s.Value())
	}

	tests := []struct {
		y    float64
		want float64
	}{
		{0, 1},
		{200, 0},
		{50, 0.75},
		{-50, 1},
		{300, 0},
	}
	for _, tt := range tests {
		s.Touch(0, tt.y)
		if got := s.Value(); !near(got, tt.want) {
			t.Errorf("Touch(0, %v): Value() = %v, want %v", tt.y, got, tt.want)
		}
	}

	s.SetValue(-1)
	if s.Value() != 0 {
		t.Errorf("SetValue(-1): Value() = %v", s.Value())
	}
}

func TestPickerARGB(t *testing.T) {
	p := New(100, 20)
	var last uint32
	p.OnChange = func(argb uint32) { last = argb }

	p.Wheel.Touch(6, 50)
	if got := p.ARGB(0xff); got != 0xffff0000 {
		t.Errorf("ARGB() = %#08x, want red", got)
	}
	if last != 0xffff0000 {
		t.Errorf("OnChange got %#08x", last)
	}

	p.Slider.Touch(0, 50)
	if got := p.ARGB(0x80); got != 0x80800000 {
		t.Errorf("ARGB(0x80) at half value = %#08x", got)
	}

	p.Slider.Touch(0, 100)
	if got := p.ARGB(0xff); got != 0xff000000 {
		t.Errorf("ARGB() at the bottom of the slider = %#08x, want black", got)
	}

	p.SetARGB(0xff00ff00)
	if h, s, v := p.HSV(); !near(h, 120) || !near(s, 1) || !near(v, 1) {
		t.Errorf("HSV() = %v, %v, %v, want 120, 1, 1", h, s, v)
	}
	if got := p.ARGB(0xff); got != 0xff00ff00 {
		t.Errorf("ARGB() = %#08x, want green", got)
	}

	// Grey keeps the hue.
	p.SetARGB(0xff808080)
	if h, s, _ := p.HSV(); !near(h, 120) || s != 0 {
		t.Errorf("HSV() after grey = %v, %v", h, s)
	}
}

func TestPickerConfirm(t *testing.T) {
	p := New(100, 20)
	p.SetARGB(0xff2060c0)

	s := settings.NewMemory()
	if err := p.Confirm(s, "output_colour"); err != nil {
		t.Fatal(err)
	}
	v, ok := s.Get("output_colour")
	if !ok || v != int(0xff2060c0) {
		t.Errorf("persisted %v, want %d", v, 0xff2060c0)
	}
}

func nrgba(dc *gg.Context, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(dc.Image().At(x, y)).(color.NRGBA)
}

func TestWheelDraw(t *testing.T) {
	w := NewWheel(64, 64)
	dc := gg.NewContext(64, 64)
	defer dc.Close()

	if err := w.Draw(dc, 1); err != nil {
		t.Fatal(err)
	}

	if c := nrgba(dc, 31, 31); c.R < 240 || c.G < 240 || c.B < 240 {
		t.Errorf("centre = %v, want near white", c)
	}
	// Hue 180 lies on the positive x axis.
	if c := nrgba(dc, 57, 32); c.R > 20 || c.G < 230 || c.B < 230 {
		t.Errorf("right edge = %v, want cyan", c)
	}
}

func TestSliderDraw(t *testing.T) {
	s := NewSlider(8, 100)
	s.SetValue(0)
	dc := gg.NewContext(8, 100)
	defer dc.Close()

	if err := s.Draw(dc, 0, 1); err != nil {
		t.Fatal(err)
	}

	if c := nrgba(dc, 4, 0); c.R < 245 || c.G > 10 || c.B > 10 {
		t.Errorf("top = %v, want red", c)
	}
	if c := nrgba(dc, 4, 50); c.R < 120 || c.R > 135 {
		t.Errorf("middle = %v, want half red", c)
	}
}
