// Package colour converts user facing colours into shader channel values.
//
// Colours travel through settings as packed 0xAARRGGBB integers. The escape
// colour is uploaded as asin of each channel, the bounded colour as plain
// [0, 1] channels. Out of range input is clamped, never rejected.
package colour

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// EscapeLimit bounds every channel of a remapped escape colour.
const EscapeLimit = math.Pi / 2

func clamp(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x):
		return lo
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}

// Clamp01 clamps x into [0, 1]. NaN becomes 0.
func Clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

// Unpack splits a packed ARGB integer into RGBA channels in [0, 1].
func Unpack(argb uint32) mgl32.Vec4 {
	return mgl32.Vec4{
		float32((argb>>16)&0xff) / 255,
		float32((argb>>8)&0xff) / 255,
		float32(argb&0xff) / 255,
		float32((argb>>24)&0xff) / 255,
	}
}

// Pack is the inverse of Unpack, clamping each channel.
func Pack(c mgl32.Vec4) uint32 {
	b := func(x float32) uint32 {
		return uint32(math.Round(Clamp01(float64(x)) * 255))
	}
	return b(c[3])<<24 | b(c[0])<<16 | b(c[1])<<8 | b(c[2])
}

// Remap applies asin to one [0, 1] channel.
func Remap(c float64) float32 {
	return float32(math.Asin(Clamp01(c)))
}

// Escape converts a packed colour into the asin remapped escape colour.
func Escape(argb uint32) mgl32.Vec4 {
	c := Unpack(argb)
	return mgl32.Vec4{
		Remap(float64(c[0])),
		Remap(float64(c[1])),
		Remap(float64(c[2])),
		Remap(float64(c[3])),
	}
}

// ClampEscape forces every channel of an escape colour into [-π/2, π/2].
func ClampEscape(c mgl32.Vec4) mgl32.Vec4 {
	for i := range c {
		c[i] = float32(clamp(float64(c[i]), -EscapeLimit, EscapeLimit))
	}
	return c
}

// Bounded converts a packed colour into the bounded colour. The packed alpha
// byte is ignored in favour of alphaPercent, clamped to [0, 100].
func Bounded(argb uint32, alphaPercent int) mgl32.Vec4 {
	c := Unpack(argb)
	c[3] = float32(clamp(float64(alphaPercent), 0, 100) / 100)
	return c
}

// BoundedChannels builds a bounded colour from 0-255 channel integers and an
// alpha percentage.
func BoundedChannels(r, g, b, alphaPercent int) mgl32.Vec4 {
	ch := func(x int) float32 {
		return float32(clamp(float64(x), 0, 255) / 255)
	}
	return mgl32.Vec4{ch(r), ch(g), ch(b), float32(clamp(float64(alphaPercent), 0, 100) / 100)}
}

// WrapHue maps any angle in degrees into [0, 360).
func WrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// HSVToRGB converts hue in degrees and saturation/value in [0, 1] to RGB.
func HSVToRGB(h, s, v float64) (r, g, b float64) {
	c := colorful.Hsv(WrapHue(h), Clamp01(s), Clamp01(v)).Clamped()
	return c.R, c.G, c.B
}

// RGBToHSV is the inverse of HSVToRGB.
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	h, s, v = colorful.Color{R: Clamp01(r), G: Clamp01(g), B: Clamp01(b)}.Hsv()
	return WrapHue(h), s, v
}

// HSVToARGB converts an HSV colour to a packed ARGB integer.
func HSVToARGB(h, s, v float64, alpha uint8) uint32 {
	r, g, b := HSVToRGB(h, s, v)
	return Pack(mgl32.Vec4{float32(r), float32(g), float32(b), float32(alpha) / 255})
}

// ARGBToHSV converts a packed ARGB integer to HSV, discarding alpha.
func ARGBToHSV(argb uint32) (h, s, v float64) {
	c := Unpack(argb)
	return RGBToHSV(float64(c[0]), float64(c[1]), float64(c[2]))
}
