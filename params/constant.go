package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrMalformedConstant = errors.New("malformed constant")

// FormatConstant encodes c as "x +yi" when y > 0 and "x yi" otherwise, the
// sign of a negative y being part of the number.
func FormatConstant(c mgl32.Vec2) string {
	x := strconv.FormatFloat(float64(c[0]), 'g', -1, 32)
	y := strconv.FormatFloat(float64(c[1]), 'g', -1, 32)
	if c[1] > 0 {
		return x + " +" + y + "i"
	}
	return x + " " + y + "i"
}

// ParseConstant reverses FormatConstant.
func ParseConstant(s string) (mgl32.Vec2, error) {
	parts := strings.Split(s, " ")
	if len(parts) != 2 || !strings.HasSuffix(parts[1], "i") {
		return mgl32.Vec2{}, fmt.Errorf("%w: %q", ErrMalformedConstant, s)
	}

	re := parts[0]
	im := strings.TrimSuffix(parts[1], "i")
	if strings.HasPrefix(im, "+") {
		im = im[1:]
		if strings.HasPrefix(im, "+") || strings.HasPrefix(im, "-") {
			return mgl32.Vec2{}, fmt.Errorf("%w: %q", ErrMalformedConstant, s)
		}
	}

	x, err := strconv.ParseFloat(re, 32)
	if err != nil {
		return mgl32.Vec2{}, fmt.Errorf("%w: real part: %w", ErrMalformedConstant, err)
	}
	y, err := strconv.ParseFloat(im, 32)
	if err != nil {
		return mgl32.Vec2{}, fmt.Errorf("%w: imaginary part: %w", ErrMalformedConstant, err)
	}

	c := mgl32.Vec2{float32(x), float32(y)}
	if !finite(c) {
		return mgl32.Vec2{}, fmt.Errorf("%w: %q is not finite", ErrMalformedConstant, s)
	}
	return c, nil
}
