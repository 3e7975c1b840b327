package programs

import (
	"context"
	"image"
	"image/color"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Supersample averages a 3x3 grid of samples around each position. spread is
// the grid spacing in pixels of img.
func Supersample(img Image, spread float32) Image {
	longest := max(img.Bounds().Dx(), img.Bounds().Dy())
	if longest == 0 || spread <= 0 {
		return img
	}
	return &supersampled{
		Image: img,
		step:  2 * spread / float32(longest),
	}
}

type supersampled struct {
	Image
	step float32
}

func (s *supersampled) GetPixel(pos mgl32.Vec2) mgl32.Vec4 {
	var sum mgl32.Vec4
	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			offset := mgl32.Vec2{float32(i) * s.step, float32(j) * s.step}
			sum = sum.Add(s.Image.GetPixel(pos.Add(offset)))
		}
	}
	return sum.Mul(1.0 / 9)
}

// Export rasterises an Image row by row on all CPUs. The longer axis of the
// raster spans [-1, 1] in fractal space with y pointing up, matching the
// screen at zoom 1.
type Export struct {
	img           Image
	width, height int
	rows          atomic.Int64
}

func NewExport(img Image) *Export {
	return &Export{
		img:    img,
		width:  img.Bounds().Dx(),
		height: img.Bounds().Dy(),
	}
}

// Progress reports the fraction of rows rendered. It may be called while
// Render runs.
func (e *Export) Progress() float64 {
	if e.height == 0 {
		return 1
	}
	return float64(e.rows.Load()) / float64(e.height)
}

// samplePos is the fractal position at the centre of pixel (x, y).
func (e *Export) samplePos(x, y int) mgl32.Vec2 {
	half := float32(max(e.width, e.height)) / 2
	return mgl32.Vec2{
		(float32(x) + 0.5 - float32(e.width)/2) / half,
		(float32(e.height)/2 - float32(y) - 0.5) / half,
	}
}

// Render fills a new image, stopping early with ctx's error.
func (e *Export) Render(ctx context.Context) (*image.NRGBA, error) {
	out := image.NewNRGBA(image.Rect(0, 0, e.width, e.height))

	var next atomic.Int64
	var wg sync.WaitGroup
	for range runtime.GOMAXPROCS(0) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				y := int(next.Add(1) - 1)
				if y >= e.height {
					return
				}
				for x := 0; x < e.width; x++ {
					out.SetNRGBA(x, y, toNRGBA(e.img.GetPixel(e.samplePos(x, y))))
				}
				e.rows.Add(1)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toNRGBA(c mgl32.Vec4) color.NRGBA {
	return color.NRGBA{
		R: channel(c[0]),
		G: channel(c[1]),
		B: channel(c[2]),
		A: channel(c[3]),
	}
}

func channel(c float32) uint8 {
	switch {
	case c <= 0:
		return 0
	case c >= 1:
		return 0xff
	}
	return uint8(c * 255)
}
