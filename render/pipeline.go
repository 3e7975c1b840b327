// Package render owns the GPU side of the engine: program setup, uniform
// upload and render-on-demand frame submission.
package render

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/mapping"
	"github.com/stewi1014/juliawall/params"
	"github.com/stewi1014/juliawall/programs"
)

var (
	ErrNotReady  = errors.New("render: surface not ready")
	ErrDestroyed = errors.New("render: pipeline destroyed")
)

// CycleStep is added to each escape colour channel per frame while colour
// cycling is on. Channels are not wrapped; the shader takes their sine.
const CycleStep float32 = 0.005

type State int32

const (
	Uninitialized State = iota
	SurfaceReady
	Rendering
	Paused
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case SurfaceReady:
		return "surface ready"
	case Rendering:
		return "rendering"
	case Paused:
		return "paused"
	case Destroyed:
		return "destroyed"
	}
	return "unknown"
}

// Device is the graphics context. Its methods are only called from the
// render thread, which must have the context current.
type Device interface {
	Init() error
	LoadProgram(program programs.Program) error
	Viewport(width, height int)
	Upload(uniforms programs.Uniforms)
	Clear()
	DrawQuad()
	Release()
}

// Surface is the host's drawing surface.
type Surface interface {
	// RequestRender asks the host to call DrawFrame on the render thread.
	// It may be called from any goroutine.
	RequestRender()
}

type matrices struct {
	width, height int
	zoom          float32
	transform     mgl32.Mat4
	zoomed        mgl32.Mat4
	valid         bool
}

// Pipeline is the single authority over GPU state. SurfaceCreated,
// SurfaceChanged, DrawFrame and Destroy belong to the render thread;
// RequestRedraw, Pause and Resume may be called from anywhere.
type Pipeline struct {
	dev     Device
	program programs.Program
	store   *params.Store
	surface Surface

	state   atomic.Int32
	pending atomic.Bool
	// hidden survives context loss so a recreated surface stays paused.
	hidden atomic.Bool
	width   atomic.Int32
	height  atomic.Int32

	matrices matrices
	frames   uint64
}

func New(dev Device, program programs.Program, store *params.Store, surface Surface) *Pipeline {
	return &Pipeline{
		dev:     dev,
		program: program,
		store:   store,
		surface: surface,
	}
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	from := State(p.state.Swap(int32(s)))
	if from != s {
		logging.Logger().Info("render state", "from", from, "to", s)
	}
}

// Size returns the last reported surface size.
func (p *Pipeline) Size() (width, height int) {
	return int(p.width.Load()), int(p.height.Load())
}

// SurfaceCreated builds GPU state for a new graphics context. It is called
// again whenever the host loses and recreates its context. A program that
// fails to compile or link leaves the pipeline unable to render.
func (p *Pipeline) SurfaceCreated() error {
	if p.State() == Destroyed {
		return ErrDestroyed
	}

	if err := p.dev.Init(); err != nil {
		p.setState(Uninitialized)
		return fmt.Errorf("init graphics device: %w", err)
	}

	if err := p.dev.LoadProgram(p.program); err != nil {
		p.setState(Uninitialized)
		return fmt.Errorf("load %v program: %w", p.program.Name, err)
	}

	// A frame queued against the old context is never drawn.
	p.pending.Store(false)
	p.matrices.valid = false
	if p.hidden.Load() {
		p.setState(Paused)
	} else {
		p.setState(SurfaceReady)
	}
	return nil
}

// SurfaceLost releases GPU objects while the host has no graphics context.
// Parameters are kept and SurfaceCreated may follow.
func (p *Pipeline) SurfaceLost() {
	switch p.State() {
	case Uninitialized, Destroyed:
		return
	}
	p.setState(Uninitialized)
	p.pending.Store(false)
	p.dev.Release()
}

func (p *Pipeline) SurfaceChanged(width, height int) {
	switch p.State() {
	case Uninitialized, Destroyed:
		return
	}

	p.width.Store(int32(width))
	p.height.Store(int32(height))
	p.dev.Viewport(width, height)
	p.matrices.valid = false

	if p.State() == SurfaceReady {
		p.setState(Rendering)
	}
	p.RequestRedraw()
}

// DrawFrame renders one frame from a single parameter snapshot.
func (p *Pipeline) DrawFrame() error {
	// Requests from here on need another frame.
	p.pending.Store(false)

	switch p.State() {
	case Uninitialized, SurfaceReady:
		return ErrNotReady
	case Destroyed:
		return ErrDestroyed
	case Paused:
		return nil
	}

	snapshot := p.store.Snapshot()
	if snapshot.ColourCycle {
		snapshot = p.store.Update(func(pr *params.Parameters) {
			if pr.ColourCycle {
				pr.BaseColour = cycle(pr.BaseColour)
			}
		})
	}

	p.dev.Upload(p.uniforms(snapshot))
	p.dev.Clear()
	p.dev.DrawQuad()

	p.frames++
	logging.Logger().Debug("frame", "n", p.frames)
	return nil
}

func cycle(c mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{c[0] + CycleStep, c[1] + CycleStep, c[2] + CycleStep, c[3]}
}

// uniforms derives the uniforms for a snapshot, reusing the matrices while
// the surface size and zoom are unchanged.
func (p *Pipeline) uniforms(snapshot params.Parameters) programs.Uniforms {
	width, height := p.Size()
	m := &p.matrices
	if !m.valid || m.width != width || m.height != height || m.zoom != snapshot.Zoom {
		*m = matrices{
			width:     width,
			height:    height,
			zoom:      snapshot.Zoom,
			transform: mapping.Orientation(width, height),
			zoomed:    mapping.Zoom(width, height, snapshot.Zoom),
			valid:     true,
		}
	}
	return uniformsWith(snapshot, m.transform, m.zoomed)
}

// UniformsFor derives the uniforms drawing snapshot on a width*height surface.
func UniformsFor(snapshot params.Parameters, width, height int) programs.Uniforms {
	return uniformsWith(
		snapshot,
		mapping.Orientation(width, height),
		mapping.Zoom(width, height, snapshot.Zoom),
	)
}

func uniformsWith(snapshot params.Parameters, transform, zoom mgl32.Mat4) programs.Uniforms {
	var logColouring int32
	if snapshot.LogColouring {
		logColouring = 1
	}

	return programs.Uniforms{
		Transform:     transform,
		Zoom:          zoom,
		Constant:      snapshot.Constant,
		BaseColour:    snapshot.BaseColour,
		BoundedColour: snapshot.BoundedColour,
		LogColouring:  logColouring,
		Iterations:    snapshot.Iterations,
	}
}

// RequestRedraw asks the host for a frame. Requests made while one is
// already outstanding are merged into it, and requests made while the
// pipeline is not rendering are dropped.
func (p *Pipeline) RequestRedraw() {
	if p.State() != Rendering {
		return
	}
	if p.pending.CompareAndSwap(false, true) {
		p.surface.RequestRender()
	}
}

// Pause stops redraw requests. GPU resources are kept.
func (p *Pipeline) Pause() {
	if p.State() == Destroyed {
		return
	}
	p.hidden.Store(true)
	switch p.State() {
	case SurfaceReady, Rendering:
		p.setState(Paused)
		p.pending.Store(false)
	}
}

func (p *Pipeline) Resume() {
	if p.State() == Destroyed {
		return
	}
	p.hidden.Store(false)
	if p.State() != Paused {
		return
	}
	if width, height := p.Size(); width > 0 && height > 0 {
		p.setState(Rendering)
	} else {
		p.setState(SurfaceReady)
	}
	p.pending.Store(false)
	p.RequestRedraw()
}

// Destroy releases GPU resources. The pipeline cannot be used afterwards.
func (p *Pipeline) Destroy() {
	if State(p.state.Swap(int32(Destroyed))) == Destroyed {
		return
	}
	p.dev.Release()
	logging.Logger().Info("render state", "to", Destroyed)
}
