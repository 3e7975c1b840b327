package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stewi1014/juliawall/internal/logging"
	"github.com/stewi1014/juliawall/programs"
)

// quad covers [-1, 1]² with two triangles.
var quad = []float32{
	-1, -1,
	1, -1,
	1, 1,

	-1, -1,
	1, 1,
	-1, 1,
}

// GLDevice draws with OpenGL 4.6 core. The host makes its context current
// before every call.
type GLDevice struct {
	// Debug routes KHR_debug output to the logger.
	Debug bool

	vao          uint32
	vbo          uint32
	program      uint32
	vertexAttrib uint32
	uniforms     programs.Uniforms
	setters      []func()
}

var _ Device = (*GLDevice)(nil)

// ErrShader wraps shader compile and link failures.
var ErrShader = errors.New("render: shader build failed")

var debugSources = map[uint32]string{
	gl.DEBUG_SOURCE_API:             "api",
	gl.DEBUG_SOURCE_APPLICATION:     "application",
	gl.DEBUG_SOURCE_OTHER:           "other",
	gl.DEBUG_SOURCE_SHADER_COMPILER: "shader compiler",
	gl.DEBUG_SOURCE_THIRD_PARTY:     "third party",
	gl.DEBUG_SOURCE_WINDOW_SYSTEM:   "window system",
}

var debugTypes = map[uint32]string{
	gl.DEBUG_TYPE_ERROR:               "error",
	gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR: "deprecated",
	gl.DEBUG_TYPE_MARKER:              "marker",
	gl.DEBUG_TYPE_OTHER:               "other",
	gl.DEBUG_TYPE_PERFORMANCE:         "performance",
	gl.DEBUG_TYPE_POP_GROUP:           "pop group",
	gl.DEBUG_TYPE_PORTABILITY:         "portability",
	gl.DEBUG_TYPE_PUSH_GROUP:          "push group",
	gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:  "undefined behaviour",
}

// debugLevel maps a KHR_debug severity onto a log level. Unknown severities
// are logged as warnings.
func debugLevel(severity uint32) slog.Level {
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		return slog.LevelError
	case gl.DEBUG_SEVERITY_MEDIUM:
		return slog.LevelWarn
	case gl.DEBUG_SEVERITY_LOW:
		return slog.LevelInfo
	case gl.DEBUG_SEVERITY_NOTIFICATION:
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func debugAttrs(source, gltype, id uint32) []slog.Attr {
	src, ok := debugSources[source]
	if !ok {
		src = fmt.Sprintf("0x%x", source)
	}
	typ, ok := debugTypes[gltype]
	if !ok {
		typ = fmt.Sprintf("0x%x", gltype)
	}
	return []slog.Attr{
		slog.String("source", src),
		slog.String("type", typ),
		slog.Uint64("id", uint64(id)),
	}
}

func glDebugMessage(source, gltype, id, severity uint32, _ int32, message string, _ unsafe.Pointer) {
	logging.Logger().LogAttrs(context.Background(), debugLevel(severity), "gl: "+message, debugAttrs(source, gltype, id)...)
}

func (d *GLDevice) Init() error {
	err := gl.Init()
	if err != nil {
		return fmt.Errorf("gl.Init: %w", err)
	}
	logging.Logger().Info("OpenGL initialised", "version", gl.GoStr(gl.GetString(gl.VERSION)))

	if d.Debug {
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.DebugMessageCallback(glDebugMessage, nil)
	}

	// A recreated context has none of the old objects.
	d.vao, d.vbo, d.program = 0, 0, 0

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	return nil
}

func (d *GLDevice) LoadProgram(program programs.Program) error {
	vertexShader, err := compileShader(program.VertexShader+"\x00", gl.VERTEX_SHADER)
	if err != nil {
		return err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(program.FragmentShader+"\x00", gl.FRAGMENT_SHADER)
	if err != nil {
		return err
	}
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.BindFragDataLocation(id, 0, gl.Str("outputColor\x00"))
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var l int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &l)

		log := strings.Repeat("\x00", int(l+1))
		gl.GetProgramInfoLog(id, l, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return fmt.Errorf("%w: link %s: %s", ErrShader, program.Name, strings.TrimRight(log, "\x00"))
	}

	if d.program != 0 {
		gl.DeleteProgram(d.program)
	}
	d.program = id
	gl.UseProgram(d.program)

	setters, err := bindUniforms(&d.uniforms, func(name string) int32 {
		return gl.GetUniformLocation(d.program, gl.Str(name+"\x00"))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", program.Name, err)
	}
	d.setters = setters

	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	d.vertexAttrib = uint32(gl.GetAttribLocation(d.program, gl.Str("vert\x00")))
	gl.EnableVertexAttribArray(d.vertexAttrib)
	gl.VertexAttribPointerWithOffset(d.vertexAttrib, 2, gl.FLOAT, false, 2*4, 0)

	logging.Logger().Info("program loaded", "name", program.Name)
	return nil
}

func (d *GLDevice) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Upload sends uniforms to the loaded program.
func (d *GLDevice) Upload(uniforms programs.Uniforms) {
	gl.UseProgram(d.program)
	d.uniforms = uniforms
	for _, set := range d.setters {
		set()
	}
}

// bindUniforms returns one setter per tagged field of u that the program
// uses. Setters read the field when called, so u must outlive them.
func bindUniforms(u *programs.Uniforms, location func(name string) int32) ([]func(), error) {
	v := reflect.ValueOf(u).Elem()
	var setters []func()
	for i := range v.NumField() {
		name := v.Type().Field(i).Tag.Get("uniform")
		if name == "" {
			continue
		}
		loc := location(name)
		if loc < 0 {
			// Unused uniforms are optimised out by the driver.
			continue
		}
		set, err := uniformSetter(loc, v.Field(i).Addr().Interface())
		if err != nil {
			return nil, fmt.Errorf("uniform %q: %w", name, err)
		}
		setters = append(setters, set)
	}
	return setters, nil
}

func uniformSetter(loc int32, field any) (func(), error) {
	switch p := field.(type) {
	case *mgl32.Vec2:
		return func() { gl.Uniform2fv(loc, 1, &p[0]) }, nil
	case *mgl32.Vec4:
		return func() { gl.Uniform4fv(loc, 1, &p[0]) }, nil
	case *mgl64.Vec2:
		return func() { gl.Uniform2dv(loc, 1, &p[0]) }, nil
	case *mgl32.Mat4:
		return func() { gl.UniformMatrix4fv(loc, 1, false, &p[0]) }, nil
	case *int32:
		return func() { gl.Uniform1i(loc, *p) }, nil
	case *uint32:
		return func() { gl.Uniform1ui(loc, *p) }, nil
	case *float32:
		return func() { gl.Uniform1f(loc, *p) }, nil
	}
	return nil, fmt.Errorf("unsupported type %T", field)
}

func (d *GLDevice) Clear() {
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *GLDevice) DrawQuad() {
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(quad)/2))
}

func (d *GLDevice) Release() {
	d.setters = nil
	if d.program != 0 {
		gl.DeleteProgram(d.program)
		d.program = 0
	}
	if d.vbo != 0 {
		gl.DeleteBuffers(1, &d.vbo)
		d.vbo = 0
	}
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	defer runtime.KeepAlive(source)
	cstring, free := gl.Strs(source)
	defer free()

	shader := gl.CreateShader(shaderType)
	gl.ShaderSource(shader, 1, cstring, nil)
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var l int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &l)

		log := strings.Repeat("\x00", int(l+1))
		gl.GetShaderInfoLog(shader, l, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%w: compile: %s", ErrShader, strings.TrimRight(log, "\x00"))
	}

	return shader, nil
}
