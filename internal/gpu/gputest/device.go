// Package gputest provides a recording gpu.Device for tests. It counts every
// call, remembers uploads and uniform writes, and can inject failures.
package gputest

import (
	"errors"
	"strings"

	"Gopher3DCore/internal/gpu"
)

// ErrInjected is returned by uploads when FailUploads is set.
var ErrInjected = errors.New("gputest: injected failure")

// Upload records one buffer data transfer.
type Upload struct {
	Buffer gpu.Buffer
	Target gpu.BufferTarget
	Usage  gpu.Usage
	Len    int
}

// Draw records one draw call.
type Draw struct {
	Program gpu.Program
	Mode    gpu.Primitive
	Count   int
	Target  gpu.RenderTarget
}

type program struct {
	source   string
	uniforms map[string]gpu.Location
	attribs  map[string]gpu.Location
}

// Device is a fake gpu.Device. The zero value is not usable; call New.
type Device struct {
	Caps gpu.Capabilities

	// FailCompile, when set, decides per program whether compilation fails.
	FailCompile func(vertexSrc, fragmentSrc string) bool
	// FailUploads makes every buffer upload return ErrInjected.
	FailUploads bool

	Calls    map[string]int
	Uploads  []Upload
	Draws    []Draw
	Compiles int

	// Uniforms holds the last value written to each location, flattened.
	Uniforms map[gpu.Location][]float32
	// Bound texture per unit.
	Units map[int]gpu.Texture

	Enabled    map[gpu.Capability]bool
	CullMode   gpu.Face
	ClearRGBA  [4]float32
	BoundRT    gpu.RenderTarget
	LiveBuffer map[gpu.Buffer]bool

	next     uint32
	nextLoc  gpu.Location
	current  gpu.Program
	programs map[gpu.Program]*program
	names    map[gpu.Location]string
	bound    map[gpu.BufferTarget]gpu.Buffer
}

// New returns a device with generous desktop-class limits.
func New() *Device {
	return &Device{
		Caps: gpu.Capabilities{
			MaxTextures:             16,
			MaxVertexTextures:       16,
			MaxTextureSize:          8192,
			MaxVertexUniformVectors: 1024,
			SupportsVertexTextures:  true,
			SupportsFloatTextures:   true,
		},
		Calls:      make(map[string]int),
		Uniforms:   make(map[gpu.Location][]float32),
		Units:      make(map[int]gpu.Texture),
		Enabled:    make(map[gpu.Capability]bool),
		LiveBuffer: make(map[gpu.Buffer]bool),
		programs:   make(map[gpu.Program]*program),
		names:      make(map[gpu.Location]string),
		bound:      make(map[gpu.BufferTarget]gpu.Buffer),
	}
}

// TotalCalls returns the number of Device calls made since the last reset,
// excluding Capabilities queries.
func (d *Device) TotalCalls() int {
	n := 0
	for name, c := range d.Calls {
		if name != "Capabilities" {
			n += c
		}
	}
	return n
}

// ResetCounters clears call counts, uploads and draws but keeps GPU objects.
func (d *Device) ResetCounters() {
	d.Calls = make(map[string]int)
	d.Uploads = nil
	d.Draws = nil
	d.Compiles = 0
}

// Uniform returns the last value written to the named uniform of p.
func (d *Device) Uniform(p gpu.Program, name string) ([]float32, bool) {
	prog, ok := d.programs[p]
	if !ok {
		return nil, false
	}
	loc, ok := prog.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := d.Uniforms[loc]
	return v, ok
}

// Programs returns the number of live programs.
func (d *Device) Programs() int { return len(d.programs) }

func (d *Device) hit(name string) { d.Calls[name]++ }

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

func (d *Device) Capabilities() gpu.Capabilities {
	d.hit("Capabilities")
	return d.Caps
}

func (d *Device) CreateBuffer() gpu.Buffer {
	d.hit("CreateBuffer")
	b := gpu.Buffer(d.id())
	d.LiveBuffer[b] = true
	return b
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	d.hit("DeleteBuffer")
	delete(d.LiveBuffer, b)
}

func (d *Device) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	d.hit("BindBuffer")
	d.bound[target] = b
}

func (d *Device) BufferFloat32(target gpu.BufferTarget, data []float32, usage gpu.Usage) error {
	d.hit("BufferFloat32")
	if d.FailUploads {
		return ErrInjected
	}
	d.Uploads = append(d.Uploads, Upload{Buffer: d.bound[target], Target: target, Usage: usage, Len: len(data)})
	return nil
}

func (d *Device) BufferUint16(target gpu.BufferTarget, data []uint16, usage gpu.Usage) error {
	d.hit("BufferUint16")
	if d.FailUploads {
		return ErrInjected
	}
	d.Uploads = append(d.Uploads, Upload{Buffer: d.bound[target], Target: target, Usage: usage, Len: len(data)})
	return nil
}

func (d *Device) CompileProgram(vertexSrc, fragmentSrc string) (gpu.Program, gpu.CompileResult) {
	d.hit("CompileProgram")
	d.Compiles++
	p := gpu.Program(d.id())
	d.programs[p] = &program{
		source:   vertexSrc + "\n" + fragmentSrc,
		uniforms: make(map[string]gpu.Location),
		attribs:  make(map[string]gpu.Location),
	}
	if d.FailCompile != nil && d.FailCompile(vertexSrc, fragmentSrc) {
		return p, gpu.CompileResult{FragmentLog: "ERROR: 0:1: injected failure", LinkLog: "link failed"}
	}
	return p, gpu.CompileResult{OK: true}
}

func (d *Device) DeleteProgram(p gpu.Program) {
	d.hit("DeleteProgram")
	delete(d.programs, p)
}

func (d *Device) UseProgram(p gpu.Program) {
	d.hit("UseProgram")
	d.current = p
}

// UniformLocation reports a slot for every identifier that appears in the
// program source, mimicking a driver that drops unused uniforms.
func (d *Device) UniformLocation(p gpu.Program, name string) gpu.Location {
	d.hit("UniformLocation")
	return d.locate(p, name, false)
}

func (d *Device) AttribLocation(p gpu.Program, name string) gpu.Location {
	d.hit("AttribLocation")
	return d.locate(p, name, true)
}

func (d *Device) locate(p gpu.Program, name string, attrib bool) gpu.Location {
	prog, ok := d.programs[p]
	if !ok || !strings.Contains(prog.source, name) {
		return gpu.NoLocation
	}
	table := prog.uniforms
	if attrib {
		table = prog.attribs
	}
	if loc, ok := table[name]; ok {
		return loc
	}
	loc := d.nextLoc
	d.nextLoc++
	table[name] = loc
	d.names[loc] = name
	return loc
}

func (d *Device) set(name string, l gpu.Location, v ...float32) {
	d.hit(name)
	if !l.Valid() {
		return
	}
	d.Uniforms[l] = append([]float32(nil), v...)
}

func (d *Device) Uniform1i(l gpu.Location, v int32)         { d.set("Uniform1i", l, float32(v)) }
func (d *Device) Uniform1f(l gpu.Location, v float32)       { d.set("Uniform1f", l, v) }
func (d *Device) Uniform2f(l gpu.Location, x, y float32)    { d.set("Uniform2f", l, x, y) }
func (d *Device) Uniform3f(l gpu.Location, x, y, z float32) { d.set("Uniform3f", l, x, y, z) }
func (d *Device) Uniform4f(l gpu.Location, x, y, z, w float32) {
	d.set("Uniform4f", l, x, y, z, w)
}

func (d *Device) Uniform1iv(l gpu.Location, v []int32) {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	d.set("Uniform1iv", l, f...)
}

func (d *Device) Uniform1fv(l gpu.Location, v []float32)       { d.set("Uniform1fv", l, v...) }
func (d *Device) Uniform2fv(l gpu.Location, v []float32)       { d.set("Uniform2fv", l, v...) }
func (d *Device) Uniform3fv(l gpu.Location, v []float32)       { d.set("Uniform3fv", l, v...) }
func (d *Device) Uniform4fv(l gpu.Location, v []float32)       { d.set("Uniform4fv", l, v...) }
func (d *Device) UniformMatrix3fv(l gpu.Location, v []float32) { d.set("UniformMatrix3fv", l, v...) }
func (d *Device) UniformMatrix4fv(l gpu.Location, v []float32) { d.set("UniformMatrix4fv", l, v...) }

func (d *Device) EnableVertexAttrib(gpu.Location)  { d.hit("EnableVertexAttrib") }
func (d *Device) DisableVertexAttrib(gpu.Location) { d.hit("DisableVertexAttrib") }
func (d *Device) VertexAttribPointer(gpu.Location, int, int, int) {
	d.hit("VertexAttribPointer")
}

func (d *Device) CreateTexture() gpu.Texture {
	d.hit("CreateTexture")
	return gpu.Texture(d.id())
}

func (d *Device) TexImage2D(gpu.Texture, gpu.TextureSpec) error {
	d.hit("TexImage2D")
	return nil
}

func (d *Device) DeleteTexture(gpu.Texture) { d.hit("DeleteTexture") }

func (d *Device) BindTexture(unit int, t gpu.Texture) {
	d.hit("BindTexture")
	d.Units[unit] = t
}

func (d *Device) CreateRenderTarget(gpu.RenderTargetSpec) (gpu.RenderTarget, gpu.Texture) {
	d.hit("CreateRenderTarget")
	return gpu.RenderTarget(d.id()), gpu.Texture(d.id())
}

func (d *Device) DeleteRenderTarget(gpu.RenderTarget) { d.hit("DeleteRenderTarget") }

func (d *Device) BindRenderTarget(rt gpu.RenderTarget) {
	d.hit("BindRenderTarget")
	d.BoundRT = rt
}

func (d *Device) Viewport(int, int, int, int) { d.hit("Viewport") }

func (d *Device) ClearColor(r, g, b, a float32) {
	d.hit("ClearColor")
	d.ClearRGBA = [4]float32{r, g, b, a}
}

func (d *Device) Clear(bool, bool, bool) { d.hit("Clear") }

func (d *Device) Enable(c gpu.Capability) {
	d.hit("Enable")
	d.Enabled[c] = true
}

func (d *Device) Disable(c gpu.Capability) {
	d.hit("Disable")
	d.Enabled[c] = false
}

func (d *Device) CullFace(f gpu.Face) {
	d.hit("CullFace")
	d.CullMode = f
}

func (d *Device) FrontFace(gpu.Winding)                      { d.hit("FrontFace") }
func (d *Device) DepthMask(bool)                             { d.hit("DepthMask") }
func (d *Device) BlendEquation(gpu.BlendEquation)            { d.hit("BlendEquation") }
func (d *Device) BlendFunc(gpu.BlendFactor, gpu.BlendFactor) { d.hit("BlendFunc") }
func (d *Device) PolygonOffset(float32, float32)             { d.hit("PolygonOffset") }
func (d *Device) LineWidth(float32)                          { d.hit("LineWidth") }

func (d *Device) DrawElements(mode gpu.Primitive, count, _ int) {
	d.hit("DrawElements")
	d.Draws = append(d.Draws, Draw{Program: d.current, Mode: mode, Count: count, Target: d.BoundRT})
}

func (d *Device) DrawArrays(mode gpu.Primitive, _, count int) {
	d.hit("DrawArrays")
	d.Draws = append(d.Draws, Draw{Program: d.current, Mode: mode, Count: count, Target: d.BoundRT})
}

var _ gpu.Device = (*Device)(nil)
