// Package glbackend implements gpu.Device on OpenGL 4.1 core through go-gl.
// A GL context must be current on the calling thread before New is called.
package glbackend

import (
	"fmt"
	"strings"
	"unsafe"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

type target struct {
	fbo   uint32
	depth uint32
	color uint32
}

// Device drives the current OpenGL context.
type Device struct {
	caps    gpu.Capabilities
	vao     uint32
	targets map[gpu.RenderTarget]target
}

// New initializes the GL function pointers and queries limits.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl init: %w", err)
	}
	d := &Device{targets: make(map[gpu.RenderTarget]target)}

	var v int32
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &v)
	d.caps.MaxTextures = int(v)
	gl.GetIntegerv(gl.MAX_VERTEX_TEXTURE_IMAGE_UNITS, &v)
	d.caps.MaxVertexTextures = int(v)
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &v)
	d.caps.MaxTextureSize = int(v)
	gl.GetIntegerv(gl.MAX_VERTEX_UNIFORM_VECTORS, &v)
	d.caps.MaxVertexUniformVectors = int(v)
	d.caps.SupportsVertexTextures = d.caps.MaxVertexTextures > 0
	d.caps.SupportsFloatTextures = true

	// Core profile refuses attribute setup without a bound vertex array.
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	logger.Log.Info("OpenGL device initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("maxTextures", d.caps.MaxTextures),
		zap.Int("maxVertexUniformVectors", d.caps.MaxVertexUniformVectors))
	return d, nil
}

// Close releases the device's own objects.
func (d *Device) Close() {
	for rt := range d.targets {
		d.DeleteRenderTarget(rt)
	}
	gl.DeleteVertexArrays(1, &d.vao)
}

func (d *Device) Capabilities() gpu.Capabilities { return d.caps }

func (d *Device) CreateBuffer() gpu.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return gpu.Buffer(b)
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (d *Device) BindBuffer(t gpu.BufferTarget, b gpu.Buffer) {
	gl.BindBuffer(bufferTarget(t), uint32(b))
}

func (d *Device) BufferFloat32(t gpu.BufferTarget, data []float32, usage gpu.Usage) error {
	if len(data) == 0 {
		gl.BufferData(bufferTarget(t), 0, nil, bufferUsage(usage))
	} else {
		gl.BufferData(bufferTarget(t), len(data)*4, gl.Ptr(data), bufferUsage(usage))
	}
	return checkError("buffer float32")
}

func (d *Device) BufferUint16(t gpu.BufferTarget, data []uint16, usage gpu.Usage) error {
	if len(data) == 0 {
		gl.BufferData(bufferTarget(t), 0, nil, bufferUsage(usage))
	} else {
		gl.BufferData(bufferTarget(t), len(data)*2, gl.Ptr(data), bufferUsage(usage))
	}
	return checkError("buffer uint16")
}

func (d *Device) CompileProgram(vertexSrc, fragmentSrc string) (gpu.Program, gpu.CompileResult) {
	var res gpu.CompileResult
	vs, vsOK, vsLog := genShader(vertexSrc, gl.VERTEX_SHADER)
	fs, fsOK, fsLog := genShader(fragmentSrc, gl.FRAGMENT_SHADER)
	res.VertexLog, res.FragmentLog = vsLog, fsLog

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		res.LinkLog = strings.TrimRight(log, "\x00")
	}
	gl.DetachShader(program, vs)
	gl.DeleteShader(vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(fs)

	res.OK = vsOK && fsOK && status != gl.FALSE
	return gpu.Program(program), res
}

func genShader(source string, shaderType uint32) (uint32, bool, string) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return shader, false, strings.TrimRight(log, "\x00")
	}
	return shader, true, ""
}

func (d *Device) DeleteProgram(p gpu.Program) { gl.DeleteProgram(uint32(p)) }
func (d *Device) UseProgram(p gpu.Program)    { gl.UseProgram(uint32(p)) }

func (d *Device) UniformLocation(p gpu.Program, name string) gpu.Location {
	return gpu.Location(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) AttribLocation(p gpu.Program, name string) gpu.Location {
	return gpu.Location(gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) Uniform1i(l gpu.Location, v int32)         { gl.Uniform1i(int32(l), v) }
func (d *Device) Uniform1f(l gpu.Location, v float32)       { gl.Uniform1f(int32(l), v) }
func (d *Device) Uniform2f(l gpu.Location, x, y float32)    { gl.Uniform2f(int32(l), x, y) }
func (d *Device) Uniform3f(l gpu.Location, x, y, z float32) { gl.Uniform3f(int32(l), x, y, z) }
func (d *Device) Uniform4f(l gpu.Location, x, y, z, w float32) {
	gl.Uniform4f(int32(l), x, y, z, w)
}

func (d *Device) Uniform1iv(l gpu.Location, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(int32(l), int32(len(v)), &v[0])
	}
}

func (d *Device) Uniform1fv(l gpu.Location, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(int32(l), int32(len(v)), &v[0])
	}
}

func (d *Device) Uniform2fv(l gpu.Location, v []float32) {
	if len(v) >= 2 {
		gl.Uniform2fv(int32(l), int32(len(v)/2), &v[0])
	}
}

func (d *Device) Uniform3fv(l gpu.Location, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(int32(l), int32(len(v)/3), &v[0])
	}
}

func (d *Device) Uniform4fv(l gpu.Location, v []float32) {
	if len(v) >= 4 {
		gl.Uniform4fv(int32(l), int32(len(v)/4), &v[0])
	}
}

func (d *Device) UniformMatrix3fv(l gpu.Location, v []float32) {
	if len(v) >= 9 {
		gl.UniformMatrix3fv(int32(l), int32(len(v)/9), false, &v[0])
	}
}

func (d *Device) UniformMatrix4fv(l gpu.Location, v []float32) {
	if len(v) >= 16 {
		gl.UniformMatrix4fv(int32(l), int32(len(v)/16), false, &v[0])
	}
}

func (d *Device) EnableVertexAttrib(l gpu.Location)  { gl.EnableVertexAttribArray(uint32(l)) }
func (d *Device) DisableVertexAttrib(l gpu.Location) { gl.DisableVertexAttribArray(uint32(l)) }

func (d *Device) VertexAttribPointer(l gpu.Location, size, stride, offset int) {
	gl.VertexAttribPointer(uint32(l), int32(size), gl.FLOAT, false, int32(stride), gl.PtrOffset(offset))
}

func (d *Device) CreateTexture() gpu.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return gpu.Texture(t)
}

func (d *Device) TexImage2D(t gpu.Texture, spec gpu.TextureSpec) error {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	switch spec.Format {
	case gpu.RGBA32F:
		var ptr unsafe.Pointer
		if len(spec.FloatPixels) > 0 {
			ptr = gl.Ptr(spec.FloatPixels)
		}
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(spec.Width), int32(spec.Height), 0, gl.RGBA, gl.FLOAT, ptr)
	default:
		var ptr unsafe.Pointer
		if len(spec.Pixels) > 0 {
			ptr = gl.Ptr(spec.Pixels)
		}
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(spec.Width), int32(spec.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(spec.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(spec.WrapT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterMode(spec.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterMode(spec.MagFilter))
	if spec.GenerateMipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	return checkError("tex image 2d")
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

func (d *Device) BindTexture(unit int, t gpu.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

func (d *Device) CreateRenderTarget(spec gpu.RenderTargetSpec) (gpu.RenderTarget, gpu.Texture) {
	var tg target
	gl.GenTextures(1, &tg.color)
	gl.BindTexture(gl.TEXTURE_2D, tg.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(spec.Width), int32(spec.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterMode(spec.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterMode(spec.MagFilter))

	gl.GenFramebuffers(1, &tg.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, tg.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tg.color, 0)

	gl.GenRenderbuffers(1, &tg.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, tg.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(spec.Width), int32(spec.Height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, tg.depth)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		logger.Log.Error("Render target incomplete",
			zap.Uint32("status", status),
			zap.Int("width", spec.Width),
			zap.Int("height", spec.Height))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	rt := gpu.RenderTarget(tg.fbo)
	d.targets[rt] = tg
	return rt, gpu.Texture(tg.color)
}

func (d *Device) DeleteRenderTarget(rt gpu.RenderTarget) {
	tg, ok := d.targets[rt]
	if !ok {
		return
	}
	gl.DeleteFramebuffers(1, &tg.fbo)
	gl.DeleteRenderbuffers(1, &tg.depth)
	gl.DeleteTextures(1, &tg.color)
	delete(d.targets, rt)
}

func (d *Device) BindRenderTarget(rt gpu.RenderTarget) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(rt))
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear(color, depth, stencil bool) {
	var mask uint32
	if color {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if stencil {
		mask |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(mask)
}

func (d *Device) Enable(c gpu.Capability)  { gl.Enable(capability(c)) }
func (d *Device) Disable(c gpu.Capability) { gl.Disable(capability(c)) }

func (d *Device) CullFace(f gpu.Face) {
	switch f {
	case gpu.FaceFront:
		gl.CullFace(gl.FRONT)
	case gpu.FaceFrontAndBack:
		gl.CullFace(gl.FRONT_AND_BACK)
	default:
		gl.CullFace(gl.BACK)
	}
}

func (d *Device) FrontFace(w gpu.Winding) {
	if w == gpu.CW {
		gl.FrontFace(gl.CW)
		return
	}
	gl.FrontFace(gl.CCW)
}

func (d *Device) DepthMask(on bool) { gl.DepthMask(on) }

func (d *Device) BlendEquation(eq gpu.BlendEquation) {
	switch eq {
	case gpu.FuncSubtract:
		gl.BlendEquation(gl.FUNC_SUBTRACT)
	case gpu.FuncReverseSubtract:
		gl.BlendEquation(gl.FUNC_REVERSE_SUBTRACT)
	default:
		gl.BlendEquation(gl.FUNC_ADD)
	}
}

func (d *Device) BlendFunc(src, dst gpu.BlendFactor) {
	gl.BlendFunc(blendFactor(src), blendFactor(dst))
}

func (d *Device) PolygonOffset(factor, units float32) { gl.PolygonOffset(factor, units) }
func (d *Device) LineWidth(w float32)                 { gl.LineWidth(w) }

func (d *Device) DrawElements(mode gpu.Primitive, count, offset int) {
	gl.DrawElements(primitive(mode), int32(count), gl.UNSIGNED_SHORT, gl.PtrOffset(offset*2))
}

func (d *Device) DrawArrays(mode gpu.Primitive, first, count int) {
	gl.DrawArrays(primitive(mode), int32(first), int32(count))
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: gl error 0x%x", op, code)
	}
	return nil
}

var _ gpu.Device = (*Device)(nil)
