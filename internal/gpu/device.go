// Package gpu describes the immediate-mode graphics API the renderer drives.
// Every call is fallible-but-logged: implementations log failures and return
// zero handles or errors, they never panic into the caller.
package gpu

// Opaque GPU object names. Zero is never a valid object.
type (
	Buffer       uint32
	Program      uint32
	Texture      uint32
	RenderTarget uint32
)

// Location is a uniform or attribute slot in a linked program.
type Location int32

// NoLocation marks a uniform or attribute the program does not use.
const NoLocation Location = -1

// Valid reports whether the program actually uses the slot.
func (l Location) Valid() bool { return l >= 0 }

type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// Usage is the data store usage hint given to the driver on upload.
type Usage int

const (
	StaticDraw Usage = iota
	DynamicDraw
)

func (u Usage) String() string {
	if u == DynamicDraw {
		return "dynamic"
	}
	return "static"
}

type Primitive int

const (
	Triangles Primitive = iota
	Lines
	LineStrip
	Points
)

type Capability int

const (
	Blend Capability = iota
	CullFace
	DepthTest
	PolygonOffsetFill
)

type Face int

const (
	FaceBack Face = iota
	FaceFront
	FaceFrontAndBack
)

type Winding int

const (
	CCW Winding = iota
	CW
)

type BlendEquation int

const (
	FuncAdd BlendEquation = iota
	FuncSubtract
	FuncReverseSubtract
)

type BlendFactor int

const (
	Zero BlendFactor = iota
	One
	SrcColor
	OneMinusSrcColor
	SrcAlpha
	OneMinusSrcAlpha
	DstAlpha
	OneMinusDstAlpha
	DstColor
	OneMinusDstColor
)

type Filter int

const (
	Nearest Filter = iota
	Linear
	LinearMipmapLinear
)

type Wrap int

const (
	Repeat Wrap = iota
	ClampToEdge
	MirroredRepeat
)

type TextureFormat int

const (
	RGBA8 TextureFormat = iota
	RGBA32F
)

// TextureSpec describes a 2D texture upload. Exactly one of Pixels or
// FloatPixels is used, depending on Format.
type TextureSpec struct {
	Width, Height   int
	Format          TextureFormat
	Pixels          []byte
	FloatPixels     []float32
	MinFilter       Filter
	MagFilter       Filter
	WrapS, WrapT    Wrap
	GenerateMipmaps bool
}

// RenderTargetSpec describes an offscreen color+depth target.
type RenderTargetSpec struct {
	Width, Height int
	MinFilter     Filter
	MagFilter     Filter
}

// Capabilities are hardware limits queried once at startup.
type Capabilities struct {
	MaxTextures             int
	MaxVertexTextures       int
	MaxTextureSize          int
	MaxVertexUniformVectors int
	SupportsVertexTextures  bool
	SupportsFloatTextures   bool
}

// CompileResult carries the driver logs of a compile/link attempt.
type CompileResult struct {
	OK          bool
	VertexLog   string
	FragmentLog string
	LinkLog     string
}

// Device is the graphics API consumed by the renderer. All methods must be
// called from the goroutine that owns the context.
type Device interface {
	Capabilities() Capabilities

	CreateBuffer() Buffer
	DeleteBuffer(b Buffer)
	BindBuffer(target BufferTarget, b Buffer)
	BufferFloat32(target BufferTarget, data []float32, usage Usage) error
	BufferUint16(target BufferTarget, data []uint16, usage Usage) error

	CompileProgram(vertexSrc, fragmentSrc string) (Program, CompileResult)
	DeleteProgram(p Program)
	UseProgram(p Program)
	UniformLocation(p Program, name string) Location
	AttribLocation(p Program, name string) Location

	Uniform1i(l Location, v int32)
	Uniform1f(l Location, v float32)
	Uniform2f(l Location, x, y float32)
	Uniform3f(l Location, x, y, z float32)
	Uniform4f(l Location, x, y, z, w float32)
	Uniform1iv(l Location, v []int32)
	Uniform1fv(l Location, v []float32)
	Uniform2fv(l Location, v []float32)
	Uniform3fv(l Location, v []float32)
	Uniform4fv(l Location, v []float32)
	UniformMatrix3fv(l Location, v []float32)
	UniformMatrix4fv(l Location, v []float32)

	EnableVertexAttrib(l Location)
	DisableVertexAttrib(l Location)
	VertexAttribPointer(l Location, size, stride, offset int)

	CreateTexture() Texture
	TexImage2D(t Texture, spec TextureSpec) error
	DeleteTexture(t Texture)
	BindTexture(unit int, t Texture)

	CreateRenderTarget(spec RenderTargetSpec) (RenderTarget, Texture)
	DeleteRenderTarget(rt RenderTarget)
	BindRenderTarget(rt RenderTarget)
	Viewport(x, y, width, height int)

	ClearColor(r, g, b, a float32)
	Clear(color, depth, stencil bool)
	Enable(c Capability)
	Disable(c Capability)
	CullFace(f Face)
	FrontFace(w Winding)
	DepthMask(on bool)
	BlendEquation(eq BlendEquation)
	BlendFunc(src, dst BlendFactor)
	PolygonOffset(factor, units float32)
	LineWidth(w float32)

	DrawElements(mode Primitive, count, offset int)
	DrawArrays(mode Primitive, first, count int)
}
