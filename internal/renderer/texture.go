package renderer

import (
	"image"

	"Gopher3DCore/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture is CPU-side image data plus sampling state. Set NeedsUpdate after
// changing Image, Data or sampling fields.
type Texture struct {
	Name  string
	Image image.Image

	// Data holds RGBA32F texels when the texture is built from floats
	// (bone matrices); Width and Height describe it.
	Data          []float32
	Width, Height int

	MinFilter, MagFilter gpu.Filter
	WrapS, WrapT         gpu.Wrap
	GenerateMipmaps      bool
	Offset, Repeat       mgl32.Vec2
	NeedsUpdate          bool
}

// NewTexture wraps img with repeat wrapping and mipmapped filtering.
func NewTexture(name string, img image.Image) *Texture {
	t := &Texture{
		Name:            name,
		Image:           img,
		MinFilter:       gpu.LinearMipmapLinear,
		MagFilter:       gpu.Linear,
		WrapS:           gpu.Repeat,
		WrapT:           gpu.Repeat,
		GenerateMipmaps: true,
		Repeat:          mgl32.Vec2{1, 1},
		NeedsUpdate:     true,
	}
	if img != nil {
		b := img.Bounds()
		t.Width, t.Height = b.Dx(), b.Dy()
	}
	return t
}

// NewDataTexture returns a float texture sampled without filtering.
func NewDataTexture(name string, width, height int, data []float32) *Texture {
	return &Texture{
		Name:        name,
		Data:        data,
		Width:       width,
		Height:      height,
		MinFilter:   gpu.Nearest,
		MagFilter:   gpu.Nearest,
		WrapS:       gpu.ClampToEdge,
		WrapT:       gpu.ClampToEdge,
		Repeat:      mgl32.Vec2{1, 1},
		NeedsUpdate: true,
	}
}

// OffsetRepeat packs offset and repeat the way the shaders read them.
func (t *Texture) OffsetRepeat() mgl32.Vec4 {
	return mgl32.Vec4{t.Offset[0], t.Offset[1], t.Repeat[0], t.Repeat[1]}
}

func (t *Texture) byteSize() int {
	if len(t.Data) > 0 {
		return len(t.Data) * 4
	}
	return t.Width * t.Height * 4
}
