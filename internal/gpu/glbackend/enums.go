package glbackend

import (
	"Gopher3DCore/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
)

func bufferTarget(t gpu.BufferTarget) uint32 {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func bufferUsage(u gpu.Usage) uint32 {
	if u == gpu.DynamicDraw {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

func primitive(p gpu.Primitive) uint32 {
	switch p {
	case gpu.Lines:
		return gl.LINES
	case gpu.LineStrip:
		return gl.LINE_STRIP
	case gpu.Points:
		return gl.POINTS
	default:
		return gl.TRIANGLES
	}
}

func capability(c gpu.Capability) uint32 {
	switch c {
	case gpu.Blend:
		return gl.BLEND
	case gpu.CullFace:
		return gl.CULL_FACE
	case gpu.PolygonOffsetFill:
		return gl.POLYGON_OFFSET_FILL
	default:
		return gl.DEPTH_TEST
	}
}

func blendFactor(f gpu.BlendFactor) uint32 {
	switch f {
	case gpu.Zero:
		return gl.ZERO
	case gpu.One:
		return gl.ONE
	case gpu.SrcColor:
		return gl.SRC_COLOR
	case gpu.OneMinusSrcColor:
		return gl.ONE_MINUS_SRC_COLOR
	case gpu.SrcAlpha:
		return gl.SRC_ALPHA
	case gpu.OneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case gpu.DstAlpha:
		return gl.DST_ALPHA
	case gpu.OneMinusDstAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	case gpu.DstColor:
		return gl.DST_COLOR
	default:
		return gl.ONE_MINUS_DST_COLOR
	}
}

func filterMode(f gpu.Filter) int32 {
	switch f {
	case gpu.Nearest:
		return gl.NEAREST
	case gpu.LinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

func wrapMode(w gpu.Wrap) int32 {
	switch w {
	case gpu.ClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gpu.MirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.REPEAT
	}
}
