package renderer

import (
	"fmt"

	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Uniform is a user value fed to a custom shader material every draw.
// Supported Value types are float32, float64, int, int32, bool, the mgl32
// vector and matrix types, slices of those, *Texture and []*Texture.
type Uniform struct {
	Value any
}

func NewUniform(v any) *Uniform { return &Uniform{Value: v} }

// uploadUniform writes u through uc. Textures take the next free unit.
func uploadUniform(uc *UniformCache, name string, u *Uniform, units *textureUnits) {
	if u == nil || !uc.Has(name) {
		return
	}
	switch v := u.Value.(type) {
	case float32:
		uc.SetFloat(name, v)
	case float64:
		uc.SetFloat(name, float32(v))
	case int:
		uc.SetInt(name, int32(v))
	case int32:
		uc.SetInt(name, v)
	case bool:
		uc.SetInt(name, boolInt(v))
	case mgl32.Vec2:
		uc.SetVec2(name, v)
	case mgl32.Vec3:
		uc.SetVec3(name, v)
	case mgl32.Vec4:
		uc.SetVec4(name, v)
	case mgl32.Mat3:
		uc.SetMat3(name, v)
	case mgl32.Mat4:
		uc.SetMat4(name, v)
	case []float32:
		uc.SetFloats(name, v)
	case []int32:
		uc.SetInts(name, v)
	case []mgl32.Vec2:
		out := make([]float32, 0, len(v)*2)
		for _, x := range v {
			out = append(out, x[:]...)
		}
		uc.SetVec2s(name, out)
	case []mgl32.Vec3:
		out := make([]float32, 0, len(v)*3)
		for _, x := range v {
			out = append(out, x[:]...)
		}
		uc.SetVec3s(name, out)
	case []mgl32.Vec4:
		out := make([]float32, 0, len(v)*4)
		for _, x := range v {
			out = append(out, x[:]...)
		}
		uc.SetVec4s(name, out)
	case []mgl32.Mat4:
		uc.SetMat4s(name, flattenMat4(v))
	case *Texture:
		if v == nil {
			break
		}
		if unit, ok := units.bind(v); ok {
			uc.SetInt(name, unit)
		}
	case []*Texture:
		slots := make([]int32, 0, len(v))
		for _, tex := range v {
			if tex == nil {
				continue
			}
			if unit, ok := units.bind(tex); ok {
				slots = append(slots, unit)
			}
		}
		uc.SetInts(name, slots)
	default:
		logger.WarnOnce("uniform-type-"+name,
			"Unsupported uniform value type",
			zap.String("uniform", name),
			zap.String("type", fmt.Sprintf("%T", u.Value)))
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func flattenMat4(ms []mgl32.Mat4) []float32 {
	out := make([]float32, 0, len(ms)*16)
	for _, m := range ms {
		out = append(out, m[:]...)
	}
	return out
}
