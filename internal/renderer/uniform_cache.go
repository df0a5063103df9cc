package renderer

import (
	"Gopher3DCore/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformCache caches uniform locations to avoid repeated location lookups
type UniformCache struct {
	device    gpu.Device
	locations map[string]gpu.Location
	program   gpu.Program
}

// NewUniformCache creates a new uniform cache for a shader program
func NewUniformCache(device gpu.Device, program gpu.Program) *UniformCache {
	return &UniformCache{
		device:    device,
		locations: make(map[string]gpu.Location),
		program:   program,
	}
}

// GetLocation returns the cached uniform location or fetches and caches it
func (uc *UniformCache) GetLocation(name string) gpu.Location {
	if loc, exists := uc.locations[name]; exists {
		return loc
	}

	// Fetch and cache the location
	loc := uc.device.UniformLocation(uc.program, name)
	uc.locations[name] = loc
	return loc
}

// Has reports whether the program uses the named uniform.
func (uc *UniformCache) Has(name string) bool {
	return uc.GetLocation(name).Valid()
}

// SetFloat sets a float uniform using cached location
func (uc *UniformCache) SetFloat(name string, value float32) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.Uniform1f(loc, value)
	}
}

func (uc *UniformCache) SetVec2(name string, v mgl32.Vec2) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.Uniform2f(loc, v[0], v[1])
	}
}

// SetVec3 sets a vec3 uniform using cached location
func (uc *UniformCache) SetVec3(name string, v mgl32.Vec3) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.Uniform3f(loc, v[0], v[1], v[2])
	}
}

func (uc *UniformCache) SetVec4(name string, v mgl32.Vec4) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

// SetInt sets an int uniform using cached location
func (uc *UniformCache) SetInt(name string, value int32) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.Uniform1i(loc, value)
	}
}

func (uc *UniformCache) SetMat3(name string, m mgl32.Mat3) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.UniformMatrix3fv(loc, m[:])
	}
}

func (uc *UniformCache) SetMat4(name string, m mgl32.Mat4) {
	if loc := uc.GetLocation(name); loc.Valid() {
		uc.device.UniformMatrix4fv(loc, m[:])
	}
}

// SetFloats uploads a float array. Empty slices are skipped.
func (uc *UniformCache) SetFloats(name string, v []float32) {
	if loc := uc.GetLocation(name); loc.Valid() && len(v) > 0 {
		uc.device.Uniform1fv(loc, v)
	}
}

// SetVec3s uploads a flattened vec3 array.
func (uc *UniformCache) SetVec3s(name string, v []float32) {
	if loc := uc.GetLocation(name); loc.Valid() && len(v) > 0 {
		uc.device.Uniform3fv(loc, v)
	}
}

func (uc *UniformCache) SetVec2s(name string, v []float32) {
	if loc := uc.GetLocation(name); loc.Valid() && len(v) > 0 {
		uc.device.Uniform2fv(loc, v)
	}
}

func (uc *UniformCache) SetVec4s(name string, v []float32) {
	if loc := uc.GetLocation(name); loc.Valid() && len(v) > 0 {
		uc.device.Uniform4fv(loc, v)
	}
}

// SetMat4s uploads a flattened mat4 array.
func (uc *UniformCache) SetMat4s(name string, v []float32) {
	if loc := uc.GetLocation(name); loc.Valid() && len(v) > 0 {
		uc.device.UniformMatrix4fv(loc, v)
	}
}

func (uc *UniformCache) SetInts(name string, v []int32) {
	if loc := uc.GetLocation(name); loc.Valid() && len(v) > 0 {
		uc.device.Uniform1iv(loc, v)
	}
}

// Clear clears the cache (call when shader program changes)
func (uc *UniformCache) Clear() {
	uc.locations = make(map[string]gpu.Location)
}
