package renderer

import (
	"testing"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedProgram(t *testing.T, src string) (*gputest.Device, gpu.Program, *UniformCache) {
	t.Helper()
	dev := gputest.New()
	p, res := dev.CompileProgram(src, "")
	require.True(t, res.OK)
	return dev, p, NewUniformCache(dev, p)
}

func TestNewUniformCache(t *testing.T) {
	_, _, cache := newCachedProgram(t, "")

	if cache == nil {
		t.Fatal("NewUniformCache returned nil")
	}

	if cache.locations == nil {
		t.Error("locations map should be initialized")
	}
}

func TestUniformCacheClear(t *testing.T) {
	_, _, cache := newCachedProgram(t, "")
	cache.locations["test"] = 5

	cache.Clear()

	if len(cache.locations) != 0 {
		t.Error("Clear should empty the cache")
	}
}

func TestUniformCacheLooksUpOnce(t *testing.T) {
	dev, _, cache := newCachedProgram(t, "uniform float opacity;")

	assert.True(t, cache.Has("opacity"))
	assert.True(t, cache.Has("opacity"))
	assert.False(t, cache.Has("missing"))
	assert.Equal(t, 2, dev.Calls["UniformLocation"])
}

func TestUniformCacheSetters(t *testing.T) {
	dev, p, cache := newCachedProgram(t, "uniform float opacity; uniform vec3 diffuse; uniform mat4 viewMatrix;")

	cache.SetFloat("opacity", 0.25)
	cache.SetVec3("diffuse", mgl32.Vec3{1, 0.5, 0})
	cache.SetMat4("viewMatrix", mgl32.Ident4())
	cache.SetFloat("missing", 1)

	v, ok := dev.Uniform(p, "opacity")
	require.True(t, ok)
	assert.Equal(t, []float32{0.25}, v)

	v, ok = dev.Uniform(p, "diffuse")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0.5, 0}, v)

	v, ok = dev.Uniform(p, "viewMatrix")
	require.True(t, ok)
	assert.Len(t, v, 16)

	assert.Equal(t, 1, dev.Calls["Uniform1f"], "missing uniform must not be written")
}

func TestUniformCacheSkipsEmptyArrays(t *testing.T) {
	dev, _, cache := newCachedProgram(t, "uniform float morphTargetInfluences[8];")

	cache.SetFloats("morphTargetInfluences", nil)
	assert.Zero(t, dev.Calls["Uniform1fv"])

	cache.SetFloats("morphTargetInfluences", []float32{1, 0})
	assert.Equal(t, 1, dev.Calls["Uniform1fv"])
}
