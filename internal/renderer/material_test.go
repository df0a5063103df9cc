package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialSetConvertsValues(t *testing.T) {
	m := NewMaterial(PhongMaterial, "phong")
	m.NeedsUpdate = false

	require.NoError(t, m.Set("color", []float64{0.5, 0.25, 1}))
	require.NoError(t, m.Set("shininess", 64))
	require.NoError(t, m.Set("opacity", 0.5))
	require.NoError(t, m.Set("side", int(DoubleSide)))

	assert.Equal(t, mgl32.Vec3{0.5, 0.25, 1}, m.Color)
	assert.Equal(t, float32(64), m.Shininess)
	assert.Equal(t, float32(0.5), m.Opacity)
	assert.Equal(t, DoubleSide, m.Side)
	assert.True(t, m.NeedsUpdate, "side changes the shader")
}

func TestMaterialSetOnlyFlagsShaderParams(t *testing.T) {
	m := NewMaterial(LambertMaterial, "lambert")
	m.NeedsUpdate = false

	require.NoError(t, m.Set("color", mgl32.Vec3{1, 0, 0}))
	require.NoError(t, m.Set("transparent", true))
	assert.False(t, m.NeedsUpdate)

	require.NoError(t, m.Set("wrapAround", true))
	assert.True(t, m.NeedsUpdate)
}

func TestMaterialSetErrors(t *testing.T) {
	m := NewMaterial(BasicMaterial, "basic")

	err := m.Set("glossiness", 1)
	assert.ErrorIs(t, err, ErrUnknownMaterialParam)

	assert.Error(t, m.Set("color", []float32{1, 2}))
	assert.Error(t, m.Set("transparent", "yes"))
	assert.Error(t, m.Set("map", 3))
}

func TestMaterialSetValues(t *testing.T) {
	m := NewMaterial(PhongMaterial, "phong")
	require.NoError(t, m.SetValues(map[string]any{
		"metal":     true,
		"emissive":  [3]float32{0, 0.1, 0},
		"alphaTest": 0.5,
	}))
	assert.True(t, m.Metal)
	assert.Equal(t, mgl32.Vec3{0, 0.1, 0}, m.Emissive)
	assert.Equal(t, float32(0.5), m.AlphaTest)
}

func TestMaterialApplyParams(t *testing.T) {
	m := NewMaterial(PhongMaterial, "phong")
	m.NeedsUpdate = false
	tex := NewTexture("diffuse", nil)

	m.Apply(MaterialParams{
		Shininess: Ptr[float32](10),
		Map:       tex,
	})

	assert.Equal(t, float32(10), m.Shininess)
	assert.Same(t, tex, m.Map)
	assert.True(t, m.NeedsUpdate)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, m.Color, "unset fields are untouched")
}

func TestMaterialDefaults(t *testing.T) {
	assert.True(t, NewMaterial(LambertMaterial, "l").Fog)
	assert.False(t, NewMaterial(DepthMaterial, "d").Fog)
	assert.False(t, NewShaderMaterial("s", "void main(){}", "void main(){}", nil).Fog)
	assert.Equal(t, "lambert", NewMaterial(LambertMaterial, "l").ShaderID())
	assert.Empty(t, NewShaderMaterial("s", "", "", nil).ShaderID())
}
