package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorPacksLightsByKind(t *testing.T) {
	var a LightAggregator
	a.Reset()

	ambient := NewAmbientLight(mgl32.Vec3{0.1, 0.1, 0.1})
	sun := NewDirectionalLight(mgl32.Vec3{1, 0.5, 0}, 2)
	sun.Position = mgl32.Vec3{0, 10, 0}
	spot := NewSpotLight(mgl32.Vec3{0, 0, 1}, 1, 30, 0.5, 4)
	spot.Position = mgl32.Vec3{1, 2, 3}

	for _, l := range []*Light{ambient, sun, spot} {
		a.Visit(l)
	}

	assert.Equal(t, mgl32.Vec3{0.1, 0.1, 0.1}, a.Ambient)
	assert.Equal(t, 1, a.Directional.Length)
	assert.Equal(t, []float32{2, 1, 0}, a.Directional.Colors[:3])
	assert.Equal(t, []float32{0, 1, 0}, a.Directional.Directions[:3])
	assert.Equal(t, 1, a.Spot.Length)
	assert.Equal(t, []float32{1, 2, 3}, a.Spot.Positions[:3])
	assert.Equal(t, float32(30), a.Spot.Distances[0])
	assert.InDelta(t, 0.8776, a.Spot.AngleCos[0], 1e-4)
	assert.Zero(t, a.Point.Count)
}

func TestAggregatorGammaInput(t *testing.T) {
	a := LightAggregator{GammaInput: true}
	a.Visit(NewPointLight(mgl32.Vec3{0.5, 1, 0}, 2, 0))
	assert.Equal(t, []float32{1, 4, 0}, a.Point.Colors[:3])
}

func TestAggregatorSkipsShadowOnlyLights(t *testing.T) {
	var a LightAggregator
	l := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	l.OnlyShadow = true
	a.Visit(l)
	assert.Zero(t, a.Directional.Count)
	assert.Zero(t, a.Directional.Length)
}

func TestFinalizeZeroFillsToCompiledWidth(t *testing.T) {
	var a LightAggregator
	for i := 0; i < 3; i++ {
		a.Visit(NewPointLight(mgl32.Vec3{1, 1, 1}, 1, 0))
	}
	a.Reset()
	a.Visit(NewPointLight(mgl32.Vec3{1, 1, 1}, 1, 0))
	a.Finalize(LightCounts{Point: 3})

	require.GreaterOrEqual(t, len(a.Point.Colors), 9)
	assert.Equal(t, []float32{1, 1, 1}, a.Point.Colors[:3])
	for _, v := range a.Point.Colors[3:9] {
		assert.Zero(t, v)
	}
	assert.Equal(t, LightCounts{Point: 1}, a.Counts())
}

func TestLightCountsMax(t *testing.T) {
	a := LightCounts{Directional: 2, Point: 1}
	b := LightCounts{Point: 4, Hemisphere: 1}
	assert.Equal(t, LightCounts{Directional: 2, Point: 4, Hemisphere: 1}, a.Max(b))
}
