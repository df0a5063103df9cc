package renderer

import (
	"testing"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/gpu/gputest"
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestShadows(settings ShadowSettings) (*ShadowMapCoordinator, *gputest.Device) {
	dev := gputest.New()
	return NewShadowMapCoordinator(dev, NewStateCache(dev), &settings), dev
}

func countingDepth(calls *int) DepthDrawFunc {
	return func(*Object, *Material, *Camera) DrawInfo {
		*calls++
		return DrawInfo{Calls: 1}
	}
}

func TestSpotShadowMatrixMapsIntoUnitCube(t *testing.T) {
	c, _ := newTestShadows(ShadowSettings{Enabled: true})
	spot := NewSpotLight(mgl32.Vec3{1, 1, 1}, 1, 0, 0.6, 10)
	spot.Position = mgl32.Vec3{100, 200, 50}
	spot.CastShadow = true

	st := c.shadowState(spot)
	c.updateLightCamera(st, spot)

	for _, p := range []mgl32.Vec3{{0, 0, 0}, {10, 0, 10}, {-10, 5, -5}} {
		v := st.Matrix.Mul4x1(p.Vec4(1))
		uvw := v.Vec3().Mul(1 / v.W())
		for k := 0; k < 3; k++ {
			assert.GreaterOrEqual(t, uvw[k], float32(0), "point %v axis %d", p, k)
			assert.LessOrEqual(t, uvw[k], float32(1), "point %v axis %d", p, k)
		}
	}
}

func TestShadowRenderSkipsUnsupportedLights(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))
	defer logger.Set(nil)
	logger.ResetOnce()

	c, _ := newTestShadows(ShadowSettings{Enabled: true, AutoUpdate: true})
	point := NewPointLight(mgl32.Vec3{1, 1, 1}, 1, 0)
	point.CastShadow = true
	caster := NewMesh("tri", triangleGeometry("tri"), NewMaterial(BasicMaterial, "basic"))
	caster.CastShadow = true

	calls := 0
	c.Render(&ObjectList{Objects: []*Object{caster}, LightList: []*Light{point}}, testCamera(), countingDepth(&calls))

	assert.Zero(t, calls)
	assert.Empty(t, c.Maps())
	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "Light cannot cast shadows", errs[0].Message)
}

func TestShadowRenderDrawsCastersOnly(t *testing.T) {
	c, dev := newTestShadows(ShadowSettings{Enabled: true, AutoUpdate: true, Type: PCFSoftShadowMap})
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true

	g := triangleGeometry("tri")
	caster := NewMesh("caster", g, NewMaterial(BasicMaterial, "basic"))
	caster.CastShadow = true
	bystander := NewMesh("bystander", g, NewMaterial(BasicMaterial, "basic"))
	scene := &ObjectList{Objects: []*Object{caster, bystander}, LightList: []*Light{sun}}

	calls := 0
	info := c.Render(scene, testCamera(), countingDepth(&calls))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, info.Calls)
	require.Len(t, c.Maps(), 1)
	assert.Equal(t, mgl32.Vec2{512, 512}, c.Maps()[0].Size)
	assert.Equal(t, 1, dev.Calls["CreateRenderTarget"])
	assert.Equal(t, gpu.RenderTarget(0), dev.BoundRT)
	require.NotNil(t, sun.ShadowState())
	assert.NotZero(t, sun.ShadowState().Texture)
}

func TestShadowRenderOnceWithoutAutoUpdate(t *testing.T) {
	c, _ := newTestShadows(ShadowSettings{Enabled: true})
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true
	caster := NewMesh("tri", triangleGeometry("tri"), NewMaterial(BasicMaterial, "basic"))
	caster.CastShadow = true
	scene := &ObjectList{Objects: []*Object{caster}, LightList: []*Light{sun}}

	calls := 0
	c.Render(scene, testCamera(), countingDepth(&calls))
	c.Render(scene, testCamera(), countingDepth(&calls))
	assert.Equal(t, 1, calls)

	c.NeedsUpdate = true
	c.Render(scene, testCamera(), countingDepth(&calls))
	assert.Equal(t, 2, calls)
}

func TestShadowDisabledClearsMaps(t *testing.T) {
	settings := ShadowSettings{Enabled: true, AutoUpdate: true}
	dev := gputest.New()
	c := NewShadowMapCoordinator(dev, NewStateCache(dev), &settings)
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true
	scene := &ObjectList{LightList: []*Light{sun}}

	calls := 0
	c.Render(scene, testCamera(), countingDepth(&calls))
	require.Len(t, c.Maps(), 1)

	settings.Enabled = false
	c.Render(scene, testCamera(), countingDepth(&calls))
	assert.Empty(t, c.Maps())
}

func TestCascadeFollowsViewCamera(t *testing.T) {
	c, _ := newTestShadows(ShadowSettings{Enabled: true, AutoUpdate: true})
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true
	sun.Shadow.EnableCascades(2)
	scene := &ObjectList{LightList: []*Light{sun}}

	cam := testCamera()
	calls := 0
	c.Render(scene, cam, countingDepth(&calls))
	cascades := sun.ShadowState().Cascades
	require.Len(t, cascades, 2)
	assert.Equal(t, cam.Position.Add(sun.Position), cascades[0].Position)
	assert.Equal(t, float32(-1), cascades[0].NearZ)
	assert.Equal(t, float32(0.99), cascades[0].FarZ)

	cam.Position = mgl32.Vec3{5, 0, 10}
	c.Render(scene, cam, countingDepth(&calls))
	assert.Equal(t, cam.Position.Add(sun.Position), cascades[0].Position)
	assert.Equal(t, 2, c.VirtualLightsCreated())
	assert.Less(t, cascades[0].Shadow.Camera.OrthoLeft, cascades[0].Shadow.Camera.OrthoRight)
	assert.Less(t, cascades[0].Shadow.Camera.OrthoBottom, cascades[0].Shadow.Camera.OrthoTop)
}

func TestCascadeBoundsContainFrustumSlice(t *testing.T) {
	c, _ := newTestShadows(ShadowSettings{Enabled: true, AutoUpdate: true})
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true
	sun.Shadow.EnableCascades(3)
	cam := testCamera()
	calls := 0
	c.Render(&ObjectList{LightList: []*Light{sun}}, cam, countingDepth(&calls))

	const eps = 1e-3
	for i, vl := range sun.ShadowState().Cascades {
		sc := vl.Shadow.Camera
		require.Less(t, sc.OrthoBottom, sc.OrthoTop, "cascade %d", i)
		require.Less(t, sc.OrthoLeft, sc.OrthoRight, "cascade %d", i)
		lightView := sc.GetViewMatrix()
		for _, corner := range frustumSlice(vl.NearZ, vl.FarZ) {
			p := lightView.Mul4x1(cam.Unproject(corner).Vec4(1))
			assert.GreaterOrEqual(t, p.X(), sc.OrthoLeft-eps, "cascade %d corner %v", i, corner)
			assert.LessOrEqual(t, p.X(), sc.OrthoRight+eps, "cascade %d corner %v", i, corner)
			assert.GreaterOrEqual(t, p.Y(), sc.OrthoBottom-eps, "cascade %d corner %v", i, corner)
			assert.LessOrEqual(t, p.Y(), sc.OrthoTop+eps, "cascade %d corner %v", i, corner)
		}
	}
}

func TestShadowRenderRestoresState(t *testing.T) {
	c, dev := newTestShadows(ShadowSettings{Enabled: true, AutoUpdate: true, CullFrontFaces: true})
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true
	caster := NewMesh("caster", triangleGeometry("tri"), NewMaterial(BasicMaterial, "basic"))
	caster.CastShadow = true
	scene := &ObjectList{Objects: []*Object{caster}, LightList: []*Light{sun}}

	clearColor := [4]float32{0.2, 0.3, 0.4, 1}
	c.state.SetBlending(NormalBlending, 0, 0, 0)
	c.state.SetCulling(false)
	c.state.SetCullFace(gpu.FaceBack)
	c.state.SetClearColor(clearColor)

	assertRestored := func() {
		t.Helper()
		assert.True(t, dev.Enabled[gpu.Blend])
		assert.False(t, dev.Enabled[gpu.CullFace])
		assert.Equal(t, gpu.FaceBack, dev.CullMode)
		assert.Equal(t, clearColor, dev.ClearRGBA)
	}

	c.Render(scene, testCamera(), func(*Object, *Material, *Camera) DrawInfo {
		assert.False(t, dev.Enabled[gpu.Blend])
		assert.True(t, dev.Enabled[gpu.CullFace])
		assert.Equal(t, gpu.FaceFront, dev.CullMode)
		assert.Equal(t, [4]float32{1, 1, 1, 1}, dev.ClearRGBA)
		return DrawInfo{Calls: 1}
	})
	assertRestored()

	// A draw that panics still leaves the state as it was.
	assert.Panics(t, func() {
		c.Render(scene, testCamera(), func(*Object, *Material, *Camera) DrawInfo {
			panic("draw failed")
		})
	})
	assertRestored()
}

func TestDepthMaterialVariants(t *testing.T) {
	c, _ := newTestShadows(ShadowSettings{Enabled: true})
	variants := c.DepthMaterials()
	require.Len(t, variants, 4)

	g := triangleGeometry("tri")
	m := NewMaterial(LambertMaterial, "lambert")
	obj := NewMesh("obj", g, m)
	assert.Same(t, variants[0], c.depthMaterialFor(obj))

	// Skinning needs both the material flag and a skeleton.
	m.Skinning = true
	assert.Same(t, variants[0], c.depthMaterialFor(obj))
	obj.Skeleton = &Skeleton{Bones: []mgl32.Mat4{mgl32.Ident4()}}
	skinned := c.depthMaterialFor(obj)
	assert.Same(t, variants[1], skinned)
	assert.True(t, skinned.Skinning)
	assert.False(t, skinned.MorphTargets)

	// Morphing needs both the material flag and targets on the geometry.
	m.MorphTargets = true
	assert.Same(t, variants[1], c.depthMaterialFor(obj))
	g.MorphTargets = []MorphTarget{{Name: "smile", Vertices: g.Vertices}}
	both := c.depthMaterialFor(obj)
	assert.Same(t, variants[3], both)
	assert.True(t, both.Skinning)
	assert.True(t, both.MorphTargets)

	m.Skinning = false
	morphed := c.depthMaterialFor(obj)
	assert.Same(t, variants[2], morphed)
	assert.True(t, morphed.MorphTargets)
	assert.False(t, morphed.Skinning)

	custom := NewMaterial(DepthMaterial, "custom")
	obj.CustomDepthMaterial = custom
	assert.Same(t, custom, c.depthMaterialFor(obj))
}

func TestShadowReleaseFreesTargets(t *testing.T) {
	c, dev := newTestShadows(ShadowSettings{Enabled: true, AutoUpdate: true})
	sun := NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)
	sun.Position = mgl32.Vec3{30, 100, 20}
	sun.CastShadow = true
	sun.Shadow.EnableCascades(3)
	calls := 0
	c.Render(&ObjectList{LightList: []*Light{sun}}, testCamera(), countingDepth(&calls))

	c.Release(sun)
	assert.Equal(t, 3, dev.Calls["DeleteRenderTarget"])
	assert.Nil(t, sun.ShadowState())
}
