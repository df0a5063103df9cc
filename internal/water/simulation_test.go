package water

import (
	"testing"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/gpu/gputest"
	"Gopher3DCore/internal/renderer"
	"Gopher3DCore/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulationBuildsDynamicSurface(t *testing.T) {
	ws, err := NewSimulation(100, 1, 8)
	require.NoError(t, err)
	assert.True(t, ws.Geometry.Dynamic)
	assert.Len(t, ws.Geometry.Vertices, 64)
	assert.Len(t, ws.Waves, MaxWaves)
	assert.Equal(t, renderer.DoubleSide, ws.Material.Side)
	assert.True(t, ws.Material.Transparent)
	assert.Same(t, ws.Geometry, ws.Node.Object.Geometry)

	_, err = NewSimulation(100, 1, 1)
	assert.Error(t, err)
}

func TestUpdateDisplacesVertices(t *testing.T) {
	ws, err := NewSimulation(100, 2, 8)
	require.NoError(t, err)
	ws.Start()
	before := append([]mgl32.Vec3(nil), ws.Geometry.Vertices...)

	ws.Update(0.5)
	assert.Equal(t, float32(0.5), ws.CurrentTime)
	assert.NotEqual(t, before, ws.Geometry.Vertices)
	assert.True(t, ws.Geometry.Pending().Has(renderer.DirtyVertices|renderer.DirtyNormals))

	for i, p := range ws.rest {
		assert.InDelta(t, ws.HeightAt(p.X(), p.Z()), ws.Geometry.Vertices[i].Y(), 1e-4)
	}
}

func TestZeroAmplitudeStaysFlat(t *testing.T) {
	ws, err := NewSimulation(50, 0, 4)
	require.NoError(t, err)
	ws.Update(1)
	for _, v := range ws.Geometry.Vertices {
		assert.InDelta(t, 0, v.Y(), 1e-6)
	}
}

func TestWaveSpeedFollowsDispersion(t *testing.T) {
	short := Wave{Length: 1}
	long := Wave{Length: 4}
	// Four times the wavelength travels twice as fast.
	assert.InDelta(t, 2*short.speed(), long.speed(), 1e-4)
}

func TestSurfaceReuploadsDynamically(t *testing.T) {
	dev := gputest.New()
	r, err := renderer.New(dev, nil, nil)
	require.NoError(t, err)

	ws, err := NewSimulation(40, 1, 4)
	require.NoError(t, err)
	s := scene.New()
	s.Add(ws.Node, scene.NewLightNode("sun", renderer.NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)))
	cam := renderer.NewPerspectiveCamera(45, 1, 0.1, 500)
	cam.Position = mgl32.Vec3{0, 40, 60}
	cam.LookAt(mgl32.Vec3{})

	ws.Start()
	s.UpdateWorld()
	r.Render(s, cam)
	uploads := len(dev.Uploads)

	ws.Update(0.1)
	r.Render(s, cam)
	fresh := dev.Uploads[uploads:]
	require.NotEmpty(t, fresh)
	for _, u := range fresh {
		assert.Equal(t, gpu.DynamicDraw, u.Usage)
	}
	// Only positions and normals change.
	assert.Len(t, fresh, 2)
}
