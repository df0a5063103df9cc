package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRayIntersectSphere(t *testing.T) {
	ray := Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}}

	ok, dist, point := RayIntersectSphere(ray, mgl32.Vec3{}, 1)
	require.True(t, ok)
	assert.InDelta(t, 9, dist, 1e-5)
	assert.InDelta(t, 1, point.Z(), 1e-5)

	ok, _, _ = RayIntersectSphere(ray, mgl32.Vec3{5, 0, 0}, 1)
	assert.False(t, ok)

	// Origin inside the sphere hits the far side.
	inside := Ray{Origin: mgl32.Vec3{}, Direction: mgl32.Vec3{1, 0, 0}}
	ok, dist, _ = RayIntersectSphere(inside, mgl32.Vec3{}, 2)
	require.True(t, ok)
	assert.InDelta(t, 2, dist, 1e-5)

	behind := Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, 1}}
	ok, _, _ = RayIntersectSphere(behind, mgl32.Vec3{}, 1)
	assert.False(t, ok)
}

func TestRayIntersectTriangle(t *testing.T) {
	v0, v1, v2 := mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{1, -1, 0}, mgl32.Vec3{0, 1, 0}

	ok, dist, point := RayIntersectTriangle(Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}, v0, v1, v2)
	require.True(t, ok)
	assert.InDelta(t, 5, dist, 1e-5)
	assert.InDelta(t, 0, point.Z(), 1e-5)

	ok, _, _ = RayIntersectTriangle(Ray{Origin: mgl32.Vec3{3, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}, v0, v1, v2)
	assert.False(t, ok)

	ok, _, _ = RayIntersectTriangle(Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{1, 0, 0}}, v0, v1, v2)
	assert.False(t, ok, "parallel ray")
}

func TestRaycastNearestFirst(t *testing.T) {
	g := triangleGeometry("tri")
	near := NewMesh("near", g, nil)
	near.World = mgl32.Translate3D(0, 0, 2)
	far := NewMesh("far", g, nil)
	hidden := NewMesh("hidden", g, nil)
	hidden.World = mgl32.Translate3D(0, 0, 4)
	hidden.Visible = false
	aside := NewMesh("aside", g, nil)
	aside.World = mgl32.Translate3D(20, 0, 0)

	scene := &ObjectList{Objects: []*Object{far, aside, hidden, near}}
	hits := Raycast(scene, Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}})

	require.Len(t, hits, 2)
	assert.Same(t, near, hits[0].Object)
	assert.InDelta(t, 8, hits[0].Distance, 1e-4)
	assert.Equal(t, 0, hits[0].Face)
	assert.Same(t, far, hits[1].Object)
}

func TestScreenToRayThroughCenter(t *testing.T) {
	cam := testCamera()
	ray := cam.ScreenToRay(400, 300, 800, 600)

	assert.InDelta(t, 1, ray.Direction.Len(), 1e-4)
	assert.InDelta(t, -1, ray.Direction.Z(), 1e-3)

	hits := Raycast(&ObjectList{Objects: []*Object{NewMesh("tri", triangleGeometry("tri"), nil)}}, ray)
	assert.Len(t, hits, 1)
}
