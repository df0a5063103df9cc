package renderer

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray represents a ray in 3D space
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point t units along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is one object struck by a ray.
type Hit struct {
	Object   *Object
	Distance float32
	Point    mgl32.Vec3
	// Face is the index of the struck triangle, -1 for lines.
	Face int
}

// RayIntersectSphere tests if a ray intersects a sphere
// Returns: (intersected, distance, intersection point)
func RayIntersectSphere(ray Ray, center mgl32.Vec3, radius float32) (bool, float32, mgl32.Vec3) {
	oc := ray.Origin.Sub(center)
	a := ray.Direction.Dot(ray.Direction)
	b := 2 * oc.Dot(ray.Direction)
	c := oc.Dot(oc) - radius*radius

	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return false, 0, mgl32.Vec3{}
	}
	sq := float32(math.Sqrt(float64(disc)))
	t1 := (-b - sq) / (2 * a)
	t2 := (-b + sq) / (2 * a)

	// Smallest non-negative root; an origin inside the sphere hits at t2.
	t := t1
	if t < 0 {
		t = t2
	}
	if t < 0 {
		return false, 0, mgl32.Vec3{}
	}
	return true, t, ray.At(t)
}

// RayIntersectTriangle tests if a ray intersects a triangle
// Returns: (intersected, distance, intersection point)
// Uses Möller-Trumbore algorithm
func RayIntersectTriangle(ray Ray, v0, v1, v2 mgl32.Vec3) (bool, float32, mgl32.Vec3) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return false, 0, mgl32.Vec3{} // parallel
	}

	f := 1 / a
	s := ray.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return false, 0, mgl32.Vec3{}
	}
	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return false, 0, mgl32.Vec3{}
	}

	t := f * edge2.Dot(q)
	if t <= epsilon {
		return false, 0, mgl32.Vec3{}
	}
	return true, t, ray.At(t)
}

// ScreenToRay converts a window pixel to a world space ray through it.
func (c *Camera) ScreenToRay(screenX, screenY float32, windowWidth, windowHeight int) Ray {
	ndcX := 2*screenX/float32(windowWidth) - 1
	ndcY := 1 - 2*screenY/float32(windowHeight)
	near := c.Unproject(mgl32.Vec3{ndcX, ndcY, -1})
	far := c.Unproject(mgl32.Vec3{ndcX, ndcY, 1})
	dir := far.Sub(near)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: near, Direction: dir}
}

// Raycast returns every visible object the ray strikes, nearest first.
// Meshes are tested per triangle after a bounding sphere check; lines are
// tested against their bounding sphere only.
func Raycast(scene SceneGraph, ray Ray) []Hit {
	var hits []Hit
	scene.VisitVisible(func(obj *Object) {
		if obj.Geometry == nil && obj.Lines == nil {
			return
		}
		center, radius := obj.WorldSphere()
		ok, dist, point := RayIntersectSphere(ray, center, radius)
		if !ok {
			return
		}
		if obj.Geometry == nil {
			hits = append(hits, Hit{Object: obj, Distance: dist, Point: point, Face: -1})
			return
		}
		if hit, found := raycastMesh(obj, ray); found {
			hits = append(hits, hit)
		}
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

func raycastMesh(obj *Object, ray Ray) (Hit, bool) {
	g := obj.Geometry
	best := Hit{Face: -1}
	found := false
	for i, f := range g.Faces {
		if f.A >= len(g.Vertices) || f.B >= len(g.Vertices) || f.C >= len(g.Vertices) {
			continue
		}
		a := obj.World.Mul4x1(g.Vertices[f.A].Vec4(1)).Vec3()
		b := obj.World.Mul4x1(g.Vertices[f.B].Vec4(1)).Vec3()
		c := obj.World.Mul4x1(g.Vertices[f.C].Vec4(1)).Vec3()
		ok, dist, point := RayIntersectTriangle(ray, a, b, c)
		if ok && (!found || dist < best.Distance) {
			best = Hit{Object: obj, Distance: dist, Point: point, Face: i}
			found = true
		}
	}
	return best, found
}
