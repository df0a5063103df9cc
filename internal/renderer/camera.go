// camera.go
package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CameraKind int

const (
	PerspectiveCamera CameraKind = iota
	OrthographicCamera
)

// MoveDirection is a camera-relative translation used by fly controls.
type MoveDirection int

const (
	MoveForward MoveDirection = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

type Camera struct {
	// HOT DATA - Accessed every frame for view/projection calculations
	Position   mgl32.Vec3 // Camera position in world space
	Front      mgl32.Vec3 // Forward direction vector
	Up         mgl32.Vec3 // Up direction vector
	Right      mgl32.Vec3 // Right direction vector
	Projection mgl32.Mat4 // Projection matrix
	Pitch      float32    // Pitch angle in degrees
	Yaw        float32    // Yaw angle in degrees

	// COLD DATA - Configuration and input handling, accessed less frequently
	Kind        CameraKind
	WorldUp     mgl32.Vec3 // World up vector (usually (0,1,0))
	Speed       float32    // Movement speed
	Sensitivity float32    // Mouse sensitivity
	Fov         float32    // Vertical field of view in degrees
	Near        float32    // Near clipping plane
	Far         float32    // Far clipping plane
	AspectRatio float32    // width / height

	// Orthographic volume, camera space
	OrthoLeft, OrthoRight float32
	OrthoTop, OrthoBottom float32

	InvertMouse bool

	// Identification
	Name string
}

type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

type Frustum struct {
	Planes [6]Plane
}

// NewDefaultCamera returns a fly camera sized for a width x height viewport.
func NewDefaultCamera(width, height int) *Camera {
	cam := NewPerspectiveCamera(45, float32(width)/float32(max(height, 1)), 0.1, 10000)
	cam.Position = mgl32.Vec3{1, 0, 100}
	cam.Speed = 70
	cam.Sensitivity = 0.1
	cam.InvertMouse = true
	return cam
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Kind:        PerspectiveCamera,
		Front:       mgl32.Vec3{0, 0, -1},
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Yaw:         -90,
		Fov:         fov,
		AspectRatio: aspect,
		Near:        near,
		Far:         far,
	}
	c.updateCameraVectors()
	c.UpdateProjection()
	return c
}

func NewOrthographicCamera(left, right, top, bottom, near, far float32) *Camera {
	c := &Camera{
		Kind:        OrthographicCamera,
		Front:       mgl32.Vec3{0, 0, -1},
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Yaw:         -90,
		Near:        near,
		Far:         far,
		AspectRatio: 1,
		OrthoLeft:   left,
		OrthoRight:  right,
		OrthoTop:    top,
		OrthoBottom: bottom,
	}
	c.updateCameraVectors()
	c.UpdateProjection()
	return c
}

func (c *Camera) UpdateProjection() {
	if c.Kind == OrthographicCamera {
		c.Projection = mgl32.Ortho(c.OrthoLeft, c.OrthoRight, c.OrthoBottom, c.OrthoTop, c.Near, c.Far)
		return
	}
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), c.AspectRatio, c.Near, c.Far)
}

// Setter methods that automatically update projection
func (c *Camera) SetNear(near float32) {
	c.Near = near
	c.UpdateProjection()
}

func (c *Camera) SetFar(far float32) {
	c.Far = far
	c.UpdateProjection()
}

func (c *Camera) SetFov(fov float32) {
	c.Fov = fov
	c.UpdateProjection()
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.GetViewMatrix())
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return c.Projection
}

// Move translates the camera along its own axes. Boost multiplies the speed
// by 2.5.
func (c *Camera) Move(dir MoveDirection, deltaTime float32, boost bool) {
	velocity := c.Speed * deltaTime
	if boost {
		velocity *= 2.5
	}
	switch dir {
	case MoveForward:
		c.Position = c.Position.Add(c.Front.Mul(velocity))
	case MoveBackward:
		c.Position = c.Position.Sub(c.Front.Mul(velocity))
	case MoveLeft:
		c.Position = c.Position.Sub(c.Right.Mul(velocity))
	case MoveRight:
		c.Position = c.Position.Add(c.Right.Mul(velocity))
	case MoveUp:
		c.Position = c.Position.Add(c.WorldUp.Mul(velocity))
	case MoveDown:
		c.Position = c.Position.Sub(c.WorldUp.Mul(velocity))
	}
}

func (c *Camera) ProcessMouseMovement(xoffset, yoffset float32, constrainPitch bool) {
	xoffset *= c.Sensitivity
	yoffset *= c.Sensitivity

	c.Yaw += xoffset

	if c.InvertMouse {
		c.Pitch -= yoffset
	} else {
		c.Pitch += yoffset
	}
	if constrainPitch {
		c.Pitch = mgl32.Clamp(c.Pitch, -89.0, 89.0) // Prevent extreme pitch values
	}
	c.updateCameraVectors()
}

// LookAt turns the camera towards target. Yaw and pitch follow so mouse
// look continues from the new orientation.
func (c *Camera) LookAt(target mgl32.Vec3) {
	direction := target.Sub(c.Position)
	if direction.Len() == 0 {
		return
	}
	direction = direction.Normalize()
	c.Yaw = mgl32.RadToDeg(float32(math.Atan2(float64(direction.Z()), float64(direction.X()))))
	c.Pitch = mgl32.RadToDeg(float32(math.Asin(float64(mgl32.Clamp(direction.Y(), -1, 1)))))
	c.setBasis(direction)
}

func (c *Camera) updateCameraVectors() {
	yawRad := mgl32.DegToRad(c.Yaw)
	pitchRad := mgl32.DegToRad(c.Pitch)

	front := mgl32.Vec3{
		float32(math.Cos(float64(yawRad)) * math.Cos(float64(pitchRad))),
		float32(math.Sin(float64(pitchRad))),
		float32(math.Sin(float64(yawRad)) * math.Cos(float64(pitchRad))),
	}
	c.setBasis(front)
}

// setBasis derives Right and Up from front. Looking straight along WorldUp
// falls back to a fixed reference axis.
func (c *Camera) setBasis(front mgl32.Vec3) {
	c.Front = front.Normalize()
	right := c.Front.Cross(c.WorldUp)
	if right.Len() < 1e-6 {
		right = c.Front.Cross(mgl32.Vec3{0, 0, -1})
	}
	c.Right = right.Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}

func (c *Camera) CalculateFrustum() Frustum {
	var frustum Frustum
	vp := c.GetViewProjection()

	// Left Plane
	frustum.Planes[0] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[0], vp[7] + vp[4], vp[11] + vp[8]},
		Distance: vp[15] + vp[12],
	}

	// Right Plane
	frustum.Planes[1] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[0], vp[7] - vp[4], vp[11] - vp[8]},
		Distance: vp[15] - vp[12],
	}

	// Bottom Plane
	frustum.Planes[2] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[1], vp[7] + vp[5], vp[11] + vp[9]},
		Distance: vp[15] + vp[13],
	}

	// Top Plane
	frustum.Planes[3] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[1], vp[7] - vp[5], vp[11] - vp[9]},
		Distance: vp[15] - vp[13],
	}

	// Near Plane
	frustum.Planes[4] = Plane{
		Normal:   mgl32.Vec3{vp[3] + vp[2], vp[7] + vp[6], vp[11] + vp[10]},
		Distance: vp[15] + vp[14],
	}

	// Far Plane
	frustum.Planes[5] = Plane{
		Normal:   mgl32.Vec3{vp[3] - vp[2], vp[7] - vp[6], vp[11] - vp[10]},
		Distance: vp[15] - vp[14],
	}

	// Normalize the planes
	for i := 0; i < 6; i++ {
		length := frustum.Planes[i].Normal.Len()
		frustum.Planes[i].Normal = frustum.Planes[i].Normal.Mul(1.0 / length)
		frustum.Planes[i].Distance /= length
	}

	return frustum
}

func (p *Plane) DistanceToPoint(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

func (f *Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(center) < -radius {
			return false // Sphere is outside the frustum
		}
	}
	return true
}

// Unproject maps a normalized device coordinate back to world space.
func (c *Camera) Unproject(ndc mgl32.Vec3) mgl32.Vec3 {
	inv := c.GetViewProjection().Inv()
	p := inv.Mul4x1(ndc.Vec4(1))
	if p.W() == 0 {
		return p.Vec3()
	}
	return p.Vec3().Mul(1 / p.W())
}

// ScreenToWorld returns the point on the near plane under a window pixel.
func (c *Camera) ScreenToWorld(screenPos mgl32.Vec2, windowWidth, windowHeight int) mgl32.Vec3 {
	ndcX := 2.0*screenPos.X()/float32(windowWidth) - 1.0
	ndcY := 1.0 - 2.0*screenPos.Y()/float32(windowHeight)
	return c.Unproject(mgl32.Vec3{ndcX, ndcY, -1})
}
