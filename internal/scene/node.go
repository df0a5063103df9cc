package scene

import (
	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is a transform in the scene tree. It may carry a drawable object or
// a light; both follow the node's world transform.
type Node struct {
	Name     string
	Position mgl32.Vec3 // Position relative to the parent
	Scale    mgl32.Vec3 // Scale factors
	Rotation mgl32.Quat // Rotation quaternion
	Visible  bool

	Object *renderer.Object
	Light  *renderer.Light
	// Target, when set, is where a light node aims.
	Target *Node

	parent   *Node
	children []*Node
	local    mgl32.Mat4
	world    mgl32.Mat4
}

// NewNode returns an empty, visible node at the origin.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Scale:    mgl32.Vec3{1, 1, 1},
		Rotation: mgl32.QuatIdent(),
		Visible:  true,
		local:    mgl32.Ident4(),
		world:    mgl32.Ident4(),
	}
}

func NewMeshNode(name string, g *renderer.Geometry, m *renderer.Material) *Node {
	n := NewNode(name)
	n.Object = renderer.NewMesh(name, g, m)
	return n
}

// NewMultiMaterialNode draws each face with materials[face.MaterialIndex].
func NewMultiMaterialNode(name string, g *renderer.Geometry, materials []*renderer.Material) *Node {
	n := NewNode(name)
	var first *renderer.Material
	if len(materials) > 0 {
		first = materials[0]
	}
	n.Object = renderer.NewMesh(name, g, first)
	n.Object.Materials = materials
	return n
}

func NewLineNode(name string, l *renderer.LineGeometry, m *renderer.Material) *Node {
	n := NewNode(name)
	n.Object = renderer.NewLine(name, l, m)
	return n
}

func NewLightNode(name string, l *renderer.Light) *Node {
	n := NewNode(name)
	n.Light = l
	n.Position = l.Position
	l.Name = name
	return n
}

func (n *Node) X() float32 { return n.Position[0] }
func (n *Node) Y() float32 { return n.Position[1] }
func (n *Node) Z() float32 { return n.Position[2] }

// Rotate applies rotations in degrees about X, then Y, then Z on top of the
// current rotation.
func (n *Node) Rotate(angleX, angleY, angleZ float32) {
	if n.Rotation == (mgl32.Quat{}) {
		n.Rotation = mgl32.QuatIdent()
	}
	rotationX := mgl32.QuatRotate(mgl32.DegToRad(angleX), mgl32.Vec3{1, 0, 0})
	rotationY := mgl32.QuatRotate(mgl32.DegToRad(angleY), mgl32.Vec3{0, 1, 0})
	rotationZ := mgl32.QuatRotate(mgl32.DegToRad(angleZ), mgl32.Vec3{0, 0, 1})
	n.Rotation = n.Rotation.Mul(rotationX).Mul(rotationY).Mul(rotationZ)
}

// SetPosition sets the position of the node
func (n *Node) SetPosition(x, y, z float32) {
	n.Position = mgl32.Vec3{x, y, z}
}

func (n *Node) SetScale(x, y, z float32) {
	n.Scale = mgl32.Vec3{x, y, z}
}

// Add makes child a child of n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child from n. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }
func (n *Node) World() mgl32.Mat4 { return n.world }
func (n *Node) Local() mgl32.Mat4 { return n.local }

func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.world.Col(3).Vec3()
}

// Find returns the first node named name in n's subtree, n included.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Traverse calls fn for n and its descendants depth first. Returning false
// skips the node's children.
func (n *Node) Traverse(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// updateLocal rebuilds the local matrix as translation * rotation * scale.
func (n *Node) updateLocal() {
	scaleMatrix := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	rotationMatrix := n.Rotation.Mat4()
	translationMatrix := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	n.local = translationMatrix.Mul4(rotationMatrix).Mul4(scaleMatrix)
}

// updateWorld resolves the world matrix of n and its subtree. Fields set
// directly (Position, Scale, Rotation) are always picked up.
func (n *Node) updateWorld(parent mgl32.Mat4, visible bool) {
	n.updateLocal()
	n.world = parent.Mul4(n.local)
	visible = visible && n.Visible
	if n.Object != nil {
		n.Object.World = n.world
	}
	if n.Light != nil {
		n.Light.Position = n.WorldPosition()
		n.Light.Visible = visible
	}
	for _, c := range n.children {
		c.updateWorld(n.world, visible)
	}
}
