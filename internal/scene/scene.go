// Package scene is a small transform hierarchy that feeds the renderer. It
// resolves world matrices and light positions once per frame and exposes
// the result through renderer.SceneGraph.
package scene

import (
	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the root of a node tree plus scene-wide render settings.
type Scene struct {
	root *Node

	// SceneFog, when set, is applied to every material that accepts fog.
	SceneFog *renderer.Fog
	// Override replaces every object's material when set.
	Override *renderer.Material

	lights []*renderer.Light
}

func New() *Scene {
	return &Scene{root: NewNode("root")}
}

func (s *Scene) Root() *Node { return s.root }

// Add attaches nodes to the root.
func (s *Scene) Add(nodes ...*Node) {
	for _, n := range nodes {
		s.root.Add(n)
	}
}

// Remove detaches n from wherever it sits in the tree.
func (s *Scene) Remove(n *Node) bool {
	if n == nil || n.parent == nil {
		return false
	}
	return n.parent.Remove(n)
}

func (s *Scene) Find(name string) *Node { return s.root.Find(name) }

// UpdateWorld resolves every world matrix, copies it into the node's object,
// and moves lights to their node positions. Hidden subtrees hide their
// lights. Call it once per frame before rendering.
func (s *Scene) UpdateWorld() {
	s.root.updateWorld(mgl32.Ident4(), true)
	s.lights = s.lights[:0]
	s.root.Traverse(func(n *Node) bool {
		if n.Light == nil {
			return true
		}
		if n.Target != nil {
			n.Light.Target = n.Target.WorldPosition()
		}
		s.lights = append(s.lights, n.Light)
		return true
	})
}

// VisitVisible walks visible nodes in tree order. A hidden node hides its
// whole subtree.
func (s *Scene) VisitVisible(fn func(*renderer.Object)) {
	s.root.Traverse(func(n *Node) bool {
		if !n.Visible {
			return false
		}
		if n.Object != nil && n.Object.Visible {
			fn(n.Object)
		}
		return true
	})
}

// Lights returns the lights found by the last UpdateWorld.
func (s *Scene) Lights() []*renderer.Light { return s.lights }

func (s *Scene) Fog() *renderer.Fog { return s.SceneFog }

func (s *Scene) OverrideMaterial() *renderer.Material { return s.Override }

// Objects returns every object in the tree, hidden or not.
func (s *Scene) Objects() []*renderer.Object {
	var out []*renderer.Object
	s.root.Traverse(func(n *Node) bool {
		if n.Object != nil {
			out = append(out, n.Object)
		}
		return true
	})
	return out
}

var _ renderer.SceneGraph = (*Scene)(nil)
