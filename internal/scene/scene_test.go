package scene

import (
	"testing"

	"Gopher3DCore/internal/gpu/gputest"
	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle() *renderer.Geometry {
	g := renderer.NewGeometry("tri")
	g.Vertices = []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}
	g.Faces = []renderer.Face{{A: 0, B: 1, C: 2, Normal: mgl32.Vec3{0, 0, 1}}}
	return g
}

func vecInDelta(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d of %v", i, got)
	}
}

func TestLocalMatrixIsTRS(t *testing.T) {
	n := NewNode("n")
	n.SetPosition(10, 0, 0)
	n.Rotate(0, 90, 0)
	n.SetScale(2, 2, 2)

	s := New()
	s.Add(n)
	s.UpdateWorld()

	// Scale first, then rotate +X onto -Z, then translate.
	p := n.World().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	vecInDelta(t, mgl32.Vec3{10, 0, -2}, p)
}

func TestChildInheritsParentTransform(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(0, 5, 0)
	parent.SetScale(2, 2, 2)
	child := NewMeshNode("child", triangle(), renderer.NewMaterial(renderer.BasicMaterial, "basic"))
	child.SetPosition(1, 0, 0)
	parent.Add(child)

	s := New()
	s.Add(parent)
	s.UpdateWorld()

	vecInDelta(t, mgl32.Vec3{2, 5, 0}, child.WorldPosition())
	assert.Equal(t, child.World(), child.Object.World)
}

func TestReparentDetachesFromOldParent(t *testing.T) {
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	a.Add(c)
	b.Add(c)

	assert.Empty(t, a.Children())
	assert.Equal(t, []*Node{c}, b.Children())
	assert.Same(t, b, c.Parent())

	s := New()
	s.Add(a, b)
	assert.Same(t, c, s.Find("c"))
	assert.True(t, s.Remove(c))
	assert.Nil(t, s.Find("c"))
	assert.False(t, s.Remove(c))
}

func TestVisitVisibleSkipsHiddenSubtrees(t *testing.T) {
	g := triangle()
	m := renderer.NewMaterial(renderer.BasicMaterial, "basic")
	group := NewNode("group")
	inner := NewMeshNode("inner", g, m)
	group.Add(inner)
	outer := NewMeshNode("outer", g, m)
	hiddenObject := NewMeshNode("hiddenObject", g, m)
	hiddenObject.Object.Visible = false

	s := New()
	s.Add(group, outer, hiddenObject)

	var names []string
	s.VisitVisible(func(o *renderer.Object) { names = append(names, o.Name) })
	assert.Equal(t, []string{"inner", "outer"}, names)

	group.Visible = false
	names = names[:0]
	s.VisitVisible(func(o *renderer.Object) { names = append(names, o.Name) })
	assert.Equal(t, []string{"outer"}, names)

	assert.Len(t, s.Objects(), 3)
}

func TestLightsFollowNodes(t *testing.T) {
	rig := NewNode("rig")
	rig.SetPosition(0, 10, 0)
	spot := renderer.NewSpotLight(mgl32.Vec3{1, 1, 1}, 1, 0, 0.5, 1)
	lamp := NewLightNode("lamp", spot)
	lamp.SetPosition(3, 0, 0)
	rig.Add(lamp)
	target := NewNode("target")
	target.SetPosition(3, 0, -4)
	lamp.Target = target

	s := New()
	s.Add(rig, target)
	s.UpdateWorld()

	require.Equal(t, []*renderer.Light{spot}, s.Lights())
	vecInDelta(t, mgl32.Vec3{3, 10, 0}, spot.Position)
	vecInDelta(t, mgl32.Vec3{3, 0, -4}, spot.Target)
	assert.True(t, spot.Visible)
	assert.Equal(t, "lamp", spot.Name)

	rig.Visible = false
	s.UpdateWorld()
	assert.False(t, spot.Visible)
	assert.Len(t, s.Lights(), 1)
}

func TestSceneRendersThroughRenderer(t *testing.T) {
	dev := gputest.New()
	r, err := renderer.New(dev, nil, nil)
	require.NoError(t, err)

	s := New()
	mesh := NewMeshNode("tri", triangle(), renderer.NewMaterial(renderer.LambertMaterial, "lambert"))
	s.Add(mesh, NewLightNode("sun", renderer.NewDirectionalLight(mgl32.Vec3{1, 1, 1}, 1)))
	s.SceneFog = renderer.NewLinearFog(mgl32.Vec3{0.5, 0.5, 0.5}, 1, 100)
	s.UpdateWorld()

	cam := renderer.NewPerspectiveCamera(45, 1, 0.1, 100)
	cam.Position = mgl32.Vec3{0, 0, 10}
	cam.LookAt(mgl32.Vec3{})
	r.Render(s, cam)

	assert.Len(t, dev.Draws, 1)
	assert.Equal(t, 1, r.Lights().Directional.Length)
	assert.Equal(t, 1, r.Info().Compiles)
}
