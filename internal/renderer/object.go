package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Object is a drawable scene node as the renderer sees it: world transform
// already resolved, exactly one of Geometry or Lines set.
type Object struct {
	// HOT DATA - read every frame
	World         mgl32.Mat4
	Geometry      *Geometry
	Lines         *LineGeometry
	Material      *Material
	Materials     []*Material // indexed by Face.MaterialIndex when set
	Visible       bool
	CastShadow    bool
	ReceiveShadow bool
	FrustumCulled bool

	Skeleton              *Skeleton
	MorphTargetInfluences []float32

	// CustomDepthMaterial replaces the built-in depth variant in shadow passes.
	CustomDepthMaterial *Material

	// COLD DATA
	Name string
	// RenderOrder breaks ties between objects at equal depth.
	RenderOrder int
}

// NewMesh returns a visible, culled mesh object with an identity transform.
func NewMesh(name string, g *Geometry, m *Material) *Object {
	return &Object{
		Name:          name,
		Geometry:      g,
		Material:      m,
		World:         mgl32.Ident4(),
		Visible:       true,
		FrustumCulled: true,
	}
}

// NewLine returns a line or point-cloud object.
func NewLine(name string, l *LineGeometry, m *Material) *Object {
	o := NewMesh(name, nil, m)
	o.Lines = l
	return o
}

// MaterialFor returns the material used for geometry group grp.
func (o *Object) MaterialFor(grp *GeometryGroup) *Material {
	if len(o.Materials) > 0 && grp != nil && grp.MaterialIndex >= 0 && grp.MaterialIndex < len(o.Materials) {
		return o.Materials[grp.MaterialIndex]
	}
	return o.Material
}

func (o *Object) usesFaceMaterials() bool { return len(o.Materials) > 0 }

func (o *Object) drawable() Drawable {
	if o.Lines != nil {
		return LineDrawable(o.Lines)
	}
	if o.Geometry != nil {
		return MeshDrawable(o.Geometry)
	}
	return nil
}

// WorldSphere is the bounding sphere transformed to world space. The radius
// scales by the largest axis scale of World.
func (o *Object) WorldSphere() (mgl32.Vec3, float32) {
	var center mgl32.Vec3
	var radius float32
	switch {
	case o.Geometry != nil:
		center, radius = o.Geometry.BoundingSphere()
	case o.Lines != nil:
		center, radius = o.Lines.BoundingSphere()
	}
	c := o.World.Mul4x1(center.Vec4(1)).Vec3()
	sx := o.World.Col(0).Vec3().Len()
	sy := o.World.Col(1).Vec3().Len()
	sz := o.World.Col(2).Vec3().Len()
	return c, radius * max(sx, sy, sz)
}

// Skeleton is a bone palette already multiplied into bone space.
type Skeleton struct {
	Bones []mgl32.Mat4
	// UseVertexTexture stores the palette in a float texture when the
	// device can sample textures in the vertex stage.
	UseVertexTexture bool
}

type FogKind int

const (
	LinearFog FogKind = iota
	ExpFog
)

type Fog struct {
	Kind    FogKind
	Color   mgl32.Vec3
	Near    float32
	Far     float32
	Density float32
}

func NewLinearFog(color mgl32.Vec3, near, far float32) *Fog {
	return &Fog{Kind: LinearFog, Color: color, Near: near, Far: far}
}

func NewExpFog(color mgl32.Vec3, density float32) *Fog {
	return &Fog{Kind: ExpFog, Color: color, Density: density}
}

// SceneGraph is what Render needs from a scene. World transforms must be
// current before Render is called.
type SceneGraph interface {
	// VisitVisible calls fn for each visible object in traversal order.
	VisitVisible(fn func(*Object))
	Lights() []*Light
	Fog() *Fog
	// OverrideMaterial, when non-nil, replaces every object's material.
	OverrideMaterial() *Material
}

// ObjectList is a flat SceneGraph, handy for tools and tests.
type ObjectList struct {
	Objects   []*Object
	LightList []*Light
	SceneFog  *Fog
	Override  *Material
}

func (s *ObjectList) VisitVisible(fn func(*Object)) {
	for _, o := range s.Objects {
		if o.Visible {
			fn(o)
		}
	}
}

func (s *ObjectList) Lights() []*Light            { return s.LightList }
func (s *ObjectList) Fog() *Fog                   { return s.SceneFog }
func (s *ObjectList) OverrideMaterial() *Material { return s.Override }
