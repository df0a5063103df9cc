package renderer

import (
	"math"
	"strings"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/handle"

	"github.com/go-gl/mathgl/mgl32"
)

// DirtyFlags marks which CPU-side attributes changed since the last upload.
type DirtyFlags uint16

const (
	DirtyVertices DirtyFlags = 1 << iota
	DirtyColors
	DirtyNormals
	DirtyUVs
	DirtyTangents
	DirtyElements
	DirtyMorphTargets
	DirtySkin
	DirtyCustomAttributes

	DirtyNone DirtyFlags = 0
	DirtyAll             = DirtyVertices | DirtyColors | DirtyNormals | DirtyUVs | DirtyTangents |
		DirtyElements | DirtyMorphTargets | DirtySkin | DirtyCustomAttributes
)

var dirtyNames = []string{"vertices", "colors", "normals", "uvs", "tangents", "elements", "morphTargets", "skin", "custom"}

func (f DirtyFlags) Has(flag DirtyFlags) bool { return f&flag == flag }

func (f DirtyFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for i, n := range dirtyNames {
		if f&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// Face is one triangle of a Geometry. Optional per-vertex data holds exactly
// three entries when present.
type Face struct {
	A, B, C        int
	Normal         mgl32.Vec3
	VertexNormals  []mgl32.Vec3
	Color          mgl32.Vec3
	VertexColors   []mgl32.Vec3
	VertexTangents []mgl32.Vec4
	MaterialIndex  int
}

func (f Face) index(corner int) int {
	switch corner {
	case 0:
		return f.A
	case 1:
		return f.B
	default:
		return f.C
	}
}

type MorphTarget struct {
	Name     string
	Vertices []mgl32.Vec3
}

// CustomAttribute is a per-vertex attribute declared by a shader material.
type CustomAttribute struct {
	Name   string
	Size   int       // components per vertex, 1 to 4
	Values []float32 // Size values per geometry vertex
}

// Geometry is CPU-side triangle mesh data. The renderer splits it into
// GeometryGroups on first use; after that, authors mutate the arrays and set
// the matching dirty flag.
type Geometry struct {
	// HOT DATA - read on every upload
	Vertices     []mgl32.Vec3
	Faces        []Face
	FaceUVs      [][3]mgl32.Vec2 // aligned with Faces
	FaceUVs2     [][3]mgl32.Vec2 // aligned with Faces, lightmap channel
	Colors       []mgl32.Vec3    // per vertex, used when faces carry no vertex colors
	SkinIndices  []mgl32.Vec4
	SkinWeights  []mgl32.Vec4
	MorphTargets []MorphTarget
	MorphNormals [][]mgl32.Vec3 // per target, per vertex
	Custom       []*CustomAttribute
	Dirty        DirtyFlags
	Dynamic      bool // upload with DynamicDraw

	// COLD DATA
	Name string

	id             handle.Handle
	groups         []*GeometryGroup
	groupsPerFace  bool
	boundingCenter mgl32.Vec3
	boundingRadius float32
	boundsValid    bool
}

// NewGeometry returns a geometry with every attribute marked dirty.
func NewGeometry(name string) *Geometry {
	return &Geometry{Name: name, Dirty: DirtyAll}
}

func (g *Geometry) MarkDirty(flags DirtyFlags) {
	g.Dirty |= flags
	if flags.Has(DirtyVertices) {
		g.boundsValid = false
	}
}

// Pending reports every flag not yet uploaded, including ones handed to
// groups whose upload has not succeeded.
func (g *Geometry) Pending() DirtyFlags {
	f := g.Dirty
	for _, grp := range g.groups {
		f |= grp.dirty
	}
	return f
}

// Groups returns the groups built for this geometry, nil before the renderer
// first touches it.
func (g *Geometry) Groups() []*GeometryGroup { return g.groups }

func (g *Geometry) HasTangents() bool {
	for _, f := range g.Faces {
		if len(f.VertexTangents) == 3 {
			return true
		}
	}
	return false
}

func (g *Geometry) hasVertexColors() bool {
	if len(g.Colors) > 0 {
		return true
	}
	for _, f := range g.Faces {
		if len(f.VertexColors) == 3 {
			return true
		}
	}
	return false
}

func (g *Geometry) hasSkin() bool {
	return len(g.SkinIndices) > 0 && len(g.SkinWeights) > 0
}

// ComputeFaceNormals sets each face normal from its winding.
func (g *Geometry) ComputeFaceNormals() {
	for i := range g.Faces {
		f := &g.Faces[i]
		if f.A >= len(g.Vertices) || f.B >= len(g.Vertices) || f.C >= len(g.Vertices) {
			continue
		}
		a, b, c := g.Vertices[f.A], g.Vertices[f.B], g.Vertices[f.C]
		n := c.Sub(b).Cross(a.Sub(b))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		f.Normal = n
	}
	g.MarkDirty(DirtyNormals)
}

// BoundingSphere returns a sphere around the vertices, centered on the
// bounding box center.
func (g *Geometry) BoundingSphere() (mgl32.Vec3, float32) {
	if g.boundsValid {
		return g.boundingCenter, g.boundingRadius
	}
	g.boundingCenter, g.boundingRadius = boundingSphere(g.Vertices)
	g.boundsValid = true
	return g.boundingCenter, g.boundingRadius
}

func boundingSphere(points []mgl32.Vec3) (mgl32.Vec3, float32) {
	if len(points) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = float32(math.Min(float64(lo[k]), float64(p[k])))
			hi[k] = float32(math.Max(float64(hi[k]), float64(p[k])))
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var r2 float32
	for _, p := range points {
		if d := p.Sub(center).LenSqr(); d > r2 {
			r2 = d
		}
	}
	return center, float32(math.Sqrt(float64(r2)))
}

// LineGeometry is a non-indexed vertex list drawn as lines or points.
type LineGeometry struct {
	Vertices []mgl32.Vec3
	Colors   []mgl32.Vec3
	Mode     gpu.Primitive // Lines, LineStrip or Points
	Dirty    DirtyFlags
	Dynamic  bool
	Name     string

	id             handle.Handle
	group          *GeometryGroup
	boundingCenter mgl32.Vec3
	boundingRadius float32
	boundsValid    bool
}

func NewLineGeometry(name string, mode gpu.Primitive) *LineGeometry {
	return &LineGeometry{Name: name, Mode: mode, Dirty: DirtyAll}
}

func (l *LineGeometry) MarkDirty(flags DirtyFlags) {
	l.Dirty |= flags
	if flags.Has(DirtyVertices) {
		l.boundsValid = false
	}
}

func (l *LineGeometry) Pending() DirtyFlags {
	f := l.Dirty
	if l.group != nil {
		f |= l.group.dirty
	}
	return f
}

func (l *LineGeometry) BoundingSphere() (mgl32.Vec3, float32) {
	if !l.boundsValid {
		l.boundingCenter, l.boundingRadius = boundingSphere(l.Vertices)
		l.boundsValid = true
	}
	return l.boundingCenter, l.boundingRadius
}
