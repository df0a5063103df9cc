package loader

import (
	"errors"
	"math"

	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// cubeSides lists each cube side as (normal, u, v) with u x v = normal, so
// corners walked -u-v, +u-v, +u+v, -u+v wind counter-clockwise from outside.
var cubeSides = [6][3]mgl32.Vec3{
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
}

var quadUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// appendQuad adds two triangles over corners 0..3 of a quad.
func appendQuad(g *renderer.Geometry, corners [4]mgl32.Vec3, normal mgl32.Vec3, color mgl32.Vec3) {
	base := len(g.Vertices)
	g.Vertices = append(g.Vertices, corners[:]...)
	g.Faces = append(g.Faces,
		renderer.Face{A: base, B: base + 1, C: base + 2, Normal: normal, Color: color},
		renderer.Face{A: base, B: base + 2, C: base + 3, Normal: normal, Color: color},
	)
	g.FaceUVs = append(g.FaceUVs,
		[3]mgl32.Vec2{quadUVs[0], quadUVs[1], quadUVs[2]},
		[3]mgl32.Vec2{quadUVs[0], quadUVs[2], quadUVs[3]},
	)
}

func cubeSideCorners(center mgl32.Vec3, side [3]mgl32.Vec3, halfSize float32) [4]mgl32.Vec3 {
	n, u, v := side[0].Mul(halfSize), side[1].Mul(halfSize), side[2].Mul(halfSize)
	c := center.Add(n)
	return [4]mgl32.Vec3{
		c.Sub(u).Sub(v),
		c.Add(u).Sub(v),
		c.Add(u).Add(v),
		c.Sub(u).Add(v),
	}
}

// CreateCubeGeometry returns a cube centered on the origin with its own
// vertices per side, so every side has a flat normal and full UVs.
func CreateCubeGeometry(size float32) *renderer.Geometry {
	g := renderer.NewGeometry("Cube")
	halfSize := size * 0.5
	for _, side := range cubeSides {
		appendQuad(g, cubeSideCorners(mgl32.Vec3{}, side, halfSize), side[0], mgl32.Vec3{1, 1, 1})
	}
	return g
}

// CreateSphereGeometry returns a UV sphere with smooth vertex normals.
func CreateSphereGeometry(radius float32, segments int) *renderer.Geometry {
	g := renderer.NewGeometry("Sphere")
	if segments < 3 {
		segments = 3
	}
	var normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	for i := 0; i <= segments; i++ {
		lat := float64(i) * math.Pi / float64(segments)
		for j := 0; j <= segments; j++ {
			lon := float64(j) * 2 * math.Pi / float64(segments)
			n := mgl32.Vec3{
				float32(math.Sin(lat) * math.Cos(lon)),
				float32(math.Cos(lat)),
				float32(math.Sin(lat) * math.Sin(lon)),
			}
			g.Vertices = append(g.Vertices, n.Mul(radius))
			normals = append(normals, n)
			uvs = append(uvs, mgl32.Vec2{float32(j) / float32(segments), 1 - float32(i)/float32(segments)})
		}
	}

	addTri := func(a, b, c int) {
		g.Faces = append(g.Faces, renderer.Face{
			A: a, B: b, C: c,
			VertexNormals: []mgl32.Vec3{normals[a], normals[b], normals[c]},
		})
		g.FaceUVs = append(g.FaceUVs, [3]mgl32.Vec2{uvs[a], uvs[b], uvs[c]})
	}
	for i := 0; i < segments; i++ {
		for j := 0; j < segments; j++ {
			first := i*(segments+1) + j
			second := first + segments + 1
			// The pole rows collapse one triangle of each quad.
			if i != 0 {
				addTri(first, first+1, second)
			}
			if i != segments-1 {
				addTri(second, first+1, second+1)
			}
		}
	}
	g.ComputeFaceNormals()
	return g
}

// heightFunc returns the surface height at grid cell (x, z).
type heightFunc func(x, z int) float32

func flat(int, int) float32 { return 0 }

// gridGeometry builds a gridSize x gridSize vertex grid on the XZ plane
// facing +Y, with UVs spanning the whole grid.
func gridGeometry(name string, gridSize int, spacing float32, height heightFunc) (*renderer.Geometry, error) {
	if gridSize < 2 {
		return nil, errors.New("grid needs at least 2 vertices per side")
	}
	g := renderer.NewGeometry(name)
	g.Vertices = make([]mgl32.Vec3, 0, gridSize*gridSize)
	uvs := make([]mgl32.Vec2, 0, gridSize*gridSize)
	offset := float32(gridSize-1) * spacing / 2
	step := 1 / float32(gridSize-1)
	for x := 0; x < gridSize; x++ {
		for z := 0; z < gridSize; z++ {
			g.Vertices = append(g.Vertices, mgl32.Vec3{
				float32(x)*spacing - offset,
				height(x, z),
				float32(z)*spacing - offset,
			})
			uvs = append(uvs, mgl32.Vec2{float32(x) * step, float32(z) * step})
		}
	}

	cells := (gridSize - 1) * (gridSize - 1)
	g.Faces = make([]renderer.Face, 0, cells*2)
	g.FaceUVs = make([][3]mgl32.Vec2, 0, cells*2)
	for x := 0; x < gridSize-1; x++ {
		for z := 0; z < gridSize-1; z++ {
			topLeft := x*gridSize + z
			topRight := topLeft + 1
			bottomLeft := (x+1)*gridSize + z
			bottomRight := bottomLeft + 1
			g.Faces = append(g.Faces,
				renderer.Face{A: topLeft, B: topRight, C: bottomRight},
				renderer.Face{A: topLeft, B: bottomRight, C: bottomLeft},
			)
			g.FaceUVs = append(g.FaceUVs,
				[3]mgl32.Vec2{uvs[topLeft], uvs[topRight], uvs[bottomRight]},
				[3]mgl32.Vec2{uvs[topLeft], uvs[bottomRight], uvs[bottomLeft]},
			)
		}
	}
	g.ComputeFaceNormals()
	return g, nil
}

// LoadPlane creates a flat grid of gridSize x gridSize vertices spaced
// spacing apart, centered on the origin.
func LoadPlane(gridSize int, spacing float32) (*renderer.Geometry, error) {
	return gridGeometry("Plane", gridSize, spacing, flat)
}
