package loader

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Gopher3DCore/internal/gpu/gputest"
	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestParseOBJTriangulatesQuads(t *testing.T) {
	model, err := ParseOBJ(strings.NewReader(quadOBJ), "", Options{})
	require.NoError(t, err)

	g := model.Geometry
	assert.Len(t, g.Vertices, 4)
	require.Len(t, g.Faces, 2)
	assert.Equal(t, [3]int{0, 1, 2}, [3]int{g.Faces[0].A, g.Faces[0].B, g.Faces[0].C})
	assert.Equal(t, [3]int{0, 2, 3}, [3]int{g.Faces[1].A, g.Faces[1].B, g.Faces[1].C})
	require.Len(t, g.FaceUVs, 2)
	assert.Equal(t, mgl32.Vec2{1, 1}, g.FaceUVs[1][1])
	assert.Equal(t, []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}, g.Faces[0].VertexNormals)
	assert.InDelta(t, 1, g.Faces[0].Normal.Z(), 1e-6)

	// Faces without usemtl get one default material.
	require.Len(t, model.Materials, 1)
	assert.Equal(t, "default", model.Materials[0].Name)
}

func TestParseOBJFanTriangulatesPolygons(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 2 1 0\nv 1 2 0\nv 0 1 0\nf 1 2 3 4 5\n"
	model, err := ParseOBJ(strings.NewReader(src), "", Options{})
	require.NoError(t, err)

	g := model.Geometry
	require.Len(t, g.Faces, 3)
	for _, f := range g.Faces {
		assert.Equal(t, 0, f.A)
	}
	assert.Nil(t, g.FaceUVs)
	assert.Nil(t, g.Faces[0].VertexNormals)
}

func TestParseOBJNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	model, err := ParseOBJ(strings.NewReader(src), "", Options{})
	require.NoError(t, err)
	require.Len(t, model.Geometry.Faces, 1)
	f := model.Geometry.Faces[0]
	assert.Equal(t, [3]int{0, 1, 2}, [3]int{f.A, f.B, f.C})
}

func TestParseOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"index out of range", "v 0 0 0\nv 1 0 0\nf 1 2 3\n", "vertex index 3 out of range"},
		{"zero index", "v 0 0 0\nf 0 1 1\n", "out of range"},
		{"bad vertex", "v 0 x 0\n", "invalid vertex value"},
		{"short face", "v 0 0 0\nf 1 1\n", "at least 3 corners"},
		{"bad normal ref", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1//1 2//1 3//1\n", "normal index 1 out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tt.src), "", Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "line ")
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOBJWithMaterials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scene.mtl", `newmtl red
Kd 1 0 0
newmtl shiny
Kd 0 0 1
Ks 1 1 1
Ns 64
d 0.5
`)
	path := writeFile(t, dir, "scene.obj", `mtllib scene.mtl
v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
usemtl shiny
f 1 2 3
usemtl red
f 2 4 3
usemtl shiny
f 1 2 4
usemtl missing
f 1 3 4
`)

	model, err := LoadOBJ(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, model.SourcePath)
	assert.Equal(t, "scene.obj", model.Geometry.Name)

	require.Len(t, model.Materials, 3)
	shiny, red, missing := model.Materials[0], model.Materials[1], model.Materials[2]
	assert.Equal(t, "shiny", shiny.Name)
	assert.Equal(t, renderer.PhongMaterial, shiny.Kind)
	assert.Equal(t, float32(64), shiny.Shininess)
	assert.Equal(t, float32(0.5), shiny.Opacity)
	assert.True(t, shiny.Transparent)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, red.Color)
	assert.Equal(t, renderer.LambertMaterial, red.Kind)
	assert.False(t, red.Transparent)
	assert.Equal(t, "missing", missing.Name)

	var indices []int
	for _, f := range model.Geometry.Faces {
		indices = append(indices, f.MaterialIndex)
	}
	assert.Equal(t, []int{0, 1, 0, 2}, indices)

	node := model.Node("scene")
	assert.Equal(t, model.Materials, node.Object.Materials)
}

func TestLoadOBJMissingLibraryFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.obj", "mtllib nope.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl a\nf 1 2 3\n")
	model, err := LoadOBJ(path, Options{})
	require.NoError(t, err)
	require.Len(t, model.Materials, 1)
	assert.Equal(t, renderer.LambertMaterial, model.Materials[0].Kind)

	node := model.Node("m")
	assert.Same(t, model.Materials[0], node.Object.Material)
}

func TestLoadOBJMissingFile(t *testing.T) {
	_, err := LoadOBJ(filepath.Join(t.TempDir(), "none.obj"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseMaterialsLoadsTextureMaps(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "albedo.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	tm := renderer.NewTextureManager(gputest.New())
	mats, err := ParseMaterials(strings.NewReader("newmtl wood\nTr 0.25\nmap_Kd -s 1 1 1 albedo.png\n"), dir, tm)
	require.NoError(t, err)

	wood := mats["wood"]
	require.NotNil(t, wood)
	require.NotNil(t, wood.Map)
	assert.Equal(t, float32(0.75), wood.Opacity)
	assert.Equal(t, 1, tm.GetStats().CacheMisses)

	// Without a manager texture maps are skipped.
	mats, err = ParseMaterials(strings.NewReader("newmtl wood\nmap_Kd albedo.png\n"), dir, nil)
	require.NoError(t, err)
	assert.Nil(t, mats["wood"].Map)
}

func TestRecalculateNormalsSmoothsSharedVertices(t *testing.T) {
	model, err := ParseOBJ(strings.NewReader(quadOBJ), "", Options{RecalculateNormals: true})
	require.NoError(t, err)
	g := model.Geometry
	for _, f := range g.Faces {
		for _, n := range f.VertexNormals {
			assert.InDelta(t, 1, n.Z(), 1e-6)
		}
	}
	assert.True(t, g.Pending().Has(renderer.DirtyNormals))
}
