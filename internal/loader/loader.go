package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"Gopher3DCore/internal/logger"
	"Gopher3DCore/internal/renderer"
	"Gopher3DCore/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Model is a loaded mesh with the materials its faces index into.
type Model struct {
	Geometry *renderer.Geometry
	// Materials is indexed by Face.MaterialIndex.
	Materials  []*renderer.Material
	SourcePath string
}

// Node wraps the model in a scene node. Models with several materials draw
// each face with its own material.
func (m *Model) Node(name string) *scene.Node {
	if len(m.Materials) > 1 {
		return scene.NewMultiMaterialNode(name, m.Geometry, m.Materials)
	}
	var mat *renderer.Material
	if len(m.Materials) == 1 {
		mat = m.Materials[0]
	}
	return scene.NewMeshNode(name, m.Geometry, mat)
}

// Options controls OBJ loading.
type Options struct {
	// RecalculateNormals replaces file normals with smoothed ones. Some
	// models have broken normals.
	RecalculateNormals bool
	// Textures loads map_Kd images. Texture maps are skipped when nil.
	Textures *renderer.TextureManager
}

// LoadOBJ reads a Wavefront OBJ file and any material library it names.
func LoadOBJ(path string, opts Options) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer file.Close()

	model, err := ParseOBJ(file, filepath.Dir(path), opts)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	model.SourcePath = path
	model.Geometry.Name = filepath.Base(path)

	logger.Log.Info("Model loaded",
		zap.String("path", path),
		zap.Int("vertices", len(model.Geometry.Vertices)),
		zap.Int("faces", len(model.Geometry.Faces)),
		zap.Int("materials", len(model.Materials)))
	return model, nil
}

// objState accumulates one OBJ parse.
type objState struct {
	opts Options
	dir  string

	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2

	library  map[string]*renderer.Material
	index    map[string]int
	current  int
	geometry *renderer.Geometry
	model    *Model
	hasUVs   bool
}

// ParseOBJ reads OBJ data from r. Material libraries are resolved relative
// to dir.
func ParseOBJ(r io.Reader, dir string, opts Options) (*Model, error) {
	st := &objState{
		opts:     opts,
		dir:      dir,
		index:    make(map[string]int),
		current:  -1,
		geometry: renderer.NewGeometry("obj"),
	}
	st.model = &Model{Geometry: st.geometry}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		if err := st.line(parts); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	g := st.geometry
	g.Vertices = st.positions
	if !st.hasUVs {
		g.FaceUVs = nil
	}
	g.ComputeFaceNormals()
	if opts.RecalculateNormals {
		RecalculateNormals(g)
	}
	return st.model, nil
}

func (st *objState) line(parts []string) error {
	switch parts[0] {
	case "v":
		vertex, err := parseVertex(parts[1:])
		if err != nil {
			return err
		}
		st.positions = append(st.positions, vertex)
	case "vn":
		normal, err := parseVertex(parts[1:])
		if err != nil {
			return err
		}
		st.normals = append(st.normals, normal)
	case "vt":
		texCoord, err := parseTextureCoordinate(parts[1:])
		if err != nil {
			return err
		}
		st.uvs = append(st.uvs, texCoord)
	case "f":
		faceVertices, err := parseFace(parts[1:], len(st.positions), len(st.uvs), len(st.normals))
		if err != nil {
			return err
		}
		st.addTriangles(faceVertices)
	case "mtllib":
		if len(parts) < 2 {
			return errors.New("mtllib without file name")
		}
		mtlPath := filepath.Join(st.dir, parts[1])
		materials, err := LoadMaterials(mtlPath, st.opts.Textures)
		if err != nil {
			// Geometry is still usable with default materials.
			logger.Log.Warn("Could not load material library", zap.String("path", mtlPath), zap.Error(err))
			return nil
		}
		if st.library == nil {
			st.library = materials
		} else {
			for name, m := range materials {
				st.library[name] = m
			}
		}
	case "usemtl":
		if len(parts) >= 2 {
			st.current = st.materialIndex(parts[1])
		}
	}
	return nil
}

// materialIndex returns the slot for name, appending it to the model on
// first use. Unknown names get a default material.
func (st *objState) materialIndex(name string) int {
	if i, ok := st.index[name]; ok {
		return i
	}
	m, ok := st.library[name]
	if !ok {
		logger.Log.Debug("Material not found", zap.String("material", name))
		m = renderer.NewMaterial(renderer.LambertMaterial, name)
	}
	st.index[name] = len(st.model.Materials)
	st.model.Materials = append(st.model.Materials, m)
	return st.index[name]
}

func (st *objState) addTriangles(fv []FaceVertex) {
	if st.current < 0 {
		st.current = st.materialIndex("default")
	}
	g := st.geometry
	for i := 0; i+2 < len(fv); i += 3 {
		tri := fv[i : i+3]
		face := renderer.Face{
			A:             int(tri[0].VertexIdx),
			B:             int(tri[1].VertexIdx),
			C:             int(tri[2].VertexIdx),
			MaterialIndex: st.current,
		}
		if tri[0].NormalIdx >= 0 && tri[1].NormalIdx >= 0 && tri[2].NormalIdx >= 0 {
			face.VertexNormals = []mgl32.Vec3{
				st.normals[tri[0].NormalIdx],
				st.normals[tri[1].NormalIdx],
				st.normals[tri[2].NormalIdx],
			}
		}
		var uv [3]mgl32.Vec2
		for k, v := range tri {
			if v.TexCoordIdx >= 0 {
				uv[k] = st.uvs[v.TexCoordIdx]
				st.hasUVs = true
			}
		}
		g.Faces = append(g.Faces, face)
		g.FaceUVs = append(g.FaceUVs, uv)
	}
}

// LoadMaterials loads material properties from a .mtl file. Materials with
// a specular term become phong, the rest lambert.
func LoadMaterials(filename string, textures *renderer.TextureManager) (map[string]*renderer.Material, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open material library: %w", err)
	}
	defer file.Close()
	return ParseMaterials(file, filepath.Dir(filename), textures)
}

// ParseMaterials reads MTL data from r. Texture paths are relative to dir.
func ParseMaterials(r io.Reader, dir string, textures *renderer.TextureManager) (map[string]*renderer.Material, error) {
	var currentMaterial *renderer.Material
	materials := make(map[string]*renderer.Material)
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				logger.Log.Warn("Malformed material line", zap.String("line", line))
				continue
			}
			currentMaterial = renderer.NewMaterial(renderer.LambertMaterial, fields[1])
			materials[fields[1]] = currentMaterial
			continue
		}
		if currentMaterial == nil {
			continue
		}

		switch fields[0] {
		case "Kd": // Diffuse color
			if len(fields) == 4 {
				currentMaterial.Color = parseColor(fields[1:])
			}
		case "Ka":
			if len(fields) == 4 {
				currentMaterial.Ambient = parseColor(fields[1:])
			}
		case "Ke":
			if len(fields) == 4 {
				currentMaterial.Emissive = parseColor(fields[1:])
			}
		case "Ks": // Specular color
			if len(fields) == 4 {
				currentMaterial.Specular = parseColor(fields[1:])
				currentMaterial.Kind = renderer.PhongMaterial
			}
		case "Ns": // Shininess
			if len(fields) == 2 {
				currentMaterial.Shininess = parseFloat(fields[1])
				currentMaterial.Kind = renderer.PhongMaterial
			}
		case "d": // Dissolve (alpha/opacity)
			if len(fields) == 2 {
				setOpacity(currentMaterial, parseFloat(fields[1]))
			}
		case "Tr":
			if len(fields) == 2 {
				setOpacity(currentMaterial, 1-parseFloat(fields[1]))
			}
		case "map_Kd": // Diffuse texture map
			// The path is the last field; earlier ones are options.
			texturePath := fields[len(fields)-1]
			if !filepath.IsAbs(texturePath) {
				texturePath = filepath.Join(dir, texturePath)
			}
			if textures == nil {
				logger.Log.Debug("Skipping texture map, no texture manager",
					zap.String("material", currentMaterial.Name),
					zap.String("path", texturePath))
				continue
			}
			tex, err := textures.Load(texturePath)
			if err != nil {
				logger.Log.Warn("Could not load texture map",
					zap.String("material", currentMaterial.Name),
					zap.Error(err))
				continue
			}
			currentMaterial.Map = tex
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func setOpacity(m *renderer.Material, opacity float32) {
	m.Opacity = opacity
	m.Transparent = opacity < 1
}

// parseColor parses RGB color components from a list of strings.
func parseColor(fields []string) mgl32.Vec3 {
	var color mgl32.Vec3
	for i, field := range fields[:3] {
		if val, err := strconv.ParseFloat(field, 32); err == nil {
			color[i] = float32(val)
		} else {
			logger.Log.Warn("Error parsing color component", zap.Error(err))
		}
	}
	return color
}

// parseFloat parses a single string to a float32.
func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		logger.Log.Warn("Error parsing material value", zap.String("value", s), zap.Error(err))
		return 0
	}
	return float32(f)
}

func parseVertex(parts []string) (mgl32.Vec3, error) {
	var vertex mgl32.Vec3
	if len(parts) < 3 {
		return vertex, fmt.Errorf("vertex needs 3 components, got %d", len(parts))
	}
	for i, part := range parts[:3] {
		val, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return vertex, fmt.Errorf("invalid vertex value %q: %w", part, err)
		}
		vertex[i] = float32(val)
	}
	return vertex, nil
}

// for 2D textures
func parseTextureCoordinate(parts []string) (mgl32.Vec2, error) {
	var texCoord mgl32.Vec2
	if len(parts) < 2 {
		return texCoord, fmt.Errorf("texture coordinate needs 2 components, got %d", len(parts))
	}
	for i, part := range parts[:2] {
		val, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return texCoord, fmt.Errorf("invalid texture coordinate value %q: %w", part, err)
		}
		texCoord[i] = float32(val)
	}
	return texCoord, nil
}

// FaceVertex is one corner of an OBJ face. Indices are zero based; -1
// means absent.
type FaceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32
	NormalIdx   int32
}

// resolveIndex converts a one-based or negative (relative) OBJ index into
// a zero-based one checked against count.
func resolveIndex(s string, count int, what string) (int32, error) {
	raw, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return -1, fmt.Errorf("invalid %s index %q: %w", what, s, err)
	}
	idx := raw - 1
	if raw < 0 {
		idx = int64(count) + raw
	}
	if raw == 0 || idx < 0 || idx >= int64(count) {
		return -1, fmt.Errorf("%s index %d out of range (have %d)", what, raw, count)
	}
	return int32(idx), nil
}

// parseFace reads the corners of one face and triangulates it. Quads split
// into two triangles and larger polygons become a fan from the first corner.
func parseFace(parts []string, vertexCount, texCoordCount, normalCount int) ([]FaceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs at least 3 corners, got %d", len(parts))
	}
	face := make([]FaceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")

		vertexIdx, err := resolveIndex(vals[0], vertexCount, "vertex")
		if err != nil {
			return nil, err
		}

		// Texture coordinate and normal indices are optional.
		var texCoordIdx int32 = -1
		if len(vals) > 1 && vals[1] != "" {
			if texCoordIdx, err = resolveIndex(vals[1], texCoordCount, "texture coordinate"); err != nil {
				return nil, err
			}
		}
		var normalIdx int32 = -1
		if len(vals) > 2 && vals[2] != "" {
			if normalIdx, err = resolveIndex(vals[2], normalCount, "normal"); err != nil {
				return nil, err
			}
		}

		face = append(face, FaceVertex{
			VertexIdx:   vertexIdx,
			TexCoordIdx: texCoordIdx,
			NormalIdx:   normalIdx,
		})
	}

	switch {
	case len(face) == 4:
		return []FaceVertex{face[0], face[1], face[2], face[0], face[2], face[3]}, nil
	case len(face) > 4:
		logger.Log.Debug("Face with more than 4 vertices detected, using fan triangulation", zap.Int("vertexCount", len(face)))
		triangulated := make([]FaceVertex, 0, (len(face)-2)*3)
		for i := 1; i < len(face)-1; i++ {
			triangulated = append(triangulated, face[0], face[i], face[i+1])
		}
		return triangulated, nil
	}
	return face, nil
}

// RecalculateNormals sets smooth per-vertex normals on every face, averaging
// the area-weighted normals of the faces sharing each vertex.
func RecalculateNormals(g *renderer.Geometry) {
	if len(g.Vertices) == 0 || len(g.Faces) == 0 {
		return
	}
	sums := make([]mgl32.Vec3, len(g.Vertices))
	for _, f := range g.Faces {
		if f.A >= len(g.Vertices) || f.B >= len(g.Vertices) || f.C >= len(g.Vertices) {
			continue
		}
		v0, v1, v2 := g.Vertices[f.A], g.Vertices[f.B], g.Vertices[f.C]
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		sums[f.A] = sums[f.A].Add(n)
		sums[f.B] = sums[f.B].Add(n)
		sums[f.C] = sums[f.C].Add(n)
	}
	for i, n := range sums {
		if n.Len() > 0 {
			sums[i] = n.Normalize()
		}
	}
	for i := range g.Faces {
		f := &g.Faces[i]
		if f.A >= len(sums) || f.B >= len(sums) || f.C >= len(sums) {
			continue
		}
		f.VertexNormals = []mgl32.Vec3{sums[f.A], sums[f.B], sums[f.C]}
	}
	g.MarkDirty(renderer.DirtyNormals)
}
