package loader

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	meshMagic   uint32 = 0x4D455348 // "MESH"
	meshVersion uint32 = 2

	// maxSliceLen bounds slice headers so corrupt files fail fast instead
	// of allocating gigabytes.
	maxSliceLen = 1 << 28
)

const (
	flagVertexNormals uint32 = 1 << iota
	flagUVs
	flagVertexColors
)

var errCorruptMesh = errors.New("corrupt mesh data")

// SaveGeometry writes g to path in the compressed mesh format. Procedural
// meshes such as voxel worlds and terrain load from it much faster than
// they regenerate.
func SaveGeometry(path string, g *renderer.Geometry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mesh file: %w", err)
	}
	if err := EncodeGeometry(file, g); err != nil {
		file.Close()
		return fmt.Errorf("encode mesh %s: %w", path, err)
	}
	return file.Close()
}

// LoadGeometry reads a file written by SaveGeometry.
func LoadGeometry(path string) (*renderer.Geometry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh file: %w", err)
	}
	defer file.Close()
	g, err := DecodeGeometry(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decode mesh %s: %w", path, err)
	}
	return g, nil
}

func geometryFlags(g *renderer.Geometry) uint32 {
	normals, colors := len(g.Faces) > 0, len(g.Faces) > 0
	for _, f := range g.Faces {
		normals = normals && len(f.VertexNormals) == 3
		colors = colors && len(f.VertexColors) == 3
	}
	var flags uint32
	if normals {
		flags |= flagVertexNormals
	}
	if len(g.Faces) > 0 && len(g.FaceUVs) == len(g.Faces) {
		flags |= flagUVs
	}
	if colors {
		flags |= flagVertexColors
	}
	return flags
}

// EncodeGeometry writes vertices, faces and the per-face attributes every
// face carries. Attributes only some faces have are dropped.
func EncodeGeometry(w io.Writer, g *renderer.Geometry) error {
	gzWriter := gzip.NewWriter(w)
	flags := geometryFlags(g)
	for _, v := range []uint32{meshMagic, meshVersion, flags} {
		if err := binary.Write(gzWriter, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := writeString(gzWriter, g.Name); err != nil {
		return err
	}

	vertices := make([]float32, 0, len(g.Vertices)*3)
	for _, v := range g.Vertices {
		vertices = append(vertices, v[:]...)
	}
	if err := writeSlice(gzWriter, vertices); err != nil {
		return err
	}

	faces := make([]int32, 0, len(g.Faces)*4)
	for _, f := range g.Faces {
		faces = append(faces, int32(f.A), int32(f.B), int32(f.C), int32(f.MaterialIndex))
	}
	if err := writeSlice(gzWriter, faces); err != nil {
		return err
	}

	if flags&flagVertexNormals != 0 {
		if err := writeSlice(gzWriter, packFaceVec3(g.Faces, func(f renderer.Face) []mgl32.Vec3 { return f.VertexNormals })); err != nil {
			return err
		}
	}
	if flags&flagUVs != 0 {
		uvs := make([]float32, 0, len(g.FaceUVs)*6)
		for _, tri := range g.FaceUVs {
			for _, uv := range tri {
				uvs = append(uvs, uv[:]...)
			}
		}
		if err := writeSlice(gzWriter, uvs); err != nil {
			return err
		}
	}
	if flags&flagVertexColors != 0 {
		if err := writeSlice(gzWriter, packFaceVec3(g.Faces, func(f renderer.Face) []mgl32.Vec3 { return f.VertexColors })); err != nil {
			return err
		}
	}
	return gzWriter.Close()
}

// DecodeGeometry reads data written by EncodeGeometry. Face normals are
// recomputed and the geometry comes back fully dirty.
func DecodeGeometry(r io.Reader) (*renderer.Geometry, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	var header [3]uint32
	if err := binary.Read(gzReader, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	magic, version, flags := header[0], header[1], header[2]
	if magic != meshMagic {
		return nil, fmt.Errorf("invalid mesh file magic: %x", magic)
	}
	if version != meshVersion {
		return nil, fmt.Errorf("unsupported mesh version: %d", version)
	}

	name, err := readString(gzReader)
	if err != nil {
		return nil, err
	}
	g := renderer.NewGeometry(name)

	vertices, err := readSlice[float32](gzReader)
	if err != nil {
		return nil, err
	}
	if len(vertices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d vertex components", errCorruptMesh, len(vertices))
	}
	g.Vertices = make([]mgl32.Vec3, len(vertices)/3)
	for i := range g.Vertices {
		g.Vertices[i] = mgl32.Vec3{vertices[i*3], vertices[i*3+1], vertices[i*3+2]}
	}

	faces, err := readSlice[int32](gzReader)
	if err != nil {
		return nil, err
	}
	if len(faces)%4 != 0 {
		return nil, fmt.Errorf("%w: %d face fields", errCorruptMesh, len(faces))
	}
	g.Faces = make([]renderer.Face, len(faces)/4)
	for i := range g.Faces {
		f := faces[i*4 : i*4+4]
		for _, idx := range f[:3] {
			if idx < 0 || int(idx) >= len(g.Vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d", errCorruptMesh, i, idx)
			}
		}
		g.Faces[i] = renderer.Face{A: int(f[0]), B: int(f[1]), C: int(f[2]), MaterialIndex: int(f[3])}
	}

	if flags&flagVertexNormals != 0 {
		if err := readFaceVec3(gzReader, g.Faces, func(f *renderer.Face, v []mgl32.Vec3) { f.VertexNormals = v }); err != nil {
			return nil, err
		}
	}
	if flags&flagUVs != 0 {
		uvs, err := readSlice[float32](gzReader)
		if err != nil {
			return nil, err
		}
		if len(uvs) != len(g.Faces)*6 {
			return nil, fmt.Errorf("%w: %d uv components for %d faces", errCorruptMesh, len(uvs), len(g.Faces))
		}
		g.FaceUVs = make([][3]mgl32.Vec2, len(g.Faces))
		for i := range g.FaceUVs {
			for k := 0; k < 3; k++ {
				g.FaceUVs[i][k] = mgl32.Vec2{uvs[i*6+k*2], uvs[i*6+k*2+1]}
			}
		}
	}
	if flags&flagVertexColors != 0 {
		if err := readFaceVec3(gzReader, g.Faces, func(f *renderer.Face, v []mgl32.Vec3) { f.VertexColors = v }); err != nil {
			return nil, err
		}
	}

	g.ComputeFaceNormals()
	return g, nil
}

func packFaceVec3(faces []renderer.Face, attr func(renderer.Face) []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(faces)*9)
	for _, f := range faces {
		for _, v := range attr(f) {
			out = append(out, v[:]...)
		}
	}
	return out
}

func readFaceVec3(r io.Reader, faces []renderer.Face, set func(*renderer.Face, []mgl32.Vec3)) error {
	data, err := readSlice[float32](r)
	if err != nil {
		return err
	}
	if len(data) != len(faces)*9 {
		return fmt.Errorf("%w: %d components for %d faces", errCorruptMesh, len(data), len(faces))
	}
	for i := range faces {
		d := data[i*9 : i*9+9]
		set(&faces[i], []mgl32.Vec3{{d[0], d[1], d[2]}, {d[3], d[4], d[5]}, {d[6], d[7], d[8]}})
	}
	return nil
}

// Helper functions for binary encoding
func writeSlice[T float32 | int32](w io.Writer, data []T) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

func readSlice[T float32 | int32](r io.Reader) ([]T, error) {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count < 0 || count > maxSliceLen {
		return nil, fmt.Errorf("%w: slice length %d", errCorruptMesh, count)
	}
	data := make([]T, count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n < 0 || n > 1<<16 {
		return "", fmt.Errorf("%w: name length %d", errCorruptMesh, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
