package loader

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryFileRoundTrip(t *testing.T) {
	world := NewVoxelWorld(2, 1, 1, 2, 0.5)
	world.SetVoxel(0, 0, 0, Grass)
	world.SetVoxel(1, 0, 0, Stone)
	original := world.BuildGeometry()
	original.Faces[3].MaterialIndex = 1

	path := filepath.Join(t.TempDir(), "voxels.mesh")
	require.NoError(t, SaveGeometry(path, original))
	restored, err := LoadGeometry(path)
	require.NoError(t, err)

	assert.Equal(t, "VoxelWorld", restored.Name)
	assert.Equal(t, original.Vertices, restored.Vertices)
	assert.Equal(t, original.FaceUVs, restored.FaceUVs)
	require.Len(t, restored.Faces, len(original.Faces))
	for i, f := range restored.Faces {
		o := original.Faces[i]
		assert.Equal(t, [4]int{o.A, o.B, o.C, o.MaterialIndex}, [4]int{f.A, f.B, f.C, f.MaterialIndex})
		assert.Equal(t, o.VertexColors, f.VertexColors)
		assert.Nil(t, f.VertexNormals)
		assert.InDelta(t, 0, o.Normal.Sub(f.Normal).Len(), 1e-6)
	}
}

func TestGeometryRoundTripKeepsVertexNormals(t *testing.T) {
	original := CreateSphereGeometry(1, 4)
	var buf bytes.Buffer
	require.NoError(t, EncodeGeometry(&buf, original))
	restored, err := DecodeGeometry(&buf)
	require.NoError(t, err)
	for i, f := range restored.Faces {
		assert.Equal(t, original.Faces[i].VertexNormals, f.VertexNormals)
	}
	assert.Nil(t, restored.Faces[0].VertexColors)
}

func rawMesh(t *testing.T, header ...uint32) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, binary.Write(gz, binary.LittleEndian, header))
	require.NoError(t, gz.Close())
	return &buf
}

func TestDecodeGeometryRejectsBadInput(t *testing.T) {
	_, err := DecodeGeometry(bytes.NewReader([]byte("not gzip")))
	assert.ErrorContains(t, err, "gzip")

	_, err = DecodeGeometry(rawMesh(t, 0xDEADBEEF, meshVersion, 0))
	assert.ErrorContains(t, err, "invalid mesh file magic: deadbeef")

	_, err = DecodeGeometry(rawMesh(t, meshMagic, 1, 0))
	assert.ErrorContains(t, err, "unsupported mesh version: 1")

	// Empty name, one vertex, then a face pointing past it.
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, v := range []any{meshMagic, meshVersion, uint32(0), int32(0), int32(3), []float32{0, 0, 0}, int32(4), []int32{0, 0, 5, 0}} {
		require.NoError(t, binary.Write(gz, binary.LittleEndian, v))
	}
	require.NoError(t, gz.Close())
	_, err = DecodeGeometry(&buf)
	assert.ErrorIs(t, err, errCorruptMesh)
}

func TestGeometryFlagsRequireEveryFace(t *testing.T) {
	g := CreateCubeGeometry(1)
	assert.Equal(t, flagUVs, geometryFlags(g))

	g.Faces[0].VertexNormals = []mgl32.Vec3{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}}
	assert.Equal(t, flagUVs, geometryFlags(g))
}
