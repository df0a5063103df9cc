package loader

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVoxelWorld(t *testing.T) {
	world := NewVoxelWorld(16, 2, 2, 64, 1.0)
	require.NotNil(t, world)
	assert.Equal(t, 16, world.ChunkSize)
	assert.Equal(t, 2, world.WorldSizeX)
	assert.Equal(t, 2, world.WorldSizeZ)
	assert.Equal(t, 64, world.MaxHeight)
	assert.Equal(t, mgl32.Vec3{16, 0, 16}, world.Chunks[1][1].Position)
}

func TestSetVoxelTracksActiveCount(t *testing.T) {
	world := NewVoxelWorld(4, 2, 1, 8, 1)
	world.SetVoxel(5, 2, 1, Stone)
	assert.Equal(t, Stone, world.GetVoxel(5, 2, 1))
	assert.Equal(t, 1, world.ActiveVoxels)
	assert.True(t, world.Chunks[1][0].NeedsUpdate)

	world.SetVoxel(5, 2, 1, Dirt)
	assert.Equal(t, 1, world.ActiveVoxels)
	world.SetVoxel(5, 2, 1, Air)
	assert.Equal(t, 0, world.ActiveVoxels)

	// Out of range writes are ignored and reads return air.
	world.SetVoxel(-1, 0, 0, Stone)
	world.SetVoxel(0, 8, 0, Stone)
	world.SetVoxel(8, 0, 0, Stone)
	assert.Equal(t, 0, world.ActiveVoxels)
	assert.Equal(t, Air, world.GetVoxel(8, 0, 0))
}

func TestClearChunk(t *testing.T) {
	world := NewVoxelWorld(2, 2, 1, 2, 1)
	world.SetVoxel(0, 0, 0, Grass)
	world.SetVoxel(1, 1, 1, Grass)
	world.SetVoxel(2, 0, 0, Grass)
	world.ClearChunk(0, 0)
	assert.Equal(t, 1, world.ActiveVoxels)
	assert.Equal(t, Air, world.GetVoxel(1, 1, 1))
	assert.Equal(t, Grass, world.GetVoxel(2, 0, 0))
}

func TestVoxelColors(t *testing.T) {
	world := NewVoxelWorld(1, 1, 1, 1, 1)
	assert.Equal(t, mgl32.Vec3{}, world.VoxelColor(Air))
	assert.NotEqual(t, mgl32.Vec3{}, world.VoxelColor(Grass))

	world.SetVoxelColor(Stone, mgl32.Vec3{1, 0, 0})
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, world.VoxelColor(Stone))
	world.ClearCustomVoxelColors()
	assert.Equal(t, defaultVoxelColors[Stone], world.VoxelColor(Stone))
}

func TestBuildGeometryEmitsExposedSidesOnly(t *testing.T) {
	world := NewVoxelWorld(4, 1, 1, 4, 1)
	world.SetVoxel(0, 0, 0, Stone)
	g := world.BuildGeometry()
	assert.Len(t, g.Faces, 12)

	// Two touching voxels hide the shared side of each.
	world.SetVoxel(1, 0, 0, Grass)
	g = world.BuildGeometry()
	assert.Len(t, g.Faces, 20)
	assert.False(t, world.Chunks[0][0].NeedsUpdate)

	for _, f := range g.Faces {
		require.Len(t, f.VertexColors, 3)
		assert.Contains(t, []mgl32.Vec3{defaultVoxelColors[Stone], defaultVoxelColors[Grass]}, f.VertexColors[0])
	}
}

func TestFillTerrainStacksColumns(t *testing.T) {
	world := NewVoxelWorld(4, 1, 1, 32, 1)
	world.FillTerrain(NewHeightField(TerrainOptions{Height: 3, Seed: 1}))
	for x := 0; x < 4; x++ {
		for z := 0; z < 4; z++ {
			assert.Equal(t, Stone, world.GetVoxel(x, 0, z))
			top := 0
			for y := 0; y < 32; y++ {
				if world.GetVoxel(x, y, z) != Air {
					top = y
				}
			}
			assert.Equal(t, Grass, world.GetVoxel(x, top, z))
		}
	}
}
