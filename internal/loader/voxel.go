package loader

import (
	"Gopher3DCore/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

type VoxelID uint16

const (
	Air VoxelID = iota
	Grass
	Dirt
	Stone
)

var defaultVoxelColors = map[VoxelID]mgl32.Vec3{
	Grass: {0.3, 0.7, 0.2},
	Dirt:  {0.5, 0.35, 0.2},
	Stone: {0.5, 0.5, 0.5},
}

type VoxelChunk struct {
	Position    mgl32.Vec3
	Size        int
	Voxels      [][][]VoxelID
	NeedsUpdate bool
}

// VoxelWorld is a grid of chunks. Its mesh contains only the cube sides
// that face air, colored per voxel through vertex colors.
type VoxelWorld struct {
	ChunkSize    int
	WorldSizeX   int
	WorldSizeZ   int
	MaxHeight    int
	VoxelSize    float32
	Chunks       [][]*VoxelChunk
	ActiveVoxels int

	colors map[VoxelID]mgl32.Vec3
}

func NewVoxelWorld(chunkSize, worldSizeX, worldSizeZ, maxHeight int, voxelSize float32) *VoxelWorld {
	world := &VoxelWorld{
		ChunkSize:  chunkSize,
		WorldSizeX: worldSizeX,
		WorldSizeZ: worldSizeZ,
		MaxHeight:  maxHeight,
		VoxelSize:  voxelSize,
		Chunks:     make([][]*VoxelChunk, worldSizeX),
		colors:     make(map[VoxelID]mgl32.Vec3),
	}

	for x := 0; x < worldSizeX; x++ {
		world.Chunks[x] = make([]*VoxelChunk, worldSizeZ)
		for z := 0; z < worldSizeZ; z++ {
			chunk := &VoxelChunk{
				Position: mgl32.Vec3{
					float32(x*chunkSize) * voxelSize,
					0,
					float32(z*chunkSize) * voxelSize,
				},
				Size:        chunkSize,
				Voxels:      make([][][]VoxelID, chunkSize),
				NeedsUpdate: true,
			}
			for i := 0; i < chunkSize; i++ {
				chunk.Voxels[i] = make([][]VoxelID, maxHeight)
				for j := 0; j < maxHeight; j++ {
					chunk.Voxels[i][j] = make([]VoxelID, chunkSize)
				}
			}
			world.Chunks[x][z] = chunk
		}
	}
	return world
}

// locate maps world voxel coordinates to a chunk and local coordinates.
func (world *VoxelWorld) locate(x, y, z int) (*VoxelChunk, int, int, bool) {
	if x < 0 || z < 0 || y < 0 || y >= world.MaxHeight {
		return nil, 0, 0, false
	}
	chunkX, chunkZ := x/world.ChunkSize, z/world.ChunkSize
	if chunkX >= world.WorldSizeX || chunkZ >= world.WorldSizeZ {
		return nil, 0, 0, false
	}
	return world.Chunks[chunkX][chunkZ], x % world.ChunkSize, z % world.ChunkSize, true
}

// SetVoxel stores id at (x, y, z). Coordinates outside the world are ignored.
func (world *VoxelWorld) SetVoxel(x, y, z int, id VoxelID) {
	chunk, lx, lz, ok := world.locate(x, y, z)
	if !ok {
		return
	}
	prev := chunk.Voxels[lx][y][lz]
	chunk.Voxels[lx][y][lz] = id
	switch {
	case prev != Air && id == Air:
		world.ActiveVoxels--
	case prev == Air && id != Air:
		world.ActiveVoxels++
	}
	chunk.NeedsUpdate = true
}

// GetVoxel returns the voxel at (x, y, z), or Air outside the world.
func (world *VoxelWorld) GetVoxel(x, y, z int) VoxelID {
	chunk, lx, lz, ok := world.locate(x, y, z)
	if !ok {
		return Air
	}
	return chunk.Voxels[lx][y][lz]
}

func (world *VoxelWorld) ClearChunk(chunkX, chunkZ int) {
	if chunkX < 0 || chunkX >= world.WorldSizeX || chunkZ < 0 || chunkZ >= world.WorldSizeZ {
		return
	}
	chunk := world.Chunks[chunkX][chunkZ]
	for x := range chunk.Voxels {
		for y := range chunk.Voxels[x] {
			for z := range chunk.Voxels[x][y] {
				if chunk.Voxels[x][y][z] != Air {
					world.ActiveVoxels--
				}
				chunk.Voxels[x][y][z] = Air
			}
		}
	}
	chunk.NeedsUpdate = true
}

// FillTerrain stacks voxels up to the field's height in every column:
// grass on top, a few layers of dirt, stone below.
func (world *VoxelWorld) FillTerrain(field *HeightField) {
	sizeX, sizeZ := world.WorldSizeX*world.ChunkSize, world.WorldSizeZ*world.ChunkSize
	base := world.MaxHeight / 2
	for x := 0; x < sizeX; x++ {
		for z := 0; z < sizeZ; z++ {
			top := base + int(field.At(x, z))
			top = max(0, min(top, world.MaxHeight-1))
			for y := 0; y <= top; y++ {
				id := Stone
				switch {
				case y == top:
					id = Grass
				case y > top-3:
					id = Dirt
				}
				world.SetVoxel(x, y, z, id)
			}
		}
	}
}

// VoxelColor returns the color used for id; custom colors take precedence.
func (world *VoxelWorld) VoxelColor(id VoxelID) mgl32.Vec3 {
	if c, ok := world.colors[id]; ok {
		return c
	}
	return defaultVoxelColors[id]
}

func (world *VoxelWorld) SetVoxelColor(id VoxelID, color mgl32.Vec3) {
	world.colors[id] = color
}

func (world *VoxelWorld) ClearCustomVoxelColors() {
	clear(world.colors)
}

var sideOffsets = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// BuildGeometry meshes every chunk into one geometry and clears the chunks'
// NeedsUpdate flags. Large worlds exceed the per-group vertex limit; the
// renderer splits them into several groups.
func (world *VoxelWorld) BuildGeometry() *renderer.Geometry {
	g := renderer.NewGeometry("VoxelWorld")
	half := world.VoxelSize * 0.5
	for cx, column := range world.Chunks {
		for cz, chunk := range column {
			for lx := range chunk.Voxels {
				for y := range chunk.Voxels[lx] {
					for lz, id := range chunk.Voxels[lx][y] {
						if id == Air {
							continue
						}
						x, z := cx*world.ChunkSize+lx, cz*world.ChunkSize+lz
						center := mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(world.VoxelSize)
						color := world.VoxelColor(id)
						for side, off := range sideOffsets {
							if world.GetVoxel(x+off[0], y+off[1], z+off[2]) != Air {
								continue
							}
							appendQuad(g, cubeSideCorners(center, cubeSides[side], half), cubeSides[side][0], color)
							for f := len(g.Faces) - 2; f < len(g.Faces); f++ {
								g.Faces[f].VertexColors = []mgl32.Vec3{color, color, color}
							}
						}
					}
				}
			}
			chunk.NeedsUpdate = false
		}
	}
	return g
}
