package loader

import (
	"Gopher3DCore/internal/renderer"

	perlin "github.com/aquilax/go-perlin"
)

// TerrainOptions shapes a noise heightfield.
type TerrainOptions struct {
	GridSize int
	Spacing  float32
	// Height scales the combined noise, which is roughly in [-1, 1].
	Height float32
	// Frequency is the noise step per grid cell for the largest features.
	Frequency float64
	Seed      int64

	// Perlin parameters. Zero values take 2, 2 and 3.
	Alpha   float64
	Beta    float64
	Octaves int32
}

func (o *TerrainOptions) defaults() {
	if o.Alpha == 0 {
		o.Alpha = 2
	}
	if o.Beta == 0 {
		o.Beta = 2
	}
	if o.Octaves == 0 {
		o.Octaves = 3
	}
	if o.Frequency == 0 {
		o.Frequency = 0.05
	}
	if o.Spacing == 0 {
		o.Spacing = 1
	}
}

// HeightField samples layered Perlin noise on integer grid coordinates.
type HeightField struct {
	noise     *perlin.Perlin
	frequency float64
	height    float32
}

func NewHeightField(opts TerrainOptions) *HeightField {
	opts.defaults()
	return &HeightField{
		noise:     perlin.NewPerlin(opts.Alpha, opts.Beta, opts.Octaves, opts.Seed),
		frequency: opts.Frequency,
		height:    opts.Height,
	}
}

// At returns the terrain height at (x, z). Large features dominate, with
// medium and fine detail layered on top.
func (h *HeightField) At(x, z int) float32 {
	fx, fz := float64(x), float64(z)
	base := h.noise.Noise2D(fx*h.frequency, fz*h.frequency)
	detail := h.noise.Noise2D(fx*h.frequency*3, fz*h.frequency*3)
	fine := h.noise.Noise2D(fx*h.frequency*6, fz*h.frequency*6)
	return float32(base+detail*0.5+fine*0.25) * h.height
}

// LoadTerrain builds a grid whose heights come from a HeightField. The same
// seed always produces the same terrain.
func LoadTerrain(opts TerrainOptions) (*renderer.Geometry, error) {
	opts.defaults()
	field := NewHeightField(opts)
	g, err := gridGeometry("Terrain", opts.GridSize, opts.Spacing, field.At)
	if err != nil {
		return nil, err
	}
	RecalculateNormals(g)
	return g, nil
}
