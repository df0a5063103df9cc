// Package water animates an ocean surface with Gerstner waves. The surface is
// a dynamic geometry displaced on the CPU every frame, so only the changed
// vertex and normal buffers are re-uploaded.
package water

import (
	"math"

	"Gopher3DCore/internal/loader"
	"Gopher3DCore/internal/renderer"
	"Gopher3DCore/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultResolution is the grid resolution for the water mesh.
	DefaultResolution = 64
	// MaxWaves is the maximum number of Gerstner waves
	MaxWaves = 4

	gravity = 9.81
)

// Wave is one Gerstner wave.
type Wave struct {
	Direction mgl32.Vec2 // unit vector in the XZ plane
	Amplitude float32
	Length    float32 // crest to crest
	Steepness float32 // 0 is a sine wave, 1 the sharpest crest
	Phase     float32
}

func (w Wave) number() float32 { return 2 * math.Pi / w.Length }

// speed follows deep water dispersion.
func (w Wave) speed() float32 {
	return float32(math.Sqrt(gravity / float64(w.number())))
}

// Simulation handles water rendering with Gerstner waves
type Simulation struct {
	Node     *scene.Node
	Geometry *renderer.Geometry
	Material *renderer.Material
	Waves    []Wave

	OceanSize           float32
	WaveSpeedMultiplier float32
	CurrentTime         float32

	rest []mgl32.Vec3
}

// NewSimulation builds a size x size surface with resolution vertices per
// side and MaxWaves waves whose heights scale with amplitude.
func NewSimulation(size, amplitude float32, resolution int) (*Simulation, error) {
	g, err := loader.LoadPlane(resolution, size/float32(resolution-1))
	if err != nil {
		return nil, err
	}
	g.Name = "Water Surface"
	g.Dynamic = true

	m := renderer.NewMaterial(renderer.PhongMaterial, "water")
	m.Apply(renderer.MaterialParams{
		Color:       renderer.Ptr(mgl32.Vec3{0.06, 0.22, 0.45}), // Natural ocean blue
		Opacity:     renderer.Ptr(float32(0.85)),
		Transparent: renderer.Ptr(true),
		Shininess:   renderer.Ptr(float32(90)),
		Side:        renderer.Ptr(renderer.DoubleSide),
	})

	ws := &Simulation{
		Node:                scene.NewMeshNode("Water Surface", g, m),
		Geometry:            g,
		Material:            m,
		OceanSize:           size,
		WaveSpeedMultiplier: 1,
		rest:                append([]mgl32.Vec3(nil), g.Vertices...),
	}
	ws.Node.Object.ReceiveShadow = true

	// Long swells first, then shorter chop.
	amplitudes := [MaxWaves]float32{1.2, 0.8, 0.6, 0.4}
	lengths := [MaxWaves]float32{0.5, 0.25, 0.1, 0.05}
	for i := 0; i < MaxWaves; i++ {
		baseAngle := float64(i) * 45.0 * math.Pi / 180.0
		ws.Waves = append(ws.Waves, Wave{
			Direction: mgl32.Vec2{float32(math.Cos(baseAngle)), float32(math.Sin(baseAngle))},
			Amplitude: amplitude * amplitudes[i],
			Length:    size * lengths[i],
			Steepness: 0.2 + float32(i)*0.1,
			Phase:     float32(i) * math.Pi / 3.0,
		})
	}
	return ws, nil
}

// displace returns the Gerstner offset of a rest point p at time t.
func (ws *Simulation) displace(p mgl32.Vec2, t float32) mgl32.Vec3 {
	var d mgl32.Vec3
	for _, w := range ws.Waves {
		k := w.number()
		theta := float64(k*w.Direction.Dot(p) - k*w.speed()*t + w.Phase)
		sin, cos := math.Sincos(theta)
		horizontal := w.Steepness / (k * float32(len(ws.Waves))) * float32(cos)
		d[0] += w.Direction.X() * horizontal
		d[1] += w.Amplitude * float32(sin)
		d[2] += w.Direction.Y() * horizontal
	}
	return d
}

// HeightAt approximates the surface height above the rest point (x, z).
// Horizontal displacement is ignored.
func (ws *Simulation) HeightAt(x, z float32) float32 {
	return ws.displace(mgl32.Vec2{x, z}, ws.CurrentTime).Y()
}

func (ws *Simulation) Start() { ws.apply() }

// Update advances time and re-displaces every vertex.
func (ws *Simulation) Update(deltaTime float64) {
	ws.CurrentTime += float32(deltaTime) * ws.WaveSpeedMultiplier
	ws.apply()
}

func (ws *Simulation) UpdateFixed() {}

func (ws *Simulation) apply() {
	for i, p := range ws.rest {
		ws.Geometry.Vertices[i] = p.Add(ws.displace(mgl32.Vec2{p.X(), p.Z()}, ws.CurrentTime))
	}
	ws.Geometry.MarkDirty(renderer.DirtyVertices)
	ws.Geometry.ComputeFaceNormals()
	loader.RecalculateNormals(ws.Geometry)
}
