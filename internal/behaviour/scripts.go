package behaviour

import (
	"math"

	"Gopher3DCore/internal/scene"
)

// Rotator spins a node about its Y axis.
type Rotator struct {
	Node  *scene.Node
	Speed float32 // degrees per second
}

func NewRotator(node *scene.Node, speed float32) *Rotator {
	return &Rotator{Node: node, Speed: speed}
}

func (r *Rotator) Start()       {}
func (r *Rotator) UpdateFixed() {}

func (r *Rotator) Update(deltaTime float64) {
	r.Node.Rotate(0, r.Speed*float32(deltaTime), 0)
}

// Orbiter moves a node on a circle of Radius around its starting point in
// the XZ plane.
type Orbiter struct {
	Node   *scene.Node
	Radius float32
	Speed  float32 // radians per second

	centerX, centerZ float32
	time             float64
}

func NewOrbiter(node *scene.Node, radius, speed float32) *Orbiter {
	return &Orbiter{Node: node, Radius: radius, Speed: speed}
}

func (o *Orbiter) Start() {
	o.centerX, o.centerZ = o.Node.X(), o.Node.Z()
}

func (o *Orbiter) UpdateFixed() {}

func (o *Orbiter) Update(deltaTime float64) {
	o.time += deltaTime * float64(o.Speed)
	o.Node.Position[0] = o.centerX + float32(math.Cos(o.time))*o.Radius
	o.Node.Position[2] = o.centerZ + float32(math.Sin(o.time))*o.Radius
}

// Bouncer moves a node up and down around its starting height.
type Bouncer struct {
	Node   *scene.Node
	Height float32
	Speed  float32

	startY float32
	time   float64
}

func NewBouncer(node *scene.Node, height, speed float32) *Bouncer {
	return &Bouncer{Node: node, Height: height, Speed: speed}
}

func (b *Bouncer) Start() {
	b.startY = b.Node.Y()
}

func (b *Bouncer) UpdateFixed() {}

func (b *Bouncer) Update(deltaTime float64) {
	b.time += deltaTime * float64(b.Speed)
	b.Node.Position[1] = b.startY + float32(math.Sin(b.time))*b.Height
}
