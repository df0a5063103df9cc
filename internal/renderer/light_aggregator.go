package renderer

import (
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// LightCounts holds one number per light kind that feeds shader arrays.
type LightCounts struct {
	Directional int
	Point       int
	Spot        int
	Hemisphere  int
}

func (c LightCounts) Max(o LightCounts) LightCounts {
	return LightCounts{
		Directional: max(c.Directional, o.Directional),
		Point:       max(c.Point, o.Point),
		Spot:        max(c.Spot, o.Spot),
		Hemisphere:  max(c.Hemisphere, o.Hemisphere),
	}
}

// LightCache is the per-kind frame state. Length lights were written this
// frame out of Count enumerated; arrays are parallel with fixed strides.
type LightCache struct {
	Length int
	Count  int

	Colors     []float32 // stride 3
	Positions  []float32 // stride 3
	Directions []float32 // stride 3
	Distances  []float32 // stride 1
	Decays     []float32 // stride 1
	AngleCos   []float32 // stride 1
	Exponents  []float32 // stride 1
	SkyColors  []float32 // stride 3, hemisphere
	Ground     []float32 // stride 3, hemisphere
}

func (c *LightCache) reset() {
	c.Length = 0
	c.Count = 0
}

// grow makes every array hold at least n lights.
func (c *LightCache) grow(n int) {
	c.Colors = growFloats(c.Colors, n*3)
	c.Positions = growFloats(c.Positions, n*3)
	c.Directions = growFloats(c.Directions, n*3)
	c.Distances = growFloats(c.Distances, n)
	c.Decays = growFloats(c.Decays, n)
	c.AngleCos = growFloats(c.AngleCos, n)
	c.Exponents = growFloats(c.Exponents, n)
	c.SkyColors = growFloats(c.SkyColors, n*3)
	c.Ground = growFloats(c.Ground, n*3)
}

// zero clears slots [from, to) in every array.
func (c *LightCache) zero(from, to int) {
	if to <= from {
		return
	}
	c.grow(to)
	clear(c.Colors[from*3 : to*3])
	clear(c.Positions[from*3 : to*3])
	clear(c.Directions[from*3 : to*3])
	clear(c.Distances[from:to])
	clear(c.Decays[from:to])
	clear(c.AngleCos[from:to])
	clear(c.Exponents[from:to])
	clear(c.SkyColors[from*3 : to*3])
	clear(c.Ground[from*3 : to*3])
}

func growFloats(s []float32, n int) []float32 {
	if len(s) >= n {
		return s
	}
	return append(s, make([]float32, n-len(s))...)
}

// LightAggregator collects the frame's lights into per-kind caches.
type LightAggregator struct {
	Ambient     mgl32.Vec3
	Directional LightCache
	Point       LightCache
	Spot        LightCache
	Hemisphere  LightCache

	// GammaInput squares light colors so lighting happens in linear space.
	GammaInput bool
}

// Reset starts a new frame.
func (a *LightAggregator) Reset() {
	a.Ambient = mgl32.Vec3{}
	a.Directional.reset()
	a.Point.reset()
	a.Spot.reset()
	a.Hemisphere.reset()
}

func (a *LightAggregator) cache(k LightKind) *LightCache {
	switch k {
	case DirectionalLight:
		return &a.Directional
	case PointLight:
		return &a.Point
	case SpotLight:
		return &a.Spot
	case HemisphereLight:
		return &a.Hemisphere
	}
	return nil
}

func (a *LightAggregator) color(c mgl32.Vec3, intensity float32) mgl32.Vec3 {
	if a.GammaInput {
		return mgl32.Vec3{c[0] * c[0], c[1] * c[1], c[2] * c[2]}.Mul(intensity * intensity)
	}
	return c.Mul(intensity)
}

// Visit counts l and, when visible, writes it into the next slot of its
// kind. Shadow-only lights contribute no light and are ignored.
func (a *LightAggregator) Visit(l *Light) {
	if l == nil || l.OnlyShadow {
		return
	}
	if l.Kind == AmbientLight {
		if l.Visible {
			a.Ambient = a.Ambient.Add(a.color(l.Color, l.Intensity))
		}
		return
	}
	c := a.cache(l.Kind)
	if c == nil {
		logger.WarnOnce("light-kind", "Ignoring light of unknown kind", zap.Stringer("kind", l.Kind))
		return
	}
	c.Count++
	if !l.Visible {
		return
	}
	i := c.Length
	c.grow(i + 1)
	col := a.color(l.Color, l.Intensity)
	copy(c.Colors[i*3:], col[:])
	switch l.Kind {
	case DirectionalLight:
		d := l.Direction()
		copy(c.Directions[i*3:], d[:])
	case PointLight:
		copy(c.Positions[i*3:], l.Position[:])
		c.Distances[i] = l.Distance
		c.Decays[i] = l.Decay
	case SpotLight:
		d := l.Direction()
		copy(c.Positions[i*3:], l.Position[:])
		copy(c.Directions[i*3:], d[:])
		c.Distances[i] = l.Distance
		c.Decays[i] = l.Decay
		c.AngleCos[i] = l.angleCos()
		c.Exponents[i] = l.Exponent
	case HemisphereLight:
		d := l.Direction()
		ground := a.color(l.GroundColor, l.Intensity)
		copy(c.Directions[i*3:], d[:])
		copy(c.SkyColors[i*3:], col[:])
		copy(c.Ground[i*3:], ground[:])
	}
	c.Length++
}

// Finalize zero-fills every slot from Length up to the larger of Count and
// the widest array any compiled program reads.
func (a *LightAggregator) Finalize(compiled LightCounts) {
	finalize := func(c *LightCache, compiledMax int) {
		c.zero(c.Length, max(c.Count, compiledMax))
	}
	finalize(&a.Directional, compiled.Directional)
	finalize(&a.Point, compiled.Point)
	finalize(&a.Spot, compiled.Spot)
	finalize(&a.Hemisphere, compiled.Hemisphere)
}

// Counts returns the lights enumerated this frame per kind. Programs are
// specialized on these, so hiding a light never forces a recompile.
func (a *LightAggregator) Counts() LightCounts {
	return LightCounts{
		Directional: a.Directional.Count,
		Point:       a.Point.Count,
		Spot:        a.Spot.Count,
		Hemisphere:  a.Hemisphere.Count,
	}
}
