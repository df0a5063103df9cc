package renderer

import (
	"Gopher3DCore/internal/gpu"
)

// PipelineState is the fixed-function state the renderer changes between
// draws.
type PipelineState struct {
	Program gpu.Program

	Blending      Blending
	BlendEquation gpu.BlendEquation
	BlendSrc      gpu.BlendFactor
	BlendDst      gpu.BlendFactor

	DepthTest  bool
	DepthWrite bool

	CullEnabled bool
	CullFace    gpu.Face
	FrontFace   gpu.Winding

	PolygonOffset       bool
	PolygonOffsetFactor float32
	PolygonOffsetUnits  float32

	LineWidth  float32
	ClearColor [4]float32
}

type stateField uint16

const (
	knownProgram stateField = 1 << iota
	knownBlending
	knownDepthTest
	knownDepthWrite
	knownCull
	knownCullFace
	knownFrontFace
	knownPolygonOffset
	knownLineWidth
	knownClearColor
)

// StateCache forwards state changes to the device only when they differ
// from what was last set. Anything not yet set is treated as unknown.
type StateCache struct {
	device gpu.Device
	cur    PipelineState
	known  stateField
}

func NewStateCache(device gpu.Device) *StateCache {
	return &StateCache{device: device}
}

// Reset forgets everything so the next setter of each kind always applies.
func (s *StateCache) Reset() { s.known = 0 }

func (s *StateCache) has(f stateField) bool { return s.known&f != 0 }

// UseProgram binds p and reports whether it changed.
func (s *StateCache) UseProgram(p gpu.Program) bool {
	if s.has(knownProgram) && s.cur.Program == p {
		return false
	}
	s.device.UseProgram(p)
	s.cur.Program = p
	s.known |= knownProgram
	return true
}

func (s *StateCache) SetBlending(b Blending, eq gpu.BlendEquation, src, dst gpu.BlendFactor) {
	if b != CustomBlending {
		eq, src, dst = presetBlend(b)
	}
	if s.has(knownBlending) && s.cur.Blending == b && s.cur.BlendEquation == eq &&
		s.cur.BlendSrc == src && s.cur.BlendDst == dst {
		return
	}
	if b == NoBlending {
		s.device.Disable(gpu.Blend)
	} else {
		s.device.Enable(gpu.Blend)
		s.device.BlendEquation(eq)
		s.device.BlendFunc(src, dst)
	}
	s.cur.Blending, s.cur.BlendEquation, s.cur.BlendSrc, s.cur.BlendDst = b, eq, src, dst
	s.known |= knownBlending
}

func presetBlend(b Blending) (gpu.BlendEquation, gpu.BlendFactor, gpu.BlendFactor) {
	switch b {
	case AdditiveBlending:
		return gpu.FuncAdd, gpu.SrcAlpha, gpu.One
	case SubtractiveBlending:
		return gpu.FuncAdd, gpu.Zero, gpu.OneMinusSrcColor
	case MultiplyBlending:
		return gpu.FuncAdd, gpu.Zero, gpu.SrcColor
	case NoBlending:
		return gpu.FuncAdd, gpu.One, gpu.Zero
	}
	return gpu.FuncAdd, gpu.SrcAlpha, gpu.OneMinusSrcAlpha
}

func (s *StateCache) SetDepthTest(on bool) {
	if s.has(knownDepthTest) && s.cur.DepthTest == on {
		return
	}
	if on {
		s.device.Enable(gpu.DepthTest)
	} else {
		s.device.Disable(gpu.DepthTest)
	}
	s.cur.DepthTest = on
	s.known |= knownDepthTest
}

func (s *StateCache) SetDepthWrite(on bool) {
	if s.has(knownDepthWrite) && s.cur.DepthWrite == on {
		return
	}
	s.device.DepthMask(on)
	s.cur.DepthWrite = on
	s.known |= knownDepthWrite
}

func (s *StateCache) SetCulling(on bool) {
	if s.has(knownCull) && s.cur.CullEnabled == on {
		return
	}
	if on {
		s.device.Enable(gpu.CullFace)
	} else {
		s.device.Disable(gpu.CullFace)
	}
	s.cur.CullEnabled = on
	s.known |= knownCull
}

func (s *StateCache) SetCullFace(f gpu.Face) {
	if s.has(knownCullFace) && s.cur.CullFace == f {
		return
	}
	s.device.CullFace(f)
	s.cur.CullFace = f
	s.known |= knownCullFace
}

func (s *StateCache) SetFrontFace(w gpu.Winding) {
	if s.has(knownFrontFace) && s.cur.FrontFace == w {
		return
	}
	s.device.FrontFace(w)
	s.cur.FrontFace = w
	s.known |= knownFrontFace
}

// SetMaterialFaces maps a material side onto culling and winding.
func (s *StateCache) SetMaterialFaces(side Side) {
	if side == DoubleSide {
		s.SetCulling(false)
	} else {
		s.SetCulling(true)
		s.SetCullFace(gpu.FaceBack)
	}
	if side == BackSide {
		s.SetFrontFace(gpu.CW)
	} else {
		s.SetFrontFace(gpu.CCW)
	}
}

func (s *StateCache) SetPolygonOffset(on bool, factor, units float32) {
	if s.has(knownPolygonOffset) && s.cur.PolygonOffset == on &&
		(!on || (s.cur.PolygonOffsetFactor == factor && s.cur.PolygonOffsetUnits == units)) {
		return
	}
	if on {
		s.device.Enable(gpu.PolygonOffsetFill)
		s.device.PolygonOffset(factor, units)
	} else {
		s.device.Disable(gpu.PolygonOffsetFill)
	}
	s.cur.PolygonOffset, s.cur.PolygonOffsetFactor, s.cur.PolygonOffsetUnits = on, factor, units
	s.known |= knownPolygonOffset
}

func (s *StateCache) SetLineWidth(w float32) {
	if s.has(knownLineWidth) && s.cur.LineWidth == w {
		return
	}
	s.device.LineWidth(w)
	s.cur.LineWidth = w
	s.known |= knownLineWidth
}

func (s *StateCache) SetClearColor(rgba [4]float32) {
	if s.has(knownClearColor) && s.cur.ClearColor == rgba {
		return
	}
	s.device.ClearColor(rgba[0], rgba[1], rgba[2], rgba[3])
	s.cur.ClearColor = rgba
	s.known |= knownClearColor
}

// ApplyMaterial sets everything m controls.
func (s *StateCache) ApplyMaterial(m *Material) {
	s.SetMaterialFaces(m.Side)
	s.SetDepthTest(m.DepthTest)
	s.SetDepthWrite(m.DepthWrite)
	s.SetPolygonOffset(m.PolygonOffset, m.PolygonOffsetFactor, m.PolygonOffsetUnits)
	if m.Kind == LineMaterial {
		s.SetLineWidth(m.LineWidth)
	}
	if m.Transparent {
		s.SetBlending(m.Blending, m.BlendEquation, m.BlendSrc, m.BlendDst)
	} else {
		s.SetBlending(NoBlending, 0, 0, 0)
	}
}

// StateSnapshot is a saved StateCache position.
type StateSnapshot struct {
	state PipelineState
	known stateField
}

func (s *StateCache) Snapshot() StateSnapshot {
	return StateSnapshot{state: s.cur, known: s.known}
}

// Current returns the last state set through the cache.
func (s *StateCache) Current() PipelineState { return s.cur }

// Restore re-applies a snapshot. Parts unknown at snapshot time become
// unknown again.
func (s *StateCache) Restore(snap StateSnapshot) {
	ps, known := snap.state, snap.known
	if known&knownProgram != 0 {
		s.UseProgram(ps.Program)
	}
	if known&knownBlending != 0 {
		s.SetBlending(ps.Blending, ps.BlendEquation, ps.BlendSrc, ps.BlendDst)
	}
	if known&knownDepthTest != 0 {
		s.SetDepthTest(ps.DepthTest)
	}
	if known&knownDepthWrite != 0 {
		s.SetDepthWrite(ps.DepthWrite)
	}
	if known&knownCull != 0 {
		s.SetCulling(ps.CullEnabled)
	}
	if known&knownCullFace != 0 {
		s.SetCullFace(ps.CullFace)
	}
	if known&knownFrontFace != 0 {
		s.SetFrontFace(ps.FrontFace)
	}
	if known&knownPolygonOffset != 0 {
		s.SetPolygonOffset(ps.PolygonOffset, ps.PolygonOffsetFactor, ps.PolygonOffsetUnits)
	}
	if known&knownLineWidth != 0 {
		s.SetLineWidth(ps.LineWidth)
	}
	if known&knownClearColor != 0 {
		s.SetClearColor(ps.ClearColor)
	}
	s.known &= known
}
