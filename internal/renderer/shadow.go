package renderer

import (
	"fmt"
	"strings"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type ShadowMapType int

const (
	BasicShadowMap ShadowMapType = iota
	PCFShadowMap
	PCFSoftShadowMap
)

func (t ShadowMapType) String() string {
	switch t {
	case BasicShadowMap:
		return "basic"
	case PCFShadowMap:
		return "pcf"
	case PCFSoftShadowMap:
		return "pcfsoft"
	}
	return fmt.Sprintf("ShadowMapType(%d)", int(t))
}

func (t ShadowMapType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ShadowMapType) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "basic", "":
		*t = BasicShadowMap
	case "pcf":
		*t = PCFShadowMap
	case "pcfsoft", "pcf_soft":
		*t = PCFSoftShadowMap
	default:
		return fmt.Errorf("unknown shadow map type %q", string(b))
	}
	return nil
}

// shadowBias maps clip space [-1,1] to texture space [0,1].
var shadowBias = mgl32.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}

// ShadowState is the GPU side of one shadow-casting light or cascade.
type ShadowState struct {
	Target        gpu.RenderTarget
	Texture       gpu.Texture
	Width, Height int
	Camera        *Camera
	// Matrix maps world space into the map's [0,1] texture space.
	Matrix   mgl32.Mat4
	Bias     float32
	Darkness float32

	// Cascades is set on a cascaded directional light.
	Cascades []*VirtualLight
}

// VirtualLight is one cascade of a directional light. It follows the view
// camera and covers the slice between NearZ and FarZ in its NDC depth.
type VirtualLight struct {
	Parent   *Light
	Index    int
	NearZ    float32
	FarZ     float32
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Shadow   ShadowState
}

// ShadowMap is what lit programs sample, one per rendered map.
type ShadowMap struct {
	Texture  gpu.Texture
	Size     mgl32.Vec2
	Bias     float32
	Darkness float32
	Matrix   mgl32.Mat4
}

// DepthDrawFunc draws obj into the bound shadow target with m from cam.
type DepthDrawFunc func(obj *Object, m *Material, cam *Camera) DrawInfo

// ShadowMapCoordinator renders depth maps for shadow-casting lights before
// the main pass.
type ShadowMapCoordinator struct {
	device gpu.Device
	state  *StateCache
	cfg    *ShadowSettings

	// depthMaterials is indexed by [morph][skin].
	depthMaterials [2][2]*Material

	maps           []ShadowMap
	states         map[*Light]*ShadowState
	virtualCreated int
	rendered       bool

	// NeedsUpdate forces one render when AutoUpdate is off.
	NeedsUpdate bool
}

func NewShadowMapCoordinator(device gpu.Device, state *StateCache, cfg *ShadowSettings) *ShadowMapCoordinator {
	c := &ShadowMapCoordinator{
		device: device,
		state:  state,
		cfg:    cfg,
		states: make(map[*Light]*ShadowState),
	}
	for morph := 0; morph < 2; morph++ {
		for skin := 0; skin < 2; skin++ {
			m := NewMaterial(DepthRGBAMaterial, "shadow-depth")
			m.MorphTargets = morph == 1
			m.Skinning = skin == 1
			c.depthMaterials[morph][skin] = m
		}
	}
	return c
}

// Maps returns the maps rendered by the last Render call.
func (c *ShadowMapCoordinator) Maps() []ShadowMap { return c.maps }

// VirtualLightsCreated counts cascades created since startup.
func (c *ShadowMapCoordinator) VirtualLightsCreated() int { return c.virtualCreated }

// DepthMaterials returns the built-in depth variants.
func (c *ShadowMapCoordinator) DepthMaterials() []*Material {
	return []*Material{
		c.depthMaterials[0][0], c.depthMaterials[0][1],
		c.depthMaterials[1][0], c.depthMaterials[1][1],
	}
}

// Render draws the depth of every shadow caster for every shadow light.
func (c *ShadowMapCoordinator) Render(scene SceneGraph, cam *Camera, draw DepthDrawFunc) DrawInfo {
	var info DrawInfo
	if !c.cfg.Enabled {
		c.maps = c.maps[:0]
		return info
	}
	if !c.cfg.AutoUpdate && c.rendered && !c.NeedsUpdate {
		return info
	}
	c.NeedsUpdate = false
	c.rendered = true

	var undo Unwind
	saved := c.state.Snapshot()
	undo.Add(func() { c.state.Restore(saved) })
	undo.Add(func() { c.device.BindRenderTarget(0) })
	defer undo.Unwind()

	c.state.SetClearColor([4]float32{1, 1, 1, 1})
	c.state.SetBlending(NoBlending, 0, 0, 0)
	c.state.SetCulling(true)
	c.state.SetFrontFace(gpu.CCW)
	if c.cfg.CullFrontFaces {
		c.state.SetCullFace(gpu.FaceFront)
	} else {
		c.state.SetCullFace(gpu.FaceBack)
	}
	c.state.SetDepthTest(true)
	c.state.SetDepthWrite(true)

	c.maps = c.maps[:0]
	for _, l := range scene.Lights() {
		if !l.CastShadow {
			continue
		}
		if !l.castsSupportedShadow() {
			logger.ErrorOnce("shadow-kind-"+l.Kind.String(), "Light cannot cast shadows",
				zap.String("light", l.Name),
				zap.Stringer("kind", l.Kind),
				zap.Error(ErrUnsupportedLight))
			continue
		}
		if l.Kind == DirectionalLight && l.Shadow.Cascade {
			for _, vl := range c.cascades(l) {
				c.updateVirtualLight(vl, cam)
				info.add(c.renderMap(&vl.Shadow, scene, draw))
			}
			continue
		}
		st := c.shadowState(l)
		c.updateLightCamera(st, l)
		info.add(c.renderMap(st, scene, draw))
	}
	return info
}

func (c *ShadowMapCoordinator) shadowState(l *Light) *ShadowState {
	st := l.shadow
	if st == nil {
		st = &ShadowState{}
		l.shadow = st
		c.states[l] = st
	}
	st.Bias = l.Shadow.Bias
	st.Darkness = l.Shadow.Darkness
	c.ensureTarget(st, l.Shadow.MapWidth, l.Shadow.MapHeight)
	return st
}

func (c *ShadowMapCoordinator) ensureTarget(st *ShadowState, w, h int) {
	if st.Target != 0 && st.Width == w && st.Height == h {
		return
	}
	if st.Target != 0 {
		c.device.DeleteRenderTarget(st.Target)
	}
	filter := gpu.Linear
	if c.cfg.Type == PCFSoftShadowMap {
		filter = gpu.Nearest
	}
	st.Target, st.Texture = c.device.CreateRenderTarget(gpu.RenderTargetSpec{
		Width:     w,
		Height:    h,
		MinFilter: filter,
		MagFilter: filter,
	})
	st.Width, st.Height = w, h
}

// updateLightCamera aims the light's shadow camera from its position at its
// target.
func (c *ShadowMapCoordinator) updateLightCamera(st *ShadowState, l *Light) {
	s := &l.Shadow
	if st.Camera == nil {
		if l.Kind == SpotLight {
			st.Camera = NewPerspectiveCamera(s.CameraFov, float32(s.MapWidth)/float32(max(s.MapHeight, 1)), s.CameraNear, s.CameraFar)
		} else {
			st.Camera = NewOrthographicCamera(s.CameraLeft, s.CameraRight, s.CameraTop, s.CameraBottom, s.CameraNear, s.CameraFar)
		}
		st.Camera.Name = l.Name + "/shadow"
	}
	cam := st.Camera
	if l.Kind == SpotLight {
		cam.Fov = s.CameraFov
		cam.AspectRatio = float32(s.MapWidth) / float32(max(s.MapHeight, 1))
	} else {
		cam.OrthoLeft, cam.OrthoRight = s.CameraLeft, s.CameraRight
		cam.OrthoTop, cam.OrthoBottom = s.CameraTop, s.CameraBottom
	}
	cam.Near, cam.Far = s.CameraNear, s.CameraFar
	cam.UpdateProjection()
	cam.Position = l.Position
	cam.LookAt(l.Target)
	st.Matrix = shadowBias.Mul4(cam.GetViewProjection())
}

// cascades returns l's virtual lights, creating them on first use.
func (c *ShadowMapCoordinator) cascades(l *Light) []*VirtualLight {
	st := l.shadow
	if st == nil {
		st = &ShadowState{}
		l.shadow = st
		c.states[l] = st
	}
	s := &l.Shadow
	if len(s.CascadeNearZ) < s.CascadeCount {
		s.EnableCascades(s.CascadeCount)
	}
	if len(st.Cascades) == s.CascadeCount {
		return st.Cascades
	}
	for _, vl := range st.Cascades {
		c.freeState(&vl.Shadow)
	}
	st.Cascades = st.Cascades[:0]
	for i := 0; i < s.CascadeCount; i++ {
		vl := &VirtualLight{Parent: l, Index: i}
		vl.Shadow.Camera = NewOrthographicCamera(s.CameraLeft, s.CameraRight, s.CameraTop, s.CameraBottom, s.CameraNear, s.CameraFar)
		vl.Shadow.Camera.Name = fmt.Sprintf("%s/cascade%d", l.Name, i)
		st.Cascades = append(st.Cascades, vl)
		c.virtualCreated++
	}
	logger.Log.Debug("Shadow cascades created",
		zap.String("light", l.Name),
		zap.Int("cascades", s.CascadeCount))
	return st.Cascades
}

// updateVirtualLight moves a cascade with the view camera and fits its
// orthographic bounds around the camera frustum slice it covers.
func (c *ShadowMapCoordinator) updateVirtualLight(vl *VirtualLight, view *Camera) {
	l := vl.Parent
	s := &l.Shadow
	i := vl.Index
	vl.NearZ, vl.FarZ = s.CascadeNearZ[i], s.CascadeFarZ[i]
	vl.Shadow.Bias = s.CascadeBias[i]
	vl.Shadow.Darkness = s.Darkness
	c.ensureTarget(&vl.Shadow, s.CascadeWidth[i], s.CascadeHeight[i])

	anchor := view.Position.Add(s.CascadeOffset)
	vl.Position = anchor.Add(l.Position)
	vl.Target = anchor.Add(l.Target)

	cam := vl.Shadow.Camera
	cam.Near, cam.Far = s.CameraNear, s.CameraFar
	cam.Position = vl.Position
	cam.LookAt(vl.Target)

	lightView := cam.GetViewMatrix()
	minP := mgl32.Vec3{inf32, inf32, inf32}
	maxP := mgl32.Vec3{-inf32, -inf32, -inf32}
	for _, corner := range frustumSlice(vl.NearZ, vl.FarZ) {
		world := view.Unproject(corner)
		p := lightView.Mul4x1(world.Vec4(1)).Vec3()
		for k := 0; k < 3; k++ {
			minP[k] = min(minP[k], p[k])
			maxP[k] = max(maxP[k], p[k])
		}
	}
	cam.OrthoLeft, cam.OrthoRight = minP.X(), maxP.X()
	cam.OrthoBottom, cam.OrthoTop = minP.Y(), maxP.Y()
	cam.UpdateProjection()
	vl.Shadow.Matrix = shadowBias.Mul4(cam.GetViewProjection())
}

const inf32 = float32(3.4e38)

// frustumSlice returns the eight NDC corners between depths nearZ and farZ.
func frustumSlice(nearZ, farZ float32) [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{-1, -1, nearZ}, {1, -1, nearZ}, {-1, 1, nearZ}, {1, 1, nearZ},
		{-1, -1, farZ}, {1, -1, farZ}, {-1, 1, farZ}, {1, 1, farZ},
	}
}

// renderMap clears st's target and draws every caster inside its camera.
func (c *ShadowMapCoordinator) renderMap(st *ShadowState, scene SceneGraph, draw DepthDrawFunc) DrawInfo {
	var info DrawInfo
	c.device.BindRenderTarget(st.Target)
	c.device.Viewport(0, 0, st.Width, st.Height)
	c.device.Clear(true, true, false)

	frustum := st.Camera.CalculateFrustum()
	scene.VisitVisible(func(obj *Object) {
		if !obj.CastShadow || (obj.Geometry == nil && obj.Lines == nil) {
			return
		}
		if obj.FrustumCulled {
			center, radius := obj.WorldSphere()
			if !frustum.IntersectsSphere(center, radius) {
				return
			}
		}
		info.add(draw(obj, c.depthMaterialFor(obj), st.Camera))
	})

	c.maps = append(c.maps, ShadowMap{
		Texture:  st.Texture,
		Size:     mgl32.Vec2{float32(st.Width), float32(st.Height)},
		Bias:     st.Bias,
		Darkness: st.Darkness,
		Matrix:   st.Matrix,
	})
	return info
}

func (c *ShadowMapCoordinator) depthMaterialFor(obj *Object) *Material {
	if obj.CustomDepthMaterial != nil {
		return obj.CustomDepthMaterial
	}
	morph, skin := 0, 0
	if m := obj.Material; m != nil {
		if m.MorphTargets && obj.Geometry != nil && len(obj.Geometry.MorphTargets) > 0 {
			morph = 1
		}
		if m.Skinning && obj.Skeleton != nil {
			skin = 1
		}
	}
	return c.depthMaterials[morph][skin]
}

func (c *ShadowMapCoordinator) freeState(st *ShadowState) {
	if st.Target != 0 {
		c.device.DeleteRenderTarget(st.Target)
		st.Target, st.Texture = 0, 0
	}
}

// Release frees the shadow resources held for l.
func (c *ShadowMapCoordinator) Release(l *Light) {
	st, ok := c.states[l]
	if !ok {
		return
	}
	for _, vl := range st.Cascades {
		c.freeState(&vl.Shadow)
	}
	c.freeState(st)
	delete(c.states, l)
	l.shadow = nil
}

// Clear frees every shadow target.
func (c *ShadowMapCoordinator) Clear() {
	for l := range c.states {
		c.Release(l)
	}
	c.maps = c.maps[:0]
}
