package renderer

import (
	"fmt"
	"sort"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/handle"
	"Gopher3DCore/internal/logger"
	"Gopher3DCore/internal/shaderlib"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MemoryInfo counts live GPU resources.
type MemoryInfo struct {
	Programs   int
	Geometries int
	Textures   int
}

// Info is the renderer's running statistics. Render and Shadow cover the
// last frame only.
type Info struct {
	Memory   MemoryInfo
	Render   DrawInfo
	Shadow   DrawInfo
	Uploads  int
	Compiles int
	Frame    uint64
}

// variantKey is the part of a program signature that depends on the object
// drawn rather than on the material.
type variantKey struct {
	skinning     bool
	bones        int
	boneTexture  bool
	morphTargets int
	morphNormals int
	shadows      bool
}

// envKey is the scene-wide part of a program signature.
type envKey struct {
	lights   LightCounts
	shadows  int
	fog      int
	revision uint64
}

type programSlot struct {
	entry   *ProgramEntry
	env     envKey
	version uint64
}

// materialState tracks the programs one material resolved to. version is
// bumped each time the material reports NeedsUpdate.
type materialState struct {
	slots   map[variantKey]*programSlot
	version uint64
}

type refreshKey struct {
	frame  uint64
	camera *Camera
}

type renderItem struct {
	proxy    *ObjectGPUProxy
	group    int
	material *Material
	entry    *ProgramEntry
	depth    float32
}

// Renderer turns a SceneGraph into draw calls on a gpu.Device. It owns every
// GPU resource it creates; callers free them with the Release methods.
// All methods except Prepare must run on the thread owning the device.
type Renderer struct {
	device gpu.Device
	lib    *shaderlib.Library
	cfg    Config
	caps   gpu.Capabilities

	buffers   *GeometryBuffer
	textures  *TextureManager
	programs  *ProgramCache
	state     *StateCache
	shadows   *ShadowMapCoordinator
	lights    LightAggregator
	refresher uniformRefresher

	proxies   handle.Arena[*ObjectGPUProxy]
	proxyByID map[*Object]handle.Handle
	materials map[*Material]*materialState
	refreshed map[*ProgramEntry]refreshKey

	// texturedMaterials dedups materials within one syncTextures pass.
	texturedMaterials map[*Material]bool

	visible     []*ObjectGPUProxy
	opaque      []renderItem
	transparent []renderItem

	width, height int
	frame         uint64
	info          Info
}

// New creates a renderer drawing through device with shaders from lib. A
// nil cfg means DefaultConfig.
func New(device gpu.Device, lib *shaderlib.Library, cfg *Config) (*Renderer, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("renderer config: %w", err)
	}
	if lib == nil {
		lib = shaderlib.New()
	}

	r := &Renderer{
		device:    device,
		lib:       lib,
		cfg:       c,
		caps:      device.Capabilities(),
		buffers:   NewGeometryBuffer(device),
		textures:  NewTextureManager(device),
		programs:  NewProgramCache(device, lib),
		state:     NewStateCache(device),
		proxyByID: make(map[*Object]handle.Handle),
		materials: make(map[*Material]*materialState),
		refreshed: make(map[*ProgramEntry]refreshKey),

		texturedMaterials: make(map[*Material]bool),
	}
	r.shadows = NewShadowMapCoordinator(device, r.state, &r.cfg.Shadow)
	r.lights.GammaInput = c.GammaInput
	r.refresher = uniformRefresher{
		units:      textureUnits{device: device, textures: r.textures, max: r.caps.MaxTextures},
		gammaInput: c.GammaInput,
	}

	logger.Log.Info("Renderer created",
		zap.Int("maxTextures", r.caps.MaxTextures),
		zap.Int("maxVertexTextures", r.caps.MaxVertexTextures),
		zap.Int("maxTextureSize", r.caps.MaxTextureSize),
		zap.Bool("vertexTextures", r.caps.SupportsVertexTextures),
		zap.Bool("shadows", c.Shadow.Enabled),
		zap.Stringer("shadowType", c.Shadow.Type))
	return r, nil
}

// SetSize sets the default framebuffer size used for the main pass.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = width, height
	r.refresher.viewportHeight = height
}

func (r *Renderer) Config() Config                 { return r.cfg }
func (r *Renderer) Textures() *TextureManager      { return r.textures }
func (r *Renderer) Shadows() *ShadowMapCoordinator { return r.shadows }
func (r *Renderer) Lights() *LightAggregator       { return &r.lights }
func (r *Renderer) Library() *shaderlib.Library    { return r.lib }

// Info returns statistics as of the last Render.
func (r *Renderer) Info() Info {
	info := r.info
	info.Memory = MemoryInfo{
		Programs:   r.programs.Len(),
		Geometries: r.buffers.Len(),
		Textures:   r.textures.GetStats().ActiveTextures,
	}
	info.Uploads = r.buffers.Uploads()
	info.Compiles = r.programs.Compiles()
	info.Frame = r.frame
	return info
}

// Render draws one frame of scene as seen from cam into the default
// framebuffer. Failures inside the frame are logged and the offending draw
// skipped; nothing is returned to the caller.
func (r *Renderer) Render(scene SceneGraph, cam *Camera) {
	r.frame++
	r.info.Render = DrawInfo{}
	r.info.Shadow = DrawInfo{}

	r.lights.Reset()
	for _, l := range scene.Lights() {
		r.lights.Visit(l)
	}

	r.visible = r.visible[:0]
	scene.VisitVisible(func(obj *Object) {
		p := r.proxy(obj)
		p.Init(r.buffers)
		p.Activate()
		p.frame = r.frame
		r.sync(obj)
		r.visible = append(r.visible, p)
	})
	r.proxies.Each(func(_ handle.Handle, p *ObjectGPUProxy) {
		if p.frame != r.frame {
			p.Deactivate()
		}
	})

	env := programEnv{
		caps:     r.caps,
		cfg:      &r.cfg,
		lights:   r.lights.Counts(),
		fog:      scene.Fog(),
		revision: r.lib.Revision(),
	}

	r.syncTextures(scene)
	r.info.Shadow = r.shadows.Render(scene, cam, r.drawDepth)
	env.shadows = len(r.shadows.Maps())

	view := cam.GetViewMatrix()
	r.collect(scene, cam, view, env)
	r.lights.Finalize(r.programs.MaxLights())

	r.device.BindRenderTarget(0)
	if r.width > 0 && r.height > 0 {
		r.device.Viewport(0, 0, r.width, r.height)
	}
	if r.cfg.AutoClear {
		cc := r.cfg.ClearColor
		r.state.SetClearColor([4]float32{cc[0], cc[1], cc[2], r.cfg.ClearAlpha})
		r.state.SetDepthWrite(true)
		r.device.Clear(true, true, true)
	}

	fog := scene.Fog()
	for _, it := range r.opaque {
		r.info.Render.add(r.draw(it, cam, view, fog))
	}
	for _, it := range r.transparent {
		r.info.Render.add(r.draw(it, cam, view, fog))
	}
}

// syncTextures uploads every texture the frame can sample: material maps,
// custom uniform textures and bone palettes. The draw passes only bind.
func (r *Renderer) syncTextures(scene SceneGraph) {
	clear(r.texturedMaterials)
	ensure := func(m *Material) {
		if m == nil || r.texturedMaterials[m] {
			return
		}
		r.texturedMaterials[m] = true
		m.eachTexture(func(tex *Texture) { r.textures.Ensure(tex) })
	}
	ensure(scene.OverrideMaterial())
	for _, p := range r.visible {
		obj := p.Object
		ensure(obj.Material)
		for _, m := range obj.Materials {
			ensure(m)
		}
		ensure(obj.CustomDepthMaterial)
		if sk := obj.Skeleton; sk != nil && usesBoneTexture(r.caps, sk) {
			r.textures.Ensure(p.boneTextureFor(sk, r.textures))
		}
	}
}

// proxy returns obj's proxy, creating it on first sight.
func (r *Renderer) proxy(obj *Object) *ObjectGPUProxy {
	if h, ok := r.proxyByID[obj]; ok {
		if p, ok := r.proxies.Get(h); ok {
			return p
		}
	}
	p := newObjectProxy(obj)
	p.ID = r.proxies.Insert(p)
	r.proxyByID[obj] = p.ID
	return p
}

// sync uploads whatever the object's geometry has marked dirty.
func (r *Renderer) sync(obj *Object) {
	var err error
	var name string
	switch {
	case obj.Geometry != nil:
		name = obj.Geometry.Name
		err = r.buffers.Sync(obj.Geometry, usage(obj.Geometry.Dynamic))
	case obj.Lines != nil:
		name = obj.Lines.Name
		err = r.buffers.UploadLines(obj.Lines, usage(obj.Lines.Dynamic))
	}
	if err != nil {
		logger.Log.Warn("Geometry upload failed",
			zap.String("object", obj.Name),
			zap.String("geometry", name),
			zap.Error(err))
	}
}

func usage(dynamic bool) gpu.Usage {
	if dynamic {
		return gpu.DynamicDraw
	}
	return gpu.StaticDraw
}

// collect builds the sorted draw lists for the main pass.
func (r *Renderer) collect(scene SceneGraph, cam *Camera, view mgl32.Mat4, env programEnv) {
	r.opaque = r.opaque[:0]
	r.transparent = r.transparent[:0]
	override := scene.OverrideMaterial()
	frustum := cam.CalculateFrustum()

	for _, p := range r.visible {
		obj := p.Object
		if p.drawable == nil {
			continue
		}
		if r.cfg.FrustumCulling && obj.FrustumCulled {
			center, radius := obj.WorldSphere()
			if !frustum.IntersectsSphere(center, radius) {
				continue
			}
		}
		p.updateMatrices(view)
		depth := -p.ModelView[14]
		for i := 0; i < p.drawable.GroupCount(); i++ {
			m := override
			if m == nil {
				m = obj.MaterialFor(p.drawable.BufferFor(i))
			}
			if m == nil || !m.Visible {
				continue
			}
			it := renderItem{
				proxy:    p,
				group:    i,
				material: m,
				entry:    r.program(obj, m, env),
				depth:    depth,
			}
			if m.Transparent {
				r.transparent = append(r.transparent, it)
			} else {
				r.opaque = append(r.opaque, it)
			}
		}
	}

	if !r.cfg.SortObjects {
		return
	}
	sort.SliceStable(r.opaque, func(i, j int) bool {
		a, b := r.opaque[i], r.opaque[j]
		if a.proxy.Object.RenderOrder != b.proxy.Object.RenderOrder {
			return a.proxy.Object.RenderOrder < b.proxy.Object.RenderOrder
		}
		return a.depth < b.depth
	})
	sort.SliceStable(r.transparent, func(i, j int) bool {
		a, b := r.transparent[i], r.transparent[j]
		if a.proxy.Object.RenderOrder != b.proxy.Object.RenderOrder {
			return a.proxy.Object.RenderOrder < b.proxy.Object.RenderOrder
		}
		return a.depth > b.depth
	})
}

// draw submits one group of the main pass.
func (r *Renderer) draw(it renderItem, cam *Camera, view mgl32.Mat4, fog *Fog) DrawInfo {
	e := it.entry
	if e == nil || !e.OK {
		return DrawInfo{}
	}
	r.state.ApplyMaterial(it.material)
	r.bind(e, cam, view, fog)

	uc := e.Uniforms()
	p := it.proxy
	r.refresher.units.reset()
	r.refresher.material(uc, it.material)
	if e.Params.ShadowMapEnabled {
		r.refresher.shadows(uc, r.shadows.Maps(), e.Params.MaxShadows)
	}
	r.refresher.object(uc, p.Object, p)
	r.refresher.skinning(uc, p.Object, p, e.Params)
	r.refresher.morph(uc, p.Object, e.Params)
	return p.drawable.Draw(r.device, it.group, e)
}

// bind makes e current and refreshes its per-frame uniforms once per frame
// and camera.
func (r *Renderer) bind(e *ProgramEntry, cam *Camera, view mgl32.Mat4, fog *Fog) {
	r.state.UseProgram(e.Program)
	key := refreshKey{frame: r.frame, camera: cam}
	if r.refreshed[e] == key {
		return
	}
	r.refreshed[e] = key
	uc := e.Uniforms()
	r.refresher.camera(uc, cam, view)
	r.refresher.lights(uc, &r.lights, e.Params.Lights)
	if e.Params.Fog {
		r.refresher.fog(uc, fog)
	}
}

// drawDepth is the shadow pass callback.
func (r *Renderer) drawDepth(obj *Object, m *Material, cam *Camera) DrawInfo {
	var info DrawInfo
	h, ok := r.proxyByID[obj]
	if !ok {
		return info
	}
	p, ok := r.proxies.Get(h)
	if !ok || p.drawable == nil {
		return info
	}
	env := programEnv{caps: r.caps, cfg: &r.cfg, revision: r.lib.Revision()}
	view := cam.GetViewMatrix()
	p.updateMatrices(view)

	e := r.program(obj, m, env)
	if e == nil || !e.OK {
		return info
	}
	r.state.SetPolygonOffset(m.PolygonOffset, m.PolygonOffsetFactor, m.PolygonOffsetUnits)
	r.bind(e, cam, view, nil)
	uc := e.Uniforms()
	for i := 0; i < p.drawable.GroupCount(); i++ {
		r.refresher.units.reset()
		r.refresher.object(uc, obj, p)
		r.refresher.skinning(uc, obj, p, e.Params)
		r.refresher.morph(uc, obj, e.Params)
		info.add(p.drawable.Draw(r.device, i, e))
	}
	return info
}

// program returns the program for drawing obj with m, recompiling only when
// the material was flagged or the scene changed in a way the shader sees.
func (r *Renderer) program(obj *Object, m *Material, env programEnv) *ProgramEntry {
	ms := r.materials[m]
	if ms == nil {
		ms = &materialState{slots: make(map[variantKey]*programSlot)}
		r.materials[m] = ms
	}
	if m.NeedsUpdate {
		ms.version++
		m.NeedsUpdate = false
	}

	vk := variantOf(obj, m)
	ek := envKey{lights: env.lights, shadows: env.shadows, fog: fogKey(env.fog), revision: env.revision}
	if !m.usesLights() && m.Kind != ShaderMaterial {
		ek.lights = LightCounts{}
	}
	if !vk.shadows {
		ek.shadows = 0
	}
	slot := ms.slots[vk]
	if slot != nil && slot.env == ek && slot.version == ms.version {
		return slot.entry
	}

	e := r.programs.Acquire(buildProgramParams(m, obj, env))
	if slot == nil {
		slot = &programSlot{}
		ms.slots[vk] = slot
	}
	if slot.entry != nil {
		r.releaseEntry(slot.entry)
	}
	slot.entry, slot.env, slot.version = e, ek, ms.version
	return e
}

func variantOf(obj *Object, m *Material) variantKey {
	var k variantKey
	if m.Skinning && obj.Skeleton != nil {
		k.skinning = true
		k.bones = len(obj.Skeleton.Bones)
		k.boneTexture = obj.Skeleton.UseVertexTexture
	}
	if g := obj.Geometry; g != nil {
		if m.MorphTargets {
			k.morphTargets = len(g.MorphTargets)
		}
		if m.MorphNormals {
			k.morphNormals = len(g.MorphNormals)
		}
	}
	k.shadows = obj.ReceiveShadow
	return k
}

func fogKey(f *Fog) int {
	if f == nil {
		return -1
	}
	return int(f.Kind)
}

func (r *Renderer) releaseEntry(e *ProgramEntry) {
	r.programs.Release(e)
	if e.UsedTimes() <= 0 {
		delete(r.refreshed, e)
	}
}

// ReleaseGeometry frees g's buffers. The geometry is rebuilt if drawn again.
func (r *Renderer) ReleaseGeometry(g *Geometry) {
	r.buffers.Release(g)
	r.resetProxies(func(o *Object) bool { return o.Geometry == g })
}

// ReleaseLines frees l's buffers.
func (r *Renderer) ReleaseLines(l *LineGeometry) {
	r.buffers.ReleaseLines(l)
	r.resetProxies(func(o *Object) bool { return o.Lines == l })
}

// resetProxies sends matching proxies back to Uninitialized so their
// groups are rebuilt on next use.
func (r *Renderer) resetProxies(match func(*Object) bool) {
	r.proxies.Each(func(_ handle.Handle, p *ObjectGPUProxy) {
		if p.State != ProxyDisposed && match(p.Object) {
			p.State = ProxyUninitialized
			p.drawable = nil
		}
	})
}

// ReleaseMaterial drops every program reference held for m.
func (r *Renderer) ReleaseMaterial(m *Material) {
	ms, ok := r.materials[m]
	if !ok {
		return
	}
	for _, slot := range ms.slots {
		r.releaseEntry(slot.entry)
	}
	delete(r.materials, m)
	m.NeedsUpdate = true
}

// ReleaseTexture drops one reference on tex.
func (r *Renderer) ReleaseTexture(tex *Texture) {
	r.textures.Release(tex)
}

// ReleaseObject disposes obj's proxy. Its geometry and materials may be
// shared and are released separately.
func (r *Renderer) ReleaseObject(obj *Object) {
	h, ok := r.proxyByID[obj]
	if !ok {
		return
	}
	delete(r.proxyByID, obj)
	p, err := r.proxies.Remove(h)
	if err != nil {
		return
	}
	p.Dispose(r.textures)
}

// ReleaseLight frees l's shadow maps.
func (r *Renderer) ReleaseLight(l *Light) {
	r.shadows.Release(l)
}

// Close frees every GPU resource the renderer holds.
func (r *Renderer) Close() {
	r.proxies.Each(func(_ handle.Handle, p *ObjectGPUProxy) {
		p.Dispose(r.textures)
	})
	r.proxies.Clear()
	r.proxyByID = make(map[*Object]handle.Handle)
	for m := range r.materials {
		m.NeedsUpdate = true
	}
	r.materials = make(map[*Material]*materialState)
	r.refreshed = make(map[*ProgramEntry]refreshKey)
	r.shadows.Clear()
	r.programs.Clear()
	r.buffers.Clear()
	r.textures.Clear()
	r.state.Reset()
	logger.Log.Info("Renderer closed", zap.Uint64("frames", r.frame))
}
