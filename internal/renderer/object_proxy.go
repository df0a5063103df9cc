package renderer

import (
	"fmt"
	"math"

	"Gopher3DCore/internal/handle"

	"github.com/go-gl/mathgl/mgl32"
)

type ProxyState int

const (
	ProxyUninitialized ProxyState = iota
	ProxyInitialized
	ProxyActive
	ProxyInactive
	ProxyDisposed
)

func (s ProxyState) String() string {
	switch s {
	case ProxyUninitialized:
		return "uninitialized"
	case ProxyInitialized:
		return "initialized"
	case ProxyActive:
		return "active"
	case ProxyInactive:
		return "inactive"
	case ProxyDisposed:
		return "disposed"
	}
	return fmt.Sprintf("ProxyState(%d)", int(s))
}

// ObjectGPUProxy is the renderer's per-object record. It caches the
// camera-dependent matrices and owns the object's bone texture.
type ObjectGPUProxy struct {
	ID     handle.Handle
	Object *Object
	State  ProxyState

	ModelView    mgl32.Mat4
	NormalMatrix mgl32.Mat3

	drawable    Drawable
	boneTexture *Texture
	// frame is the last frame the object was seen in.
	frame uint64
}

func newObjectProxy(obj *Object) *ObjectGPUProxy {
	return &ObjectGPUProxy{Object: obj}
}

// Init splits the object's geometry into groups. Repeat calls are no-ops.
func (p *ObjectGPUProxy) Init(buffers *GeometryBuffer) {
	if p.State != ProxyUninitialized {
		return
	}
	obj := p.Object
	switch {
	case obj.Geometry != nil:
		buffers.Build(obj.Geometry, obj.usesFaceMaterials())
	case obj.Lines != nil:
		buffers.BuildLines(obj.Lines)
	}
	p.drawable = obj.drawable()
	p.State = ProxyInitialized
}

// Activate puts an initialized or inactive proxy in the draw set.
func (p *ObjectGPUProxy) Activate() {
	if p.State == ProxyInitialized || p.State == ProxyInactive {
		p.State = ProxyActive
	}
}

// Deactivate removes an active proxy from the draw set, keeping buffers.
func (p *ObjectGPUProxy) Deactivate() {
	if p.State == ProxyActive {
		p.State = ProxyInactive
	}
}

// Dispose frees what the proxy owns. Geometry buffers are shared and
// released separately.
func (p *ObjectGPUProxy) Dispose(textures *TextureManager) {
	if p.State == ProxyDisposed {
		return
	}
	releaseOwnedTexture(textures, p.boneTexture)
	p.boneTexture = nil
	p.drawable = nil
	p.State = ProxyDisposed
}

// updateMatrices recomputes the view-dependent matrices for view.
func (p *ObjectGPUProxy) updateMatrices(view mgl32.Mat4) {
	p.ModelView = view.Mul4(p.Object.World)
	p.NormalMatrix = p.ModelView.Mat3().Inv().Transpose()
}

// boneTextureFor packs the skeleton into the proxy's float texture, sized
// to the smallest power-of-two square holding four texels per bone.
func (p *ObjectGPUProxy) boneTextureFor(sk *Skeleton, textures *TextureManager) *Texture {
	size := nextPowerOfTwo(int(math.Ceil(math.Sqrt(float64(len(sk.Bones) * 4)))))
	size = max(size, 4)
	if p.boneTexture == nil || p.boneTexture.Width != size {
		releaseOwnedTexture(textures, p.boneTexture)
		p.boneTexture = NewDataTexture(p.Object.Name+"/bones", size, size, make([]float32, size*size*4))
	}
	data := p.boneTexture.Data
	for i, b := range sk.Bones {
		copy(data[i*16:], b[:])
	}
	p.boneTexture.NeedsUpdate = true
	return p.boneTexture
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// releaseOwnedTexture frees a texture the renderer created itself, if it
// ever reached the GPU.
func releaseOwnedTexture(textures *TextureManager, tex *Texture) {
	if tex == nil {
		return
	}
	if _, ok := textures.Handle(tex); ok {
		textures.Release(tex)
	}
}
