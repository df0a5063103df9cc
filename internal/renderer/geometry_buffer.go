package renderer

import (
	"errors"
	"fmt"
	"sync"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/handle"
	"Gopher3DCore/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MaxGroupVertices is the largest vertex count addressable by a uint16 index
// buffer.
const MaxGroupVertices = 65535

// GeometryGroup is a run of faces sharing one material index, small enough
// for 16-bit indices. Every face contributes three unshared vertices.
type GeometryGroup struct {
	MaterialIndex int
	Faces         []int // indices into Geometry.Faces, in original order
	VertexCount   int

	active  bool
	dirty   DirtyFlags
	buffers groupBuffers

	// CPU staging arrays, sized on Allocate and reused by every upload.
	positions, normals, uvs, uvs2, colors []float32
	tangents, skinIndices, skinWeights    []float32
	indices                               []uint16
}

type groupBuffers struct {
	position, normal, uv, uv2, color gpu.Buffer
	tangent, skinIndex, skinWeight   gpu.Buffer
	index                            gpu.Buffer
	morphTargets                     []gpu.Buffer
	morphNormals                     []gpu.Buffer
	custom                           map[string]gpu.Buffer
}

func (b *groupBuffers) each(fn func(gpu.Buffer)) {
	for _, buf := range []gpu.Buffer{b.position, b.normal, b.uv, b.uv2, b.color, b.tangent, b.skinIndex, b.skinWeight, b.index} {
		if buf != 0 {
			fn(buf)
		}
	}
	for _, buf := range b.morphTargets {
		fn(buf)
	}
	for _, buf := range b.morphNormals {
		fn(buf)
	}
	for _, buf := range b.custom {
		fn(buf)
	}
}

func (grp *GeometryGroup) Active() bool            { return grp.active }
func (grp *GeometryGroup) Dirty() DirtyFlags       { return grp.dirty }
func (grp *GeometryGroup) FaceCount() int          { return len(grp.Faces) }
func (grp *GeometryGroup) IndexBuffer() gpu.Buffer { return grp.buffers.index }

// BuildGroups partitions faces by material index. A new group is started for
// a material once its current group cannot take three more vertices. Groups
// are returned in creation order; faces keep their original order.
func BuildGroups(faces []Face, usesPerFaceMaterial bool) []*GeometryGroup {
	var groups []*GeometryGroup
	current := make(map[int]*GeometryGroup)
	for i, f := range faces {
		key := 0
		if usesPerFaceMaterial {
			key = f.MaterialIndex
		}
		grp := current[key]
		if grp == nil || grp.VertexCount+3 > MaxGroupVertices {
			grp = &GeometryGroup{MaterialIndex: key}
			current[key] = grp
			groups = append(groups, grp)
		}
		grp.Faces = append(grp.Faces, i)
		grp.VertexCount += 3
	}
	return groups
}

// GeometryBuffer owns every GPU buffer created for geometries. Group
// building is safe from any goroutine; allocation and upload must run on the
// render thread.
type GeometryBuffer struct {
	device gpu.Device

	mu      sync.Mutex
	meshes  handle.Arena[*Geometry]
	lines   handle.Arena[*LineGeometry]
	uploads int
}

func NewGeometryBuffer(device gpu.Device) *GeometryBuffer {
	return &GeometryBuffer{device: device}
}

// Build registers g and splits it into groups on first call. Partitioning
// runs outside the lock so several geometries can be built at once; a
// geometry must not be built from two goroutines at the same time.
func (b *GeometryBuffer) Build(g *Geometry, usesPerFaceMaterial bool) []*GeometryGroup {
	b.mu.Lock()
	if g.groups != nil && g.groupsPerFace == usesPerFaceMaterial {
		b.mu.Unlock()
		return g.groups
	}
	b.mu.Unlock()

	groups := BuildGroups(g.Faces, usesPerFaceMaterial)
	if groups == nil {
		groups = []*GeometryGroup{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if g.groups != nil {
		b.freeGroups(g.groups)
	}
	if _, ok := b.meshes.Get(g.id); !ok {
		g.id = b.meshes.Insert(g)
	}
	g.groups = groups
	g.groupsPerFace = usesPerFaceMaterial
	logger.Log.Debug("Geometry groups built",
		zap.String("geometry", g.Name),
		zap.Int("faces", len(g.Faces)),
		zap.Int("groups", len(g.groups)))
	return g.groups
}

// BuildLines registers l and returns its single implicit group.
func (b *GeometryBuffer) BuildLines(l *LineGeometry) *GeometryGroup {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.group != nil {
		return l.group
	}
	l.id = b.lines.Insert(l)
	l.group = &GeometryGroup{VertexCount: len(l.Vertices)}
	return l.group
}

// Allocate creates the group's buffers and staging arrays on first touch and
// marks every attribute for upload. Attributes that appear later get their
// buffers on the upload that first sees them.
func (b *GeometryBuffer) Allocate(g *Geometry, grp *GeometryGroup) {
	if grp.active {
		return
	}
	n := grp.VertexCount
	bufs := &grp.buffers
	b.ensure(&bufs.position, &grp.positions, n*3)
	b.ensure(&bufs.normal, &grp.normals, n*3)
	bufs.index = b.device.CreateBuffer()
	grp.indices = make([]uint16, n)
	if len(g.FaceUVs) > 0 {
		b.ensure(&bufs.uv, &grp.uvs, n*2)
	}
	if len(g.FaceUVs2) > 0 {
		b.ensure(&bufs.uv2, &grp.uvs2, n*2)
	}
	if g.hasVertexColors() {
		b.ensure(&bufs.color, &grp.colors, n*3)
	}
	if g.HasTangents() {
		b.ensure(&bufs.tangent, &grp.tangents, n*4)
	}
	if g.hasSkin() {
		b.ensure(&bufs.skinIndex, &grp.skinIndices, n*4)
		b.ensure(&bufs.skinWeight, &grp.skinWeights, n*4)
	}
	bufs.morphTargets = b.resize(bufs.morphTargets, len(g.MorphTargets))
	bufs.morphNormals = b.resize(bufs.morphNormals, len(g.MorphNormals))
	b.reconcileCustom(g, bufs)
	grp.active = true
	grp.dirty = DirtyAll
}

// ensure creates buf when missing and sizes its staging array.
func (b *GeometryBuffer) ensure(buf *gpu.Buffer, staging *[]float32, size int) {
	if *buf == 0 {
		*buf = b.device.CreateBuffer()
	}
	if len(*staging) != size {
		*staging = make([]float32, size)
	}
}

// resize grows or shrinks a buffer list to n entries, deleting the extras.
func (b *GeometryBuffer) resize(bufs []gpu.Buffer, n int) []gpu.Buffer {
	for len(bufs) > n {
		b.device.DeleteBuffer(bufs[len(bufs)-1])
		bufs = bufs[:len(bufs)-1]
	}
	for len(bufs) < n {
		bufs = append(bufs, b.device.CreateBuffer())
	}
	return bufs
}

// reconcileCustom gives every custom attribute a buffer and frees buffers of
// attributes that were removed.
func (b *GeometryBuffer) reconcileCustom(g *Geometry, bufs *groupBuffers) {
	if len(g.Custom) == 0 && len(bufs.custom) == 0 {
		return
	}
	live := make(map[string]bool, len(g.Custom))
	for _, attr := range g.Custom {
		live[attr.Name] = true
		if _, ok := bufs.custom[attr.Name]; ok {
			continue
		}
		if bufs.custom == nil {
			bufs.custom = make(map[string]gpu.Buffer, len(g.Custom))
		}
		bufs.custom[attr.Name] = b.device.CreateBuffer()
	}
	for name, buf := range bufs.custom {
		if !live[name] {
			b.device.DeleteBuffer(buf)
			delete(bufs.custom, name)
		}
	}
}

// AllocateLines is Allocate for a line geometry.
func (b *GeometryBuffer) AllocateLines(l *LineGeometry) {
	grp := b.BuildLines(l)
	if grp.active {
		return
	}
	grp.buffers.position = b.device.CreateBuffer()
	if len(l.Colors) > 0 {
		grp.buffers.color = b.device.CreateBuffer()
	}
	grp.active = true
	grp.dirty = DirtyAll
}

// Sync hands the geometry's dirty flags to its groups and uploads each one.
// A flag stays set on a group until that group's upload succeeds.
func (b *GeometryBuffer) Sync(g *Geometry, hint gpu.Usage) error {
	if g.Dirty != 0 {
		for _, grp := range g.groups {
			grp.dirty |= g.Dirty
		}
		g.Dirty = 0
	}
	var errs []error
	for _, grp := range g.groups {
		if err := b.Upload(g, grp, hint); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Upload repacks and transfers every attribute whose flag is set on grp.
// Flags are cleared individually, and only when the transfer succeeded. A
// clean group issues no GPU calls.
func (b *GeometryBuffer) Upload(g *Geometry, grp *GeometryGroup, hint gpu.Usage) error {
	if grp.active && grp.dirty == 0 {
		return nil
	}
	b.Allocate(g, grp)

	var errs []error
	var done DirtyFlags
	transferred := false
	for flag := DirtyVertices; flag <= DirtyCustomAttributes; flag <<= 1 {
		if !grp.dirty.Has(flag) {
			continue
		}
		sent, err := b.uploadMeshAttribute(g, grp, flag, hint)
		if err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", flag, err))
			continue
		}
		done |= flag
		transferred = transferred || sent
	}
	grp.dirty &^= done
	if transferred {
		b.countUpload()
	}
	return errors.Join(errs...)
}

// UploadLines is Upload for a line geometry.
func (b *GeometryBuffer) UploadLines(l *LineGeometry, hint gpu.Usage) error {
	b.AllocateLines(l)
	grp := l.group
	grp.dirty |= l.Dirty
	l.Dirty = 0
	if grp.dirty == 0 {
		return nil
	}
	if grp.VertexCount != len(l.Vertices) {
		grp.VertexCount = len(l.Vertices)
	}
	var errs []error
	var done DirtyFlags
	transferred := false
	if grp.dirty.Has(DirtyVertices) {
		grp.positions = packVec3(grp.positions[:0], l.Vertices)
		if err := b.transfer(gpu.ArrayBuffer, grp.buffers.position, grp.positions, hint); err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", DirtyVertices, err))
		} else {
			done |= DirtyVertices
			transferred = true
		}
	}
	if grp.dirty.Has(DirtyColors) {
		if len(l.Colors) > 0 && grp.buffers.color == 0 {
			grp.buffers.color = b.device.CreateBuffer()
		}
		if grp.buffers.color != 0 {
			grp.colors = packVec3(grp.colors[:0], l.Colors)
			if err := b.transfer(gpu.ArrayBuffer, grp.buffers.color, grp.colors, hint); err != nil {
				errs = append(errs, fmt.Errorf("upload %s: %w", DirtyColors, err))
			} else {
				done |= DirtyColors
				transferred = true
			}
		} else {
			// No colors on either side.
			done |= DirtyColors
		}
	}
	// Lines carry no other attributes.
	done |= grp.dirty &^ (DirtyVertices | DirtyColors)
	grp.dirty &^= done
	if transferred {
		b.countUpload()
	}
	return errors.Join(errs...)
}

func (b *GeometryBuffer) countUpload() {
	b.mu.Lock()
	b.uploads++
	b.mu.Unlock()
}

func (b *GeometryBuffer) transfer(target gpu.BufferTarget, buf gpu.Buffer, data []float32, hint gpu.Usage) error {
	b.device.BindBuffer(target, buf)
	return b.device.BufferFloat32(target, data, hint)
}

// uploadMeshAttribute repacks and transfers the data behind one flag. It
// reports whether anything was sent; a flag with no CPU data on either side
// has nothing to send and succeeds without GPU calls.
func (b *GeometryBuffer) uploadMeshAttribute(g *Geometry, grp *GeometryGroup, flag DirtyFlags, hint gpu.Usage) (bool, error) {
	bufs := &grp.buffers
	n := grp.VertexCount
	switch flag {
	case DirtyVertices:
		grp.forEachCorner(g, func(k int, f Face, corner int) {
			putVec3(grp.positions, k, vertexAt(g.Vertices, f.index(corner)))
		})
		return true, b.transfer(gpu.ArrayBuffer, bufs.position, grp.positions, hint)

	case DirtyNormals:
		grp.forEachCorner(g, func(k int, f Face, corner int) {
			nrm := f.Normal
			if len(f.VertexNormals) == 3 {
				nrm = f.VertexNormals[corner]
			}
			putVec3(grp.normals, k, nrm)
		})
		return true, b.transfer(gpu.ArrayBuffer, bufs.normal, grp.normals, hint)

	case DirtyUVs:
		sent := false
		if len(g.FaceUVs) > 0 {
			b.ensure(&bufs.uv, &grp.uvs, n*2)
		}
		if bufs.uv != 0 {
			grp.forEachCorner(g, func(k int, _ Face, corner int) {
				putVec2(grp.uvs, k, faceUV(g.FaceUVs, grp.Faces[k/3], corner))
			})
			if err := b.transfer(gpu.ArrayBuffer, bufs.uv, grp.uvs, hint); err != nil {
				return false, err
			}
			sent = true
		}
		if len(g.FaceUVs2) > 0 {
			b.ensure(&bufs.uv2, &grp.uvs2, n*2)
		}
		if bufs.uv2 != 0 {
			grp.forEachCorner(g, func(k int, _ Face, corner int) {
				putVec2(grp.uvs2, k, faceUV(g.FaceUVs2, grp.Faces[k/3], corner))
			})
			return true, b.transfer(gpu.ArrayBuffer, bufs.uv2, grp.uvs2, hint)
		}
		return sent, nil

	case DirtyColors:
		if g.hasVertexColors() {
			b.ensure(&bufs.color, &grp.colors, n*3)
		}
		if bufs.color == 0 {
			return false, nil
		}
		grp.forEachCorner(g, func(k int, f Face, corner int) {
			c := f.Color
			switch {
			case len(f.VertexColors) == 3:
				c = f.VertexColors[corner]
			case len(g.Colors) > 0:
				c = vertexAt(g.Colors, f.index(corner))
			}
			putVec3(grp.colors, k, c)
		})
		return true, b.transfer(gpu.ArrayBuffer, bufs.color, grp.colors, hint)

	case DirtyTangents:
		if g.HasTangents() {
			b.ensure(&bufs.tangent, &grp.tangents, n*4)
		}
		if bufs.tangent == 0 {
			return false, nil
		}
		grp.forEachCorner(g, func(k int, f Face, corner int) {
			var t mgl32.Vec4
			if len(f.VertexTangents) == 3 {
				t = f.VertexTangents[corner]
			}
			copy(grp.tangents[k*4:k*4+4], t[:])
		})
		return true, b.transfer(gpu.ArrayBuffer, bufs.tangent, grp.tangents, hint)

	case DirtySkin:
		if g.hasSkin() {
			b.ensure(&bufs.skinIndex, &grp.skinIndices, n*4)
			b.ensure(&bufs.skinWeight, &grp.skinWeights, n*4)
		}
		if bufs.skinIndex == 0 {
			return false, nil
		}
		grp.forEachCorner(g, func(k int, f Face, corner int) {
			i := f.index(corner)
			var si, sw mgl32.Vec4
			if i < len(g.SkinIndices) {
				si = g.SkinIndices[i]
			}
			if i < len(g.SkinWeights) {
				sw = g.SkinWeights[i]
			}
			copy(grp.skinIndices[k*4:k*4+4], si[:])
			copy(grp.skinWeights[k*4:k*4+4], sw[:])
		})
		if err := b.transfer(gpu.ArrayBuffer, bufs.skinIndex, grp.skinIndices, hint); err != nil {
			return false, err
		}
		return true, b.transfer(gpu.ArrayBuffer, bufs.skinWeight, grp.skinWeights, hint)

	case DirtyMorphTargets:
		bufs.morphTargets = b.resize(bufs.morphTargets, len(g.MorphTargets))
		bufs.morphNormals = b.resize(bufs.morphNormals, len(g.MorphNormals))
		if len(bufs.morphTargets)+len(bufs.morphNormals) == 0 {
			return false, nil
		}
		scratch := make([]float32, n*3)
		for t, buf := range bufs.morphTargets {
			src := g.MorphTargets[t].Vertices
			grp.forEachCorner(g, func(k int, f Face, corner int) {
				putVec3(scratch, k, vertexAt(src, f.index(corner)))
			})
			if err := b.transfer(gpu.ArrayBuffer, buf, scratch, hint); err != nil {
				return false, err
			}
		}
		for t, buf := range bufs.morphNormals {
			src := g.MorphNormals[t]
			grp.forEachCorner(g, func(k int, f Face, corner int) {
				putVec3(scratch, k, vertexAt(src, f.index(corner)))
			})
			if err := b.transfer(gpu.ArrayBuffer, buf, scratch, hint); err != nil {
				return false, err
			}
		}
		return true, nil

	case DirtyCustomAttributes:
		b.reconcileCustom(g, bufs)
		sent := false
		for _, attr := range g.Custom {
			buf, ok := bufs.custom[attr.Name]
			if !ok || attr.Size < 1 || attr.Size > 4 {
				continue
			}
			data := make([]float32, n*attr.Size)
			grp.forEachCorner(g, func(k int, f Face, corner int) {
				src := f.index(corner) * attr.Size
				if src+attr.Size <= len(attr.Values) {
					copy(data[k*attr.Size:(k+1)*attr.Size], attr.Values[src:src+attr.Size])
				}
			})
			if err := b.transfer(gpu.ArrayBuffer, buf, data, hint); err != nil {
				return false, fmt.Errorf("attribute %s: %w", attr.Name, err)
			}
			sent = true
		}
		return sent, nil

	case DirtyElements:
		for i := range grp.indices {
			grp.indices[i] = uint16(i)
		}
		b.device.BindBuffer(gpu.ElementArrayBuffer, bufs.index)
		return true, b.device.BufferUint16(gpu.ElementArrayBuffer, grp.indices, hint)
	}
	return false, nil
}

// forEachCorner calls fn for every face corner of the group; k is the
// corner's vertex slot in the group's buffers.
func (grp *GeometryGroup) forEachCorner(g *Geometry, fn func(k int, f Face, corner int)) {
	for j, fi := range grp.Faces {
		f := g.Faces[fi]
		for corner := 0; corner < 3; corner++ {
			fn(j*3+corner, f, corner)
		}
	}
}

// Release frees every buffer owned by g's groups. The geometry may be used
// again; its groups are rebuilt on next use.
func (b *GeometryBuffer) Release(g *Geometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.meshes.Remove(g.id); err != nil {
		return
	}
	b.freeGroups(g.groups)
	g.groups = nil
	g.id = handle.Handle{}
	g.Dirty = DirtyAll
}

func (b *GeometryBuffer) ReleaseLines(l *LineGeometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.lines.Remove(l.id); err != nil {
		return
	}
	if l.group != nil {
		b.freeGroups([]*GeometryGroup{l.group})
	}
	l.group = nil
	l.id = handle.Handle{}
	l.Dirty = DirtyAll
}

func (b *GeometryBuffer) freeGroups(groups []*GeometryGroup) {
	for _, grp := range groups {
		if !grp.active {
			continue
		}
		grp.buffers.each(b.device.DeleteBuffer)
		grp.buffers = groupBuffers{}
		grp.active = false
	}
}

// Clear frees every registered geometry.
func (b *GeometryBuffer) Clear() {
	var meshes []*Geometry
	var lines []*LineGeometry
	b.mu.Lock()
	b.meshes.Each(func(_ handle.Handle, g *Geometry) { meshes = append(meshes, g) })
	b.lines.Each(func(_ handle.Handle, l *LineGeometry) { lines = append(lines, l) })
	b.mu.Unlock()
	for _, g := range meshes {
		b.Release(g)
	}
	for _, l := range lines {
		b.ReleaseLines(l)
	}
}

// Len returns the number of registered geometries.
func (b *GeometryBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meshes.Len() + b.lines.Len()
}

// Uploads counts upload passes that transferred at least one attribute.
func (b *GeometryBuffer) Uploads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploads
}

func vertexAt(vs []mgl32.Vec3, i int) mgl32.Vec3 {
	if i < 0 || i >= len(vs) {
		return mgl32.Vec3{}
	}
	return vs[i]
}

func faceUV(uvs [][3]mgl32.Vec2, face, corner int) mgl32.Vec2 {
	if face >= len(uvs) {
		return mgl32.Vec2{}
	}
	return uvs[face][corner]
}

func putVec3(dst []float32, k int, v mgl32.Vec3) {
	dst[k*3], dst[k*3+1], dst[k*3+2] = v[0], v[1], v[2]
}

func putVec2(dst []float32, k int, v mgl32.Vec2) {
	dst[k*2], dst[k*2+1] = v[0], v[1]
}

func packVec3(dst []float32, vs []mgl32.Vec3) []float32 {
	for _, v := range vs {
		dst = append(dst, v[0], v[1], v[2])
	}
	return dst
}
