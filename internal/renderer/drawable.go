package renderer

import (
	"strconv"

	"Gopher3DCore/internal/gpu"
)

// DrawInfo counts what one Draw submitted.
type DrawInfo struct {
	Calls    int
	Vertices int
	Faces    int
	Points   int
}

func (d *DrawInfo) add(o DrawInfo) {
	d.Calls += o.Calls
	d.Vertices += o.Vertices
	d.Faces += o.Faces
	d.Points += o.Points
}

// Drawable is anything the renderer can submit group by group.
type Drawable interface {
	GroupCount() int
	BufferFor(group int) *GeometryGroup
	Draw(device gpu.Device, group int, program *ProgramEntry) DrawInfo
}

var (
	morphTargetAttribs = numbered("morphTarget", maxMorphTargets)
	morphNormalAttribs = numbered("morphNormal", maxMorphNormals)
)

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + strconv.Itoa(i)
	}
	return out
}

type meshDrawable struct {
	geometry *Geometry
}

// MeshDrawable returns the Drawable view of g. Groups must already be built.
func MeshDrawable(g *Geometry) Drawable { return meshDrawable{geometry: g} }

func (m meshDrawable) GroupCount() int { return len(m.geometry.groups) }

func (m meshDrawable) BufferFor(i int) *GeometryGroup { return m.geometry.groups[i] }

func (m meshDrawable) Draw(d gpu.Device, i int, e *ProgramEntry) DrawInfo {
	grp := m.geometry.groups[i]
	if grp.VertexCount == 0 || !grp.active {
		return DrawInfo{}
	}
	var b attribBinder
	bufs := &grp.buffers
	b.bind(d, e, "position", bufs.position, 3)
	b.bind(d, e, "normal", bufs.normal, 3)
	b.bind(d, e, "uv", bufs.uv, 2)
	b.bind(d, e, "uv2", bufs.uv2, 2)
	b.bind(d, e, "color", bufs.color, 3)
	b.bind(d, e, "tangent", bufs.tangent, 4)
	b.bind(d, e, "skinIndex", bufs.skinIndex, 4)
	b.bind(d, e, "skinWeight", bufs.skinWeight, 4)
	if e.Params.MorphTargets {
		for t := 0; t < e.Params.MaxMorphTargets && t < len(bufs.morphTargets); t++ {
			b.bind(d, e, morphTargetAttribs[t], bufs.morphTargets[t], 3)
		}
	}
	if e.Params.MorphNormals {
		for t := 0; t < e.Params.MaxMorphNormals && t < len(bufs.morphNormals); t++ {
			b.bind(d, e, morphNormalAttribs[t], bufs.morphNormals[t], 3)
		}
	}
	for _, attr := range m.geometry.Custom {
		b.bind(d, e, attr.Name, bufs.custom[attr.Name], attr.Size)
	}

	d.BindBuffer(gpu.ElementArrayBuffer, bufs.index)
	d.DrawElements(gpu.Triangles, grp.VertexCount, 0)
	b.unbind(d)
	return DrawInfo{Calls: 1, Vertices: grp.VertexCount, Faces: len(grp.Faces)}
}

type lineDrawable struct {
	lines *LineGeometry
}

// LineDrawable returns the Drawable view of l. It has one group once built.
func LineDrawable(l *LineGeometry) Drawable { return lineDrawable{lines: l} }

func (l lineDrawable) GroupCount() int {
	if l.lines.group == nil {
		return 0
	}
	return 1
}

func (l lineDrawable) BufferFor(int) *GeometryGroup { return l.lines.group }

func (l lineDrawable) Draw(d gpu.Device, _ int, e *ProgramEntry) DrawInfo {
	grp := l.lines.group
	if grp == nil || grp.VertexCount == 0 || !grp.active {
		return DrawInfo{}
	}
	var b attribBinder
	b.bind(d, e, "position", grp.buffers.position, 3)
	b.bind(d, e, "color", grp.buffers.color, 3)
	mode := l.lines.Mode
	d.DrawArrays(mode, 0, grp.VertexCount)
	b.unbind(d)
	if mode == gpu.Points {
		return DrawInfo{Calls: 1, Points: grp.VertexCount}
	}
	return DrawInfo{Calls: 1, Vertices: grp.VertexCount}
}

// attribBinder enables attributes for one draw and disables them after.
type attribBinder struct {
	enabled []gpu.Location
}

func (b *attribBinder) bind(d gpu.Device, e *ProgramEntry, name string, buf gpu.Buffer, size int) {
	if buf == 0 {
		return
	}
	loc := e.Attrib(name)
	if !loc.Valid() {
		return
	}
	d.BindBuffer(gpu.ArrayBuffer, buf)
	d.EnableVertexAttrib(loc)
	d.VertexAttribPointer(loc, size, 0, 0)
	b.enabled = append(b.enabled, loc)
}

func (b *attribBinder) unbind(d gpu.Device) {
	for _, loc := range b.enabled {
		d.DisableVertexAttrib(loc)
	}
	b.enabled = b.enabled[:0]
}
