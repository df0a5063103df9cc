package renderer

import (
	"testing"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleGeometry(name string) *Geometry {
	g := NewGeometry(name)
	g.Vertices = []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}
	g.Faces = []Face{{A: 0, B: 1, C: 2, Normal: mgl32.Vec3{0, 0, 1}}}
	return g
}

func TestBuildGroupsSplitsAtVertexLimit(t *testing.T) {
	perGroup := MaxGroupVertices / 3
	faces := make([]Face, perGroup+1)

	groups := BuildGroups(faces, false)
	require.Len(t, groups, 2)

	assert.Equal(t, MaxGroupVertices, groups[0].VertexCount)
	assert.Equal(t, 3, groups[1].VertexCount)
	assert.Equal(t, 0, groups[0].Faces[0])
	assert.Equal(t, perGroup-1, groups[0].Faces[perGroup-1])
	assert.Equal(t, []int{perGroup}, groups[1].Faces)
}

func TestBuildGroupsByMaterial(t *testing.T) {
	faces := []Face{
		{MaterialIndex: 0}, {MaterialIndex: 1}, {MaterialIndex: 0}, {MaterialIndex: 1},
	}

	groups := BuildGroups(faces, true)
	require.Len(t, groups, 2)
	assert.Equal(t, 0, groups[0].MaterialIndex)
	assert.Equal(t, []int{0, 2}, groups[0].Faces)
	assert.Equal(t, 1, groups[1].MaterialIndex)
	assert.Equal(t, []int{1, 3}, groups[1].Faces)

	single := BuildGroups(faces, false)
	require.Len(t, single, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, single[0].Faces)
}

func TestBuildGroupsEmpty(t *testing.T) {
	assert.Empty(t, BuildGroups(nil, false))
}

func TestSyncUploadsThenGoesQuiet(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	buffers.Build(g, false)

	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Len(t, dev.Uploads, 3) // positions, normals, indices
	assert.Equal(t, 1, buffers.Uploads())
	assert.Zero(t, g.Pending())

	dev.ResetCounters()
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Zero(t, dev.TotalCalls())
	assert.Equal(t, 1, buffers.Uploads())
}

func TestSyncOnlyUploadsDirtyAttribute(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	g.Colors = []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))

	dev.ResetCounters()
	g.MarkDirty(DirtyColors)
	require.NoError(t, buffers.Sync(g, gpu.DynamicDraw))

	require.Len(t, dev.Uploads, 1)
	assert.Equal(t, g.Groups()[0].buffers.color, dev.Uploads[0].Buffer)
	assert.Equal(t, gpu.DynamicDraw, dev.Uploads[0].Usage)
	assert.Equal(t, 9, dev.Uploads[0].Len)
}

func TestFailedUploadKeepsFlags(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	buffers.Build(g, false)

	dev.FailUploads = true
	err := buffers.Sync(g, gpu.StaticDraw)
	require.Error(t, err)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	assert.True(t, g.Pending().Has(DirtyVertices))
	assert.True(t, g.Pending().Has(DirtyElements))
	assert.Zero(t, buffers.Uploads())

	dev.FailUploads = false
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Zero(t, g.Pending())
	assert.Equal(t, 1, buffers.Uploads())
}

func TestReleaseGeometryDeletesBuffers(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Equal(t, 1, buffers.Len())

	buffers.Release(g)
	assert.Equal(t, 3, dev.Calls["DeleteBuffer"])
	assert.Zero(t, buffers.Len())
	assert.Nil(t, g.Groups())
	assert.Equal(t, DirtyAll, g.Dirty)

	// A second release is a no-op.
	buffers.Release(g)
	assert.Equal(t, 3, dev.Calls["DeleteBuffer"])
}

func TestLinesUpload(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	l := NewLineGeometry("axis", gpu.Lines)
	l.Vertices = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}

	require.NoError(t, buffers.UploadLines(l, gpu.StaticDraw))
	require.Len(t, dev.Uploads, 1)
	assert.Equal(t, 6, dev.Uploads[0].Len)
	assert.Zero(t, l.Pending())

	d := LineDrawable(l)
	assert.Equal(t, 1, d.GroupCount())
}

func TestEmptyMeshDrawsNothing(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := NewGeometry("empty")
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))

	d := MeshDrawable(g)
	assert.Zero(t, d.GroupCount())
	assert.Empty(t, dev.Draws)
}

func TestSyncCreatesBufferForLateAttribute(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Zero(t, g.Groups()[0].buffers.color)

	dev.ResetCounters()
	g.Colors = []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	g.MarkDirty(DirtyColors)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))

	color := g.Groups()[0].buffers.color
	require.NotZero(t, color)
	require.Len(t, dev.Uploads, 1)
	assert.Equal(t, color, dev.Uploads[0].Buffer)
	assert.Equal(t, 9, dev.Uploads[0].Len)
	assert.Zero(t, g.Pending())
	assert.Equal(t, 2, buffers.Uploads())
}

func TestSyncWithoutDataCountsNoUpload(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))

	dev.ResetCounters()
	g.MarkDirty(DirtyTangents | DirtySkin)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Empty(t, dev.Uploads)
	assert.Zero(t, g.Pending())
	assert.Equal(t, 1, buffers.Uploads())
}

func TestMorphTargetCountChanges(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	g.MorphTargets = []MorphTarget{
		{Name: "a", Vertices: g.Vertices},
		{Name: "b", Vertices: g.Vertices},
	}
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	require.Len(t, g.Groups()[0].buffers.morphTargets, 2)
	dropped := g.Groups()[0].buffers.morphTargets[1]

	g.MorphTargets = g.MorphTargets[:1]
	g.MarkDirty(DirtyMorphTargets)
	dev.ResetCounters()
	require.NotPanics(t, func() {
		require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	})
	assert.Len(t, g.Groups()[0].buffers.morphTargets, 1)
	assert.False(t, dev.LiveBuffer[dropped])
	assert.Len(t, dev.Uploads, 1)

	g.MorphTargets = append(g.MorphTargets, MorphTarget{Name: "c", Vertices: g.Vertices}, MorphTarget{Name: "d", Vertices: g.Vertices})
	g.MarkDirty(DirtyMorphTargets)
	dev.ResetCounters()
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Len(t, g.Groups()[0].buffers.morphTargets, 3)
	assert.Len(t, dev.Uploads, 3)
}

func TestCustomAttributesReconciled(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	g := triangleGeometry("tri")
	buffers.Build(g, false)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))

	g.Custom = []*CustomAttribute{{Name: "heat", Size: 1, Values: []float32{0, 0.5, 1}}}
	g.MarkDirty(DirtyCustomAttributes)
	dev.ResetCounters()
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	heat := g.Groups()[0].buffers.custom["heat"]
	require.NotZero(t, heat)
	require.Len(t, dev.Uploads, 1)
	assert.Equal(t, 3, dev.Uploads[0].Len)

	g.Custom = nil
	g.MarkDirty(DirtyCustomAttributes)
	require.NoError(t, buffers.Sync(g, gpu.StaticDraw))
	assert.Empty(t, g.Groups()[0].buffers.custom)
	assert.False(t, dev.LiveBuffer[heat])
}

func TestLinesColorsAddedLater(t *testing.T) {
	dev := gputest.New()
	buffers := NewGeometryBuffer(dev)
	l := NewLineGeometry("axis", gpu.Lines)
	l.Vertices = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	require.NoError(t, buffers.UploadLines(l, gpu.StaticDraw))

	l.Colors = []mgl32.Vec3{{1, 0, 0}, {1, 0, 0}}
	l.MarkDirty(DirtyColors)
	dev.ResetCounters()
	require.NoError(t, buffers.UploadLines(l, gpu.StaticDraw))
	require.Len(t, dev.Uploads, 1)
	assert.Equal(t, l.group.buffers.color, dev.Uploads[0].Buffer)
	assert.Equal(t, 2, buffers.Uploads())
}
