package renderer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"Gopher3DCore/internal/gpu/gputest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "checker.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestTextureManagerLoadCaches(t *testing.T) {
	tm := NewTextureManager(gputest.New())
	path := writePNG(t, 4, 2)

	a, err := tm.Load(path)
	require.NoError(t, err)
	b, err := tm.Load(path)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 4, a.Width)
	assert.Equal(t, 2, a.Height)
	stats := tm.GetStats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.CacheMisses)
	assert.Equal(t, 1, stats.ActiveTextures)
}

func TestTextureManagerLoadMissingFile(t *testing.T) {
	tm := NewTextureManager(gputest.New())
	_, err := tm.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestTextureManagerEnsureUploadsOnce(t *testing.T) {
	dev := gputest.New()
	tm := NewTextureManager(dev)
	tex := tm.FromImage(image.NewRGBA(image.Rect(0, 0, 2, 2)), "blank")

	h := tm.Ensure(tex)
	assert.Equal(t, h, tm.Ensure(tex))
	assert.Equal(t, 1, dev.Calls["TexImage2D"])
	assert.False(t, tex.NeedsUpdate)

	tex.NeedsUpdate = true
	assert.Equal(t, h, tm.Ensure(tex))
	assert.Equal(t, 2, dev.Calls["TexImage2D"])
	assert.Equal(t, 1, dev.Calls["CreateTexture"])
}

func TestTextureManagerReleaseByRefCount(t *testing.T) {
	dev := gputest.New()
	tm := NewTextureManager(dev)
	tex := tm.FromImage(image.NewRGBA(image.Rect(0, 0, 2, 2)), "shared")
	tm.AddReference(tex)
	tm.Ensure(tex)

	tm.Release(tex)
	_, ok := tm.Handle(tex)
	assert.True(t, ok)

	tm.Release(tex)
	_, ok = tm.Handle(tex)
	assert.False(t, ok)
	assert.Equal(t, 1, dev.Calls["DeleteTexture"])
	assert.Zero(t, tm.GetStats().ActiveTextures)
	assert.True(t, tex.NeedsUpdate)
}

func TestTextureManagerAdoptsForeignTextures(t *testing.T) {
	tm := NewTextureManager(gputest.New())
	tex := NewDataTexture("bones", 1, 1, []float32{1, 2, 3, 4})

	tm.Ensure(tex)
	assert.Equal(t, 1, tm.GetStats().ActiveTextures)

	short := NewDataTexture("short", 2, 2, []float32{1})
	tm.Ensure(short)
	assert.True(t, short.NeedsUpdate, "failed upload stays pending")
}

func TestTextureManagerShrinksOversizedImages(t *testing.T) {
	dev := gputest.New()
	dev.Caps.MaxTextureSize = 4
	tm := NewTextureManager(dev)
	tex := NewTexture("wide", image.NewRGBA(image.Rect(0, 0, 16, 8)))

	rgba := tm.toRGBA(tex)
	assert.Equal(t, 4, rgba.Rect.Dx())
	assert.Equal(t, 2, rgba.Rect.Dy())
}
