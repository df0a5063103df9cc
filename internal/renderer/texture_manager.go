package renderer

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"Gopher3DCore/internal/gpu"
	"Gopher3DCore/internal/logger"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	Uploads        int
	TotalMemoryMB  float64
	ActiveTextures int
}

// TextureManager manages texture loading, caching, GPU upload and lifecycle.
// Loading and reference counting are safe from any goroutine; Ensure must run
// on the render thread.
type TextureManager struct {
	device gpu.Device

	pathCache map[string]*Texture      // path or name -> texture
	refCount  map[*Texture]int         // texture -> reference count
	paths     map[*Texture]string      // texture -> path (for debugging)
	handles   map[*Texture]gpu.Texture // texture -> GPU texture
	mu        sync.RWMutex
	stats     TextureStats
}

// NewTextureManager creates a new texture manager instance
func NewTextureManager(device gpu.Device) *TextureManager {
	return &TextureManager{
		device:    device,
		pathCache: make(map[string]*Texture),
		refCount:  make(map[*Texture]int),
		paths:     make(map[*Texture]string),
		handles:   make(map[*Texture]gpu.Texture),
	}
}

// Load decodes an image file or returns the cached texture for path.
// Automatically increments reference count
func (tm *TextureManager) Load(path string) (*Texture, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tex, exists := tm.pathCache[path]; exists {
		tm.refCount[tex]++
		tm.stats.CacheHits++

		logger.Log.Debug("Texture cache hit",
			zap.String("path", path),
			zap.Int("refCount", tm.refCount[tex]))

		return tex, nil
	}

	tm.stats.CacheMisses++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}

	tex := NewTexture(path, img)
	tm.track(tex, path)

	logger.Log.Info("Texture loaded and cached",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("width", tex.Width),
		zap.Int("height", tex.Height))

	return tex, nil
}

// FromImage wraps img as a texture cached under name.
func (tm *TextureManager) FromImage(img image.Image, name string) *Texture {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tex, exists := tm.pathCache[name]; exists {
		tm.refCount[tex]++
		tm.stats.CacheHits++
		return tex
	}
	tex := NewTexture(name, img)
	tm.track(tex, name)
	return tex
}

func (tm *TextureManager) track(tex *Texture, key string) {
	tm.pathCache[key] = tex
	tm.refCount[tex] = 1
	tm.paths[tex] = key
	tm.stats.TotalTextures++
	tm.stats.ActiveTextures++
}

// AddReference increments the reference count for a texture
func (tm *TextureManager) AddReference(tex *Texture) {
	if tex == nil {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.refCount[tex]++
}

// Handle returns the GPU texture for tex if it has been uploaded.
func (tm *TextureManager) Handle(tex *Texture) (gpu.Texture, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	h, ok := tm.handles[tex]
	return h, ok
}

// Ensure uploads tex on first use or when NeedsUpdate is set and returns its
// GPU handle. Textures created outside the manager are adopted with one
// reference.
func (tm *TextureManager) Ensure(tex *Texture) gpu.Texture {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, known := tm.refCount[tex]; !known {
		key := fmt.Sprintf("%s@%p", tex.Name, tex)
		tm.track(tex, key)
	}
	h, uploaded := tm.handles[tex]
	if uploaded && !tex.NeedsUpdate {
		return h
	}
	if !uploaded {
		h = tm.device.CreateTexture()
		tm.handles[tex] = h
	}
	spec, err := tm.spec(tex)
	if err == nil {
		err = tm.device.TexImage2D(h, spec)
	}
	if err != nil {
		logger.Log.Warn("Texture upload failed",
			zap.String("texture", tex.Name),
			zap.Error(err))
		return h
	}
	tex.NeedsUpdate = false
	tm.stats.Uploads++
	if !uploaded {
		tm.stats.TotalMemoryMB += float64(tex.byteSize()) / (1024 * 1024)
	}
	return h
}

func (tm *TextureManager) spec(tex *Texture) (gpu.TextureSpec, error) {
	spec := gpu.TextureSpec{
		Width:           tex.Width,
		Height:          tex.Height,
		MinFilter:       tex.MinFilter,
		MagFilter:       tex.MagFilter,
		WrapS:           tex.WrapS,
		WrapT:           tex.WrapT,
		GenerateMipmaps: tex.GenerateMipmaps,
	}
	if len(tex.Data) > 0 {
		if len(tex.Data) < tex.Width*tex.Height*4 {
			return spec, fmt.Errorf("float texture %s: %d values for %dx%d", tex.Name, len(tex.Data), tex.Width, tex.Height)
		}
		spec.Format = gpu.RGBA32F
		spec.FloatPixels = tex.Data
		return spec, nil
	}
	if tex.Image == nil {
		return spec, fmt.Errorf("texture %s has no image", tex.Name)
	}
	rgba := tm.toRGBA(tex)
	spec.Format = gpu.RGBA8
	spec.Width, spec.Height = rgba.Rect.Dx(), rgba.Rect.Dy()
	spec.Pixels = rgba.Pix
	return spec, nil
}

// toRGBA converts the image to tightly packed RGBA, shrinking it when it
// exceeds the device texture size limit.
func (tm *TextureManager) toRGBA(tex *Texture) *image.RGBA {
	src := tex.Image
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	limit := tm.device.Capabilities().MaxTextureSize
	if limit > 0 && (w > limit || h > limit) {
		scale := float64(limit) / float64(max(w, h))
		nw, nh := max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
		logger.Log.Warn("Texture exceeds device limit, resizing",
			zap.String("texture", tex.Name),
			zap.Int("width", w),
			zap.Int("height", h),
			zap.Int("limit", limit))
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
		return dst
	}
	if rgba, ok := src.(*image.RGBA); ok && rgba.Stride == w*4 && b.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return rgba
}

// Release decrements reference count and frees texture if count reaches 0
func (tm *TextureManager) Release(tex *Texture) {
	if tex == nil {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, exists := tm.refCount[tex]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture",
			zap.String("texture", tex.Name))
		return
	}

	refCount--
	tm.refCount[tex] = refCount

	if refCount > 0 {
		return
	}
	tm.free(tex)
	logger.Log.Debug("Texture freed", zap.String("texture", tex.Name))
}

func (tm *TextureManager) free(tex *Texture) {
	if h, ok := tm.handles[tex]; ok {
		tm.device.DeleteTexture(h)
		tm.stats.TotalMemoryMB -= float64(tex.byteSize()) / (1024 * 1024)
		if tm.stats.TotalMemoryMB < 0 {
			tm.stats.TotalMemoryMB = 0
		}
	}
	delete(tm.pathCache, tm.paths[tex])
	delete(tm.refCount, tex)
	delete(tm.paths, tex)
	delete(tm.handles, tex)
	tex.NeedsUpdate = true
	tm.stats.ActiveTextures--
}

// GetStats returns current texture manager statistics
func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.refCount)
	return stats
}

// LogStats logs current texture statistics
func (tm *TextureManager) LogStats() {
	stats := tm.GetStats()
	hitRate := 0.0
	if total := stats.CacheHits + stats.CacheMisses; total > 0 {
		hitRate = float64(stats.CacheHits) / float64(total)
	}
	logger.Log.Info("Texture Manager Stats",
		zap.Int("totalTextures", stats.TotalTextures),
		zap.Int("activeTextures", stats.ActiveTextures),
		zap.Int("uploads", stats.Uploads),
		zap.Int("cacheHits", stats.CacheHits),
		zap.Int("cacheMisses", stats.CacheMisses),
		zap.Float64("memoryMB", stats.TotalMemoryMB),
		zap.Float64("hitRate", hitRate))
}

// Clear releases all textures (for cleanup/testing)
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for tex := range tm.refCount {
		tm.free(tex)
	}
	tm.stats.ActiveTextures = 0
	tm.stats.TotalMemoryMB = 0

	logger.Log.Info("Texture manager cleared")
}
